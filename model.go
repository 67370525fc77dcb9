package xschema

import (
	"strings"

	"github.com/samber/lo"
)

// GetClientModel maps a storage row to the client model. The mapped members
// are spread over a copy of the storage row, so undeclared storage members
// are kept.
func (t *Table) GetClientModel(storage Row, mode Mode, cc ClientContext) Row {
	client := storage.Clone()
	if client == nil {
		client = Row{}
	}
	for _, f := range t.fields {
		f.StorageToClient(storage, client, mode, cc)
	}
	return client
}

// ClientToStorageModel maps a client row to the mutation sent to storage.
// Only declared members are carried over.
func (t *Table) ClientToStorageModel(client Row, mode Mode, cc ClientContext) Row {
	mutation := Row{}
	for _, f := range t.fields {
		f.ClientToStorage(client, mutation, mode, cc)
	}
	return mutation
}

// CreateNew builds the row a client starts editing from.
func (t *Table) CreateNew(cc ClientContext) Row {
	row := Row{}
	for _, f := range t.fields {
		if v, ok := f.NewValue(cc).Get(); ok {
			row[f.Member()] = cloneValue(v)
		}
	}
	return row
}

// QuickFilterMatches is the client side counterpart of the quick filter:
// every whitespace separated token must match the row name or description,
// or the object of one of its foreign fields.
func (t *Table) QuickFilterMatches(row Row, text string) bool {
	info := t.RowInfo(row)
	haystack := strings.ToLower(info.Name + " " + info.Description)
	foreign := lo.FilterMap(t.fields, func(f Field, _ int) (*foreignField, bool) {
		ff, ok := f.(*foreignField)
		return ff, ok
	})
	return lo.EveryBy(strings.Fields(text), func(token string) bool {
		if strings.Contains(haystack, strings.ToLower(token)) {
			return true
		}
		return lo.SomeBy(foreign, func(ff *foreignField) bool { return ff.Matches(row, token) })
	})
}
