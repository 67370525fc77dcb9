package xschema

import (
	"fmt"
)

type contextKey string

const (
	// ClientContextKey stores the ClientContext of a request.
	ClientContextKey contextKey = "xschema.client"
	// MutationKey stores the ValidateAndDiffResult of a bound request body.
	MutationKey contextKey = "xschema.mutation"
	// WhereKey stores the where clause computed for a request's filter.
	WhereKey contextKey = "xschema.where"
)

// PrepareMutation takes a client row through authorization, validation and
// diffing against the stored row. stored is nil for inserts. The result is
// only returned with a nil error when the change may be persisted.
func (t *Table) PrepareMutation(stored, client Row, mode Mode, cc ClientContext) (ValidateAndDiffResult, error) {
	rowMode := RowMutate
	if mode == ModeNew {
		rowMode = RowInsert
		if !t.AuthorizeRowBeforeInsert(cc) {
			return ValidateAndDiffResult{}, fmt.Errorf("%w: insert into %s", ErrNotAuthorized, t.id)
		}
	} else if !t.AuthorizeRowForEdit(stored, cc) {
		return ValidateAndDiffResult{}, fmt.Errorf("%w: edit %s", ErrNotAuthorized, t.id)
	}
	auth, err := t.AuthorizeAndSanitize(AuthorizeInput{Row: client, Stored: stored, RowMode: rowMode, Context: cc})
	if err != nil {
		return ValidateAndDiffResult{}, err
	}
	if auth.UnauthorizedCount > 0 {
		return ValidateAndDiffResult{}, fmt.Errorf("%w: %s %v", ErrNotAuthorized, t.id, auth.Unauthorized.Keys())
	}
	res := t.ValidateAndComputeDiff(stored, auth.Authorized, mode, cc)
	return res, res.Err()
}
