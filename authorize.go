package xschema

import (
	"fmt"

	"go.uber.org/zap"
)

// AuthorizeInput is a raw row with the operation it arrives with. Stored is
// the persisted row used for owner detection on mutations; when nil the raw
// row is used.
type AuthorizeInput struct {
	Row     Row
	Stored  Row
	RowMode RowMode
	Context ClientContext
}

// AuthorizeResult partitions the members of a raw row.
type AuthorizeResult struct {
	Authorized        Row
	Unauthorized      Row
	Unknown           Row
	AuthorizedCount   int
	UnauthorizedCount int
	UnknownCount      int
	// RowIsAuthorized is true when at least one member was authorized.
	RowIsAuthorized bool
}

// isOwner reports whether the client is the owner of row.
func (t *Table) isOwner(row Row, cc ClientContext) bool {
	actorID, ok := cc.ActorID().Get()
	if !ok || row == nil {
		return false
	}
	owner, ok := t.rowInfo(row).OwnerUserID.Get()
	return ok && owner == actorID
}

// AuthorizeAndSanitize checks every member of the raw row. Members the table
// does not declare end up in Unknown, are logged and make the call return
// ErrUnknownField along with the complete partition. The primary key is
// always authorized.
func (t *Table) AuthorizeAndSanitize(in AuthorizeInput) (AuthorizeResult, error) {
	ownerRow := in.Stored
	if ownerRow == nil {
		ownerRow = in.Row
	}
	ac := ResolveAuthContext(in.RowMode, t.isOwner(ownerRow, in.Context))
	res := AuthorizeResult{Authorized: Row{}, Unauthorized: Row{}, Unknown: Row{}}
	for _, key := range in.Row.Keys() {
		value := in.Row[key]
		f, ok := t.GetColumn(key).Get()
		switch {
		case !ok:
			res.Unknown[key] = value
		case f.Member() == t.pk || f.Authorize(AuthorizeFieldInput{Row: in.Row, Context: ac, Client: in.Context}):
			res.Authorized[key] = value
		default:
			res.Unauthorized[key] = value
		}
	}
	res.AuthorizedCount = len(res.Authorized)
	res.UnauthorizedCount = len(res.Unauthorized)
	res.UnknownCount = len(res.Unknown)
	res.RowIsAuthorized = res.AuthorizedCount > 0
	if res.UnknownCount > 0 {
		keys := res.Unknown.Keys()
		t.logger().Error("row contains undeclared members",
			zap.String("table", t.id), zap.Strings("members", keys), zap.Stringer("context", ac))
		return res, fmt.Errorf("%w: %s %v", ErrUnknownField, t.id, keys)
	}
	return res, nil
}

func (t *Table) authorizeColumn(member string, row Row, mode RowMode, cc ClientContext) bool {
	f, ok := t.GetColumn(member).Get()
	if !ok {
		return false
	}
	if f.Member() == t.pk {
		return true
	}
	ac := ResolveAuthContext(mode, t.isOwner(row, cc))
	return f.Authorize(AuthorizeFieldInput{Row: row, Context: ac, Client: cc})
}

// AuthorizeColumnForView reports whether the client may read the member of row.
func (t *Table) AuthorizeColumnForView(member string, row Row, cc ClientContext) bool {
	return t.authorizeColumn(member, row, RowQuery, cc)
}

// AuthorizeColumnForEdit reports whether the client may change the member of row.
func (t *Table) AuthorizeColumnForEdit(member string, row Row, cc ClientContext) bool {
	return t.authorizeColumn(member, row, RowMutate, cc)
}

// AuthorizeColumnForInsert reports whether the client may set the member on a
// new row.
func (t *Table) AuthorizeColumnForInsert(member string, row Row, cc ClientContext) bool {
	return t.authorizeColumn(member, row, RowInsert, cc)
}

// AuthorizeRowForView checks the table permissions for reading row.
func (t *Table) AuthorizeRowForView(row Row, cc ClientContext) bool {
	return t.permissions.AuthMap().Allows(ResolveAuthContext(RowQuery, t.isOwner(row, cc)), cc)
}

// AuthorizeRowForEdit checks the table permissions for changing row.
func (t *Table) AuthorizeRowForEdit(row Row, cc ClientContext) bool {
	return t.permissions.AuthMap().Allows(ResolveAuthContext(RowMutate, t.isOwner(row, cc)), cc)
}

// AuthorizeRowBeforeInsert checks the table permissions for inserting.
func (t *Table) AuthorizeRowBeforeInsert(cc ClientContext) bool {
	return t.permissions.AuthMap().Allows(AuthPreInsert, cc)
}
