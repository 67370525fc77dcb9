package xschema

import "errors"

// Schema integrity defects. They indicate a programming or configuration
// mistake rather than bad end-user input and are logged at error level.
var (
	ErrUnknownField    = errors.New("row contains a field not declared on the table")
	ErrUnknownMember   = errors.New("filter references a member not declared on the table")
	ErrUnknownTable    = errors.New("table is not registered")
	ErrDuplicateTable  = errors.New("table id is registered twice")
	ErrNoPublicRole    = errors.New("public role is not configured")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrNotRegistered   = errors.New("table is not bound to a registry")
	ErrBrokenReference = errors.New("field references a table that is not registered")
)
