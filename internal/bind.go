package internal

import (
	"context"
	"errors"
	"net/http"

	"github.com/kcmvp/xschema"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Loader when the stored row does not exist.
var ErrNotFound = errors.New("row not found")

// Loader returns the stored row a request mutates, located by the request
// parameters.
type Loader func(ctx context.Context, t *xschema.Table, params map[string]any) (xschema.Row, error)

// Prepare decodes body and runs it through PrepareMutation. Updates load
// the stored row first.
func Prepare(ctx context.Context, t *xschema.Table, body string, params map[string]any, mode xschema.Mode, load Loader) (xschema.ValidateAndDiffResult, error) {
	client, err := xschema.RowFromJSON(body).Get()
	if err != nil {
		return xschema.ValidateAndDiffResult{}, err
	}
	var stored xschema.Row
	if mode != xschema.ModeNew {
		if load == nil {
			return xschema.ValidateAndDiffResult{}, ErrNotFound
		}
		if stored, err = load(ctx, t, params); err != nil {
			return xschema.ValidateAndDiffResult{}, err
		}
	}
	return t.PrepareMutation(stored, client, mode, xschema.ClientContextFrom(ctx))
}

// Status maps the outcome of Prepare, or of a client or filter resolution,
// to an HTTP status and a JSON body.
func Status(res xschema.ValidateAndDiffResult, err error) (int, map[string]any) {
	switch {
	case errors.Is(err, xschema.ErrValidation):
		return http.StatusBadRequest, map[string]any{"errors": res.Errors}
	case errors.Is(err, xschema.ErrInvalidJSON), errors.Is(err, xschema.ErrUnknownField),
		errors.Is(err, xschema.ErrUnknownMember), errors.Is(err, ErrParamConflict):
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	case errors.Is(err, ErrBadClient):
		return http.StatusUnauthorized, map[string]any{"error": err.Error()}
	case errors.Is(err, xschema.ErrNotAuthorized):
		return http.StatusForbidden, map[string]any{"error": err.Error()}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, map[string]any{"error": err.Error()}
	default:
		zap.L().Error("xschema request failed", zap.Error(err))
		return http.StatusInternalServerError, map[string]any{"error": http.StatusText(http.StatusInternalServerError)}
	}
}
