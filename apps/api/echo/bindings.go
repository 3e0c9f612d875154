package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// bind binds the request into data, reporting malformed input as a validation error.
func bind(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			if msg, ok := herr.Message.(string); ok {
				return core.NewValidationError(errors.New(msg))
			}
		}
		return core.NewValidationError(errors.New("malformed request body"))
	}
	return nil
}
