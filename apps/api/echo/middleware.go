package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/access"
)

// roleMiddleware lets through callers that pass allowed.
func roleMiddleware(allowed func(p access.Principal) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return err
			}
			if !allowed(p) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// adminMiddleware requires an admin holding one of roles (any admin when roles is empty).
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return roleMiddleware(func(p access.Principal) bool {
		return p.IsAdmin() && p.HasAnyRole(roles...)
	})
}

func reviewerMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(access.Principal.IsReviewer)
}

// staffMiddleware lets teachers & admins through.
func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(func(p access.Principal) bool {
		return p.IsAdmin() || p.IsTeacher()
	})
}
