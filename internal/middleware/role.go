package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated
// user holds one of the given roles.  The role is read exclusively from
// the payload the guard verified and attached; the raw header is never
// decoded a second time, so the role check and the identity check can
// never disagree.  Must run after Guard.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentUser(c)
			if !ok || !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
