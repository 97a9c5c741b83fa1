// Package middleware contains the per-request authorization guard
// pipeline and the rate limiter.  Public routes simply never have these
// middlewares attached; the route table in internal/router is the single
// place that decides which operations are public.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
)

// userContextKey is where the guard stores the verified payload on the
// Echo context.  Downstream code reads it through CurrentUser only.
const userContextKey = "auth.payload"

// TokenVerifier is the single capability the guard needs from the token
// issuer.
type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.Payload, error)
}

// AccessValidator re-confirms that a verified payload still maps to an
// existing identity.  Implemented by the session manager.
type AccessValidator interface {
	ValidateAccessPayload(ctx context.Context, p auth.Payload) error
}

// Guard returns the authorization middleware: it extracts the bearer
// token, verifies it, re-checks the identity, enforces the active flag
// and attaches the verified payload to the request context.  Every
// verification failure collapses into a generic 401; the distinction is
// only logged.
func Guard(verifier TokenVerifier, validator AccessValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token not found"})
			}

			payload, err := verifier.VerifyAccessToken(token)
			if err != nil {
				c.Logger().Infof("guard: token rejected: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}

			// Tokens can outlive account deletion; re-check the subject.
			if err := validator.ValidateAccessPayload(c.Request().Context(), payload); err != nil {
				c.Logger().Infof("guard: payload rejected: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}

			if !payload.Status {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "User inactive"})
			}

			c.Set(userContextKey, payload)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header.  The
// scheme is matched case-insensitively so both "Bearer x" and "bearer x"
// are accepted; anything else is treated as missing.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// CurrentUser returns the verified payload attached by Guard.  The
// second return is false on routes where the guard did not run.
func CurrentUser(c echo.Context) (auth.Payload, bool) {
	p, ok := c.Get(userContextKey).(auth.Payload)
	return p, ok
}
