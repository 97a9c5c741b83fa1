package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
	"github.com/FelipeMiiller/userhub-back/internal/middleware"
)

// UsersHandler exposes identity lookups for authenticated callers.
type UsersHandler struct {
	Store auth.CredentialStore
}

func NewUsersHandler(store auth.CredentialStore) *UsersHandler {
	return &UsersHandler{Store: store}
}

// Me returns the caller's own identity record.
func (h *UsersHandler) Me(c echo.Context) error {
	p, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token not found"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, err := h.Store.FindByID(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// GetUser returns a single identity by id.  Admin only; the role gate
// lives in the route table.
func (h *UsersHandler) GetUser(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, err := h.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
