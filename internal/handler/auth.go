package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
	"github.com/FelipeMiiller/userhub-back/internal/middleware"
	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	Sessions *auth.Sessions
}

func NewAuthHandler(sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{Sessions: sessions}
}

// recoverMessage is returned by RecoverPassword no matter what happened,
// so the endpoint cannot be used to probe which emails are registered.
const recoverMessage = "If the email is registered, a new password has been sent to it."

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	LastName string `json:"lastName"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
type recoverReq struct {
	Email string `json:"email" validate:"required,email"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// userResp is the outward identity representation.  Hashes never appear
// here.
type userResp struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastName    string     `json:"lastName,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toUserResp(u *model.User) userResp {
	return userResp{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		LastName:    u.LastName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Register creates a new identity with the default USER role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, err := h.Sessions.SignUp(ctx, req.Email, req.Password, req.Name, req.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login verifies credentials and returns a token pair.  Every credential
// failure maps to the same 401 body; which check failed is logged only.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	pair, err := h.Sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if isCredentialError(err) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new access token.  The pair
// echoes the same refresh token back (no per-call rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout clears the caller's session.  Protected route: the identity
// comes from the verified payload, never from the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token not found"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	if err := h.Sessions.SignOut(ctx, p.Subject); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RecoverPassword resets the password and emails the new one.  The
// response is 202 with a constant body whether or not the email exists.
func (h *AuthHandler) RecoverPassword(c echo.Context) error {
	var req recoverReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	if err := h.Sessions.RecoverPassword(ctx, req.Email); err != nil && !errors.Is(err, auth.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recover password failed"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": recoverMessage})
}

// ChangePassword re-validates the current password and replaces it.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token not found"})
	}

	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	err := h.Sessions.ChangePassword(ctx, p.Email, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if isCredentialError(err) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// isCredentialError collapses the sign-in failure modes the core keeps
// distinct for logging into one outward bucket.
func isCredentialError(err error) bool {
	return errors.Is(err, auth.ErrNotFound) ||
		errors.Is(err, auth.ErrMissingCredential) ||
		errors.Is(err, auth.ErrInvalidCredentials)
}

// bind decodes and validates a request body.  The returned HTTPError is
// rendered as a 400 by Echo's error handler.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// timeoutCtx bounds handler-initiated store calls.
func timeoutCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
