package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/FelipeMiiller/userhub-back/internal/config"
	"github.com/FelipeMiiller/userhub-back/internal/handler"
	"github.com/FelipeMiiller/userhub-back/internal/middleware"
	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// This endpoint can be used by load balancers or monitoring systems
	// to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth is the static route table for the whole API.  Which
// operations are public, which are guarded and which roles each one
// requires is decided here at startup — handlers and middleware carry no
// route metadata of their own.
func RegisterAuth(
	e *echo.Echo,
	a *handler.AuthHandler,
	u *handler.UsersHandler,
	verifier middleware.TokenVerifier,
	validator middleware.AccessValidator,
	rl config.RateLimitConfig,
	rdb *redis.Client,
) {
	limiter := middleware.NewTokenBucket(rl, rdb)

	// Public session operations live under /v1/auth.  These are the only
	// routes a caller can reach without a verified access token, and the
	// credential-sensitive ones sit behind the rate limiter.
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/recover-password", a.RecoverPassword)

	// Protected routes run the guard pipeline: bearer extraction, token
	// verification, identity re-check and the active-account gate.
	auth := e.Group("/v1", middleware.Guard(verifier, validator))
	auth.POST("/auth/logout", a.Logout)
	auth.POST("/auth/change-password", a.ChangePassword)
	auth.GET("/me", u.Me)

	// Admin-only lookups additionally pass the role gate, which reads
	// the role from the payload the guard verified.
	admin := auth.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users/:id", u.GetUser)
}
