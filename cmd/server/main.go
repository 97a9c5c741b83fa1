package main // Entry point for the monolith API

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
	"github.com/FelipeMiiller/userhub-back/internal/config"
	"github.com/FelipeMiiller/userhub-back/internal/database"
	"github.com/FelipeMiiller/userhub-back/internal/handler"
	"github.com/FelipeMiiller/userhub-back/internal/queue"
	"github.com/FelipeMiiller/userhub-back/internal/repository"
	"github.com/FelipeMiiller/userhub-back/internal/router"
)

func main() {
	cfg := config.Load() // fatal on missing required env vars

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// A missing or empty signing secret must abort startup; it is a
	// configuration error, not something to surface as per-request 401s.
	issuer, err := auth.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("configure token issuer: %v", err)
	}

	users := repository.NewUserRepo(db)
	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	notifier := queue.NewPublisher(cfg.RabbitURL)
	defer notifier.Close()

	sessions := auth.NewSessions(users, hasher, issuer, notifier)

	// Redis is optional: when unreachable the rate limiter disables
	// itself and everything else keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(sessions),
		handler.NewUsersHandler(users),
		issuer, sessions,
		config.LoadRateLimitConfig(), rdb,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
