package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/recipehub-be/internal/api"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/config"
	"github.com/isdelr/recipehub-be/internal/database"
	"github.com/isdelr/recipehub-be/internal/logger"
	"github.com/isdelr/recipehub-be/internal/metrics"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/isdelr/recipehub-be/internal/scheduler"
	"github.com/isdelr/recipehub-be/internal/services"
	"github.com/isdelr/recipehub-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accessPolicy := policy.New(cfg.RatingOwnershipEnforced)
	if accessPolicy.EnforceRatingOwnership {
		log.Info().Msg("Rating ownership enforced: only a rating's author may update or delete it")
	} else {
		log.Warn().Msg("Rating ownership NOT enforced: any customer may update or delete any rating")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Set up services
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	eventService := services.NewEventService(db, accessPolicy, hub)
	userService := services.NewUserService(db, jwtManager, auth.PasswordPolicy{MinLength: cfg.PasswordMinLength}, cfg.RefreshTokenTTL, eventService)
	imageService, err := services.NewImageService(ctx, cfg.S3, accessPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image storage")
	}
	if !imageService.Enabled() {
		log.Warn().Msg("S3_BUCKET not set, recipe image uploads are disabled")
	}
	recipeService := services.NewRecipeService(db, accessPolicy, eventService, imageService)
	ratingService := services.NewRatingService(db, accessPolicy, eventService, metrics.Ratings)

	// Set up and run the background scheduler
	sched := scheduler.New(time.Minute)
	err = sched.Add("refresh-token-sweep", cfg.TokenSweepSchedule, func(ctx context.Context) error {
		n, err := userService.SweepExpiredTokens(ctx, time.Now())
		if err != nil {
			return err
		}
		metrics.RecordTokensSwept(n)
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule refresh token sweep")
	}
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Users:          userService,
		Recipes:        recipeService,
		Ratings:        ratingService,
		Events:         eventService,
		Images:         imageService,
		JWT:            jwtManager,
		Policy:         accessPolicy,
		Hub:            hub,
		DB:             db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateBurst:  cfg.AuthRateBurst,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	sched.Stop()
	<-schedDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	stopHub()

	log.Info().Msg("Server exiting")
}
