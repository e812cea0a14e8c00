package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	_ "github.com/smartrecipehub/recipe-hub/docs"
	"github.com/smartrecipehub/recipe-hub/internal/api"
	"github.com/smartrecipehub/recipe-hub/internal/api/handler"
	"github.com/smartrecipehub/recipe-hub/internal/api/middleware"
	"github.com/smartrecipehub/recipe-hub/internal/core/service"
	"github.com/smartrecipehub/recipe-hub/internal/infrastructure/config"
	mongodb "github.com/smartrecipehub/recipe-hub/internal/infrastructure/db/mongo"
	redisdb "github.com/smartrecipehub/recipe-hub/internal/infrastructure/db/redis"
	"github.com/smartrecipehub/recipe-hub/internal/infrastructure/mail"
	"github.com/smartrecipehub/recipe-hub/internal/infrastructure/queue"
	"github.com/smartrecipehub/recipe-hub/internal/infrastructure/storage"
	"github.com/smartrecipehub/recipe-hub/pkg/logger"
)

const (
	serviceName     = "recipe-hub"
	shutdownTimeout = 10 * time.Second
	mailWorkers     = 2
)

func main() {
	if err := run(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: serviceName})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			log.Warn().Err(err).Msg("sentry disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")

	redisClient, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	users := mongodb.NewUserRepository(db)
	recipes := mongodb.NewRecipeRepository(db)
	plans := mongodb.NewMealPlanRepository(db)
	popular := redisdb.NewPopularCache(redisClient)

	// --- Mail ---
	var sender mail.Sender
	if cfg.Mail.Enabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	} else {
		log.Warn().Msg("SMTP_HOST not set, outbound mail is logged only")
		sender = mail.NewLogSender(logger.Component("mail"))
	}
	dispatcher := queue.NewDispatcher(mailWorkers, sender, cfg.Mail.PasswordResetURL, logger.Component("mail"))
	dispatcher.Start(ctx)

	// --- Services ---
	authService := service.NewAuthService(users, dispatcher, cfg.JWTSecret, service.AuthPolicy{
		TokenTTL:          cfg.Auth.TokenTTL,
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		MaxLoginAttempts:  cfg.Auth.MaxLoginAttempts,
		LockDuration:      cfg.Auth.LockDuration,
	}, logger.Component("auth"))
	if cfg.Admin.Enabled() {
		if _, err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return err
		}
	}
	recipeService := service.NewRecipeService(recipes, users, popular, logger.Component("recipes"))
	userService := service.NewUserService(users, recipes, logger.Component("users"))
	mealPlanService := service.NewMealPlanService(plans, recipes, logger.Component("meal-plans"))

	images, err := storage.NewImageStore(storage.Config{
		Dir:           cfg.Upload.Dir,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxWidth:      cfg.Upload.MaxWidth,
		MaxPixels:     cfg.Upload.MaxPixels,
	}, logger.Component("storage"))
	if err != nil {
		return err
	}

	var authLimiter middleware.RateLimitFunc
	if cfg.Auth.RateLimit > 0 {
		authLimiter = rateLimitFunc(redisdb.NewRateLimiter(redisClient, "auth", cfg.Auth.RateLimit, cfg.Auth.RateWindow))
	}

	// --- HTTP ---
	proxies, err := cfg.ProxyNets()
	if err != nil {
		return err
	}
	e := api.NewRouter(api.Services{
		Auth:        authService,
		Recipes:     recipeService,
		Users:       userService,
		MealPlans:   mealPlanService,
		Images:      images,
		AuthLimiter: authLimiter,
	}, api.Options{
		Development:    cfg.IsDevelopment(),
		CORSOrigins:    cfg.CORSOrigins,
		BodyLimit:      cfg.Upload.MaxBytes,
		UploadDir:      images.Dir(),
		Started:        time.Now(),
		TrustedProxies: proxies,
		HealthChecks: map[string]handler.PingFunc{
			"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	}, logger.Component("http"))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func rateLimitFunc(l *redisdb.RateLimiter) middleware.RateLimitFunc {
	return func(ctx context.Context, key string) (middleware.RateDecision, error) {
		d, err := l.Allow(ctx, key)
		return middleware.RateDecision{
			Allowed:   d.Allowed,
			Limit:     d.Limit,
			Remaining: d.Remaining,
			ResetIn:   d.ResetIn,
		}, err
	}
}
