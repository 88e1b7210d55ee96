package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel_auth/internal/auth"
	"travel_auth/internal/config"
	"travel_auth/internal/http_server/handlers/forgot"
	"travel_auth/internal/http_server/handlers/login"
	"travel_auth/internal/http_server/handlers/logout"
	"travel_auth/internal/http_server/handlers/profile"
	"travel_auth/internal/http_server/handlers/refresh"
	"travel_auth/internal/http_server/handlers/register"
	"travel_auth/internal/http_server/handlers/resend"
	"travel_auth/internal/http_server/handlers/reset"
	"travel_auth/internal/http_server/handlers/verifyemail"
	"travel_auth/internal/middleware/authn"
	rateLimit "travel_auth/internal/middleware/ratelimit"
	"travel_auth/internal/rabbitmq"
	"travel_auth/internal/ratelimit"
	"travel_auth/internal/storage/postgres"
	redisstore "travel_auth/internal/storage/redis"
	"travel_auth/internal/token"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	marker, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer marker.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	codec := token.New(cfg.Secrets, cfg.Tokens)

	authService := auth.New(
		log,
		storage,
		storage,
		marker,
		codec,
		msgBroker,
		cfg.ClientURL,
		cfg.Password.BcryptCost,
	)

	router := setupRouter(log, cfg, authService, codec)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	codec *token.Codec,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()
	limiter := ratelimit.New(cfg.RateLimits)
	secureCookies := cfg.Env == envProd
	refreshTTL := cfg.Tokens.RefreshTokenTTL

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Register(limiter)).Post("/register",
			register.New(log, validate, authService),
		)
		r.With(rateLimit.Login(limiter)).Post("/login",
			login.New(log, validate, authService, refreshTTL, secureCookies),
		)
		r.With(rateLimit.Refresh(limiter)).Post("/refresh",
			refresh.New(log, authService, refreshTTL, secureCookies),
		)
		r.Post("/logout",
			logout.New(log, authService, secureCookies),
		)
		r.With(rateLimit.Verify(limiter)).Get("/verify-email",
			verifyemail.New(log, authService),
		)
		r.With(rateLimit.Verify(limiter)).Post("/verify-email",
			verifyemail.New(log, authService),
		)
		r.With(rateLimit.Resend(limiter)).Post("/verify-email/resend",
			resend.New(log, validate, authService),
		)
		r.With(rateLimit.Forgot(limiter)).Post("/forgot",
			forgot.New(log, validate, authService),
		)
		r.With(rateLimit.Forgot(limiter)).Post("/reset",
			reset.New(log, validate, authService),
		)

		r.Route("/profile", func(r chi.Router) {
			r.Use(authn.New(log, codec))
			r.Get("/", profile.Get(log, authService))
			r.Put("/", profile.Update(log, validate, authService))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
