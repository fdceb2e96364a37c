package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/jobs"
	"github.com/iliyamo/studio-booking/internal/logging"
	"github.com/iliyamo/studio-booking/internal/mailer"
	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router"
	"github.com/iliyamo/studio-booking/internal/service"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the maintenance jobs and the mail consumer",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, logCloser, err := logging.New(cfg.Logging, "studio-booking", cfg.Env)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := database.NewGateway(cfg)
	defer gw.Close()
	db, err := gw.Conn(ctx)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable; rate limiting is per process and caching is off")
	} else {
		defer rdb.Close()
	}

	var pub service.EventPublisher
	if cfg.RabbitURL != "" {
		p, err := service.NewPublisher(cfg.RabbitURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable; events are not published")
		} else {
			defer p.Close()
			pub = p
		}
	}

	mail := mailer.New(cfg, log)

	var provider payment.Provider
	if cfg.OmiseSecretKey != "" {
		op, err := payment.NewOmiseProvider(cfg.OmisePublicKey, cfg.OmiseSecretKey, cfg.OmiseSourceType)
		if err != nil {
			return err
		}
		provider = op
	} else {
		provider = payment.Unconfigured{}
		log.Warn().Msg("OMISE_SECRET_KEY not set; checkout endpoints will fail")
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	e := newEcho(cfg, log)
	users := repository.NewUserRepo(db)
	admins := repository.NewAdminRepo(db)
	tokens := repository.NewTokenRepo(db)
	bookings := service.NewBookingService(db, pub, cfg.Currency, log)
	orders := service.NewOrderService(db, provider, pub, cfg.Currency, cfg.CheckoutReturnURL, log)
	env := handler.Env{Production: cfg.IsProduction(), Log: log}

	router.Register(e, router.Handlers{
		Health:    &handler.HealthHandler{DB: db, Redis: rdb},
		Auth:      handler.NewAuthHandler(env, cfg, users, tokens, mail),
		AdminAuth: handler.NewAdminAuthHandler(env, cfg, admins),
		Bookings:  handler.NewBookingHandler(env, bookings),
		Sessions:  handler.NewSessionHandler(env, repository.NewSessionRepo(db)),
		Products:  handler.NewProductHandler(env, repository.NewProductRepo(db)),
		Orders:    handler.NewOrderHandler(env, orders),
		Payments:  handler.NewPaymentHandler(env, orders),
		Slots:     handler.NewSlotHandler(env, repository.NewSlotRepo(db)),
		Enquiries: handler.NewEnquiryHandler(env, repository.NewEnquiryRepo(db)),
		Events:    handler.NewEventHandler(env, repository.NewEventRepo(db)),
		Blogs:     handler.NewBlogHandler(env, repository.NewBlogRepo(db)),
		Users:     handler.NewAdminUserHandler(env, users),
	}, router.Options{
		JWTSecret:      cfg.JWTSecret,
		Resolver:       middleware.RepoResolver{Users: users, Admins: admins},
		Redis:          rdb,
		RateLimit:      config.LoadRateLimitConfig(),
		Cache:          config.LoadCacheConfig(),
		MetricsEnabled: cfg.MetricsEnabled,
	})

	sched, err := jobs.New(cfg.TokenSweepSpec, tokens, log)
	if err != nil {
		return err
	}
	sched.Start()

	consumerDone := make(chan struct{})
	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, mail, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("mail consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	srvErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", cfg.DBDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sched.Stop(shutdownCtx)
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
	}
	return nil
}

func newEcho(cfg config.Config, log *zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(cfg.IsProduction(), log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(logging.RequestLogger(log))
	if cfg.MetricsEnabled {
		e.Use(middleware.Metrics())
	}
	return e
}
