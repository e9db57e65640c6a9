// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/event-registration/internal/config"
	"github.com/Shivanand-hulikatti/event-registration/internal/database"
	"github.com/Shivanand-hulikatti/event-registration/internal/handler"
	"github.com/Shivanand-hulikatti/event-registration/internal/logging"
	"github.com/Shivanand-hulikatti/event-registration/internal/notify"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/event-registration/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg      config.Config
	logLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "eventreg",
		Short: "Event registration API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (trace, debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations for the configured storage driver and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), logging.Component("storage"))
			if err != nil {
				return err
			}
			log.Info().Str("driver", cfg.StorageDriver).Msg("migrations applied")
			return store.Close()
		},
	})
	return rootCmd
}

// openStore opens the configured backend and brings its schema up to date.
func openStore(ctx context.Context, logger zerolog.Logger) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		return postgres.New(pool), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openPublisher() (notify.Publisher, func() error, error) {
	if !cfg.AMQP.Enabled() {
		return notify.Nop{}, func() error { return nil }, nil
	}
	producer := notify.NewProducer(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err := producer.Open(); err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: %w", err)
	}
	return producer, producer.Close, nil
}

func serve(ctx context.Context) error {
	// ── 1. Open storage ─────────────────────────────────────────────────
	store, err := openStore(ctx, logging.Component("storage"))
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("driver", cfg.StorageDriver).Msg("storage ready")

	publisher, closePublisher, err := openPublisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	// ── 2. Wire up layers ───────────────────────────────────────────────
	svcLog := logging.Component("service")
	eventSvc := service.NewEventService(store, store,
		service.WithPublisher(publisher),
		service.WithLogger(svcLog),
	)
	userSvc := service.NewUserService(store, service.WithLogger(svcLog))
	router := handler.NewRouter(eventSvc, userSvc, logging.Component("http"))

	// ── 3. Start server with graceful shutdown ──────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Block until SIGINT, SIGTERM or a server failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
