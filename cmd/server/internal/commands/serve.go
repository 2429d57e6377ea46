package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/logger"
	"github.com/wolfeidau/orgkeys/internal/provision"
	"github.com/wolfeidau/orgkeys/internal/server"
	"github.com/wolfeidau/orgkeys/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"ORGKEYS_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"ORGKEYS_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"ORGKEYS_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"ORGKEYS_CORS_ORIGINS"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"ORGKEYS_TRACING"`
	SampleRatio float64 `help:"trace sampling ratio" default:"1.0" env:"ORGKEYS_TRACE_SAMPLE_RATIO"`

	// Provisioning
	CleanupTimeout time.Duration `help:"time allowed to undo a failed provisioning" default:"30s" env:"ORGKEYS_CLEANUP_TIMEOUT"`
	AdminKeyName   string        `help:"issue an admin key with this name on startup and print it (useful with the memory store)" default:"" env:"ORGKEYS_BOOTSTRAP_ADMIN_KEY"`

	Store StoreFlags `embed:""`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "orgkeys-server", globals.Version, c.SampleRatio)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	records, closeStore, err := c.Store.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manager, err := credentials.NewManager(records, credentials.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential manager: %w", err)
	}

	orchestrator, err := provision.NewOrchestrator(records, manager, provision.Config{
		CleanupTimeout: c.CleanupTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if c.AdminKeyName != "" {
		key, err := manager.CreateAdminAPIKey(ctx, c.AdminKeyName)
		if err != nil {
			return fmt.Errorf("failed to create bootstrap admin key: %w", err)
		}
		log.Info().Str("key_id", key.KeyID.String()).Str("name", key.Name).Msg("Bootstrap admin key issued")
		// stdout only, raw keys never reach the log stream
		fmt.Fprintf(os.Stdout, "admin key: %s\n", key.RawKey)
	}

	handler := server.NewServer(orchestrator, manager, server.Config{
		CORSOrigins: c.CORSOrigins,
		Tracing:     c.Tracing,
	}).Handler(log)

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" && c.Key != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
