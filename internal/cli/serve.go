// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sharemeow/internal/handlers"
	"sharemeow/internal/middleware"
	"sharemeow/internal/router"
	"sharemeow/internal/signing"
)

// shutdownGrace is how long in-flight requests get to finish.
const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(cfg, os.Stdout))

		slog.Info("configuration loaded",
			"env", cfg.Env,
			"addr", cfg.Addr(),
			"metrics", cfg.MetricsExporter,
		)

		proxies, err := cfg.TrustedProxyPrefixes()
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		var signer handlers.TokenSigner
		if cfg.SigningSecret != "" {
			if signer, err = signing.New(cfg.SigningSecret); err != nil {
				a.close(context.Background())
				return err
			}
		} else {
			slog.Warn("SIGNING_SECRET not set, signed image urls disabled")
		}
		if cfg.APIKey == "" {
			slog.Warn("API_KEY not set, /v1/images endpoints disabled")
		}

		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		limiter.TrustProxies(proxies)
		defer limiter.Stop()

		r := router.New(router.Options{
			Images:  handlers.NewImages(a.engine, signer, cfg.BaseURL),
			APIKey:  cfg.APIKey,
			Limiter: limiter,
			Metrics: a.metrics.Handler,
		})

		// WriteTimeout must cover a full render plus the upload.
		srv := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: cfg.RenderTimeout + 30*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server starting", "addr", cfg.Addr())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			a.close(context.Background())
			return err
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		err = srv.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		if err != nil {
			return err
		}

		slog.Info("server stopped gracefully")
		return nil
	},
}
