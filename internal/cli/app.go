// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"sharemeow/internal/cache"
	"sharemeow/internal/config"
	"sharemeow/internal/database"
	"sharemeow/internal/engine"
	"sharemeow/internal/observe"
	"sharemeow/internal/renderer"
	"sharemeow/internal/resilience"
	"sharemeow/internal/storage"
	"sharemeow/internal/store"
	"sharemeow/internal/templates"
)

// app holds the wired services shared by serve and generate.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	metrics *observe.Provider
	valkey  *redis.Client
	memory  *cache.Memory
	db      *sql.DB
}

// newApp connects to every backing service and builds the engine. The
// caller must call close.
func newApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.metrics, err = observe.Setup(cfg.MetricsExporter)
	if err != nil {
		return nil, err
	}
	instruments, err := observe.NewMetrics(a.metrics.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	a.valkey, err = cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}
	a.memory, err = cache.NewMemory(cfg.CacheL1Bytes)
	if err != nil {
		return nil, err
	}
	urls := cache.NewTiered(a.memory, cache.NewValkey(a.valkey, cache.DefaultKeyPrefix), cfg.CacheL1TTL)

	s3, err := storage.New(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
		Prefix:    cfg.S3Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 storage: %w", err)
	}
	if s3 == nil {
		return nil, errors.New("s3 storage not configured: set S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}
	slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", s3.Bucket())

	breaker := resilience.NewBreaker("renderer", cfg.BreakerFailures, cfg.BreakerCooldown)
	render := renderer.WithBreaker(renderer.NewWKHTMLToImage(cfg.RendererBin, cfg.RenderTimeout), breaker)

	opts := engine.Options{
		Registry: templates.NewRegistry(templates.DefaultFactories()),
		Renderer: render,
		Uploader: s3,
		Cache:    urls,
		TTL:      cfg.CacheTTL,
		Timeout:  2 * cfg.RenderTimeout, // render, then upload
		Metrics:  instruments,
	}

	if cfg.DBEnabled() {
		a.db, err = database.Connect(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(a.db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		opts.Recorder = store.NewImageLogStore(a.db)
		slog.Info("generation log enabled", "host", cfg.DBHost, "db", cfg.DBName)
	} else {
		slog.Info("generation log disabled (POSTGRES_HOST not set)")
	}

	a.engine, err = engine.New(opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// close releases every service that was opened.
func (a *app) close(ctx context.Context) {
	if a.db != nil {
		a.db.Close()
	}
	if a.memory != nil {
		a.memory.Close()
	}
	if a.valkey != nil {
		a.valkey.Close()
	}
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
	}
}
