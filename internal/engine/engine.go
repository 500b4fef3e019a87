// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine generates images on demand. It resolves a template from
// request parameters, and only when the template's cache key is unknown does
// it render the HTML, upload the result and remember the public URL.
// Repeated requests with identical parameters reuse the stored URL.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"sharemeow/internal/cache"
	"sharemeow/internal/models"
	"sharemeow/internal/observe"
	"sharemeow/internal/renderer"
	"sharemeow/internal/templates"
)

// Uploader publishes rendered bytes under a filename and returns their
// public URL.
type Uploader interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// Recorder persists a record of each freshly generated image.
type Recorder interface {
	Record(ctx context.Context, g *models.GeneratedImage) error
}

// DefaultTimeout bounds a generation when Options.Timeout is unset.
const DefaultTimeout = 2 * time.Minute

// Options wires an Engine's collaborators. Recorder and Metrics are optional.
type Options struct {
	Registry *templates.Registry
	Renderer renderer.Renderer
	Uploader Uploader
	Cache    cache.Cache
	TTL      time.Duration // 0 keeps entries until the backend evicts them
	Timeout  time.Duration // bounds one render and upload; 0 uses DefaultTimeout
	Recorder Recorder
	Metrics  *observe.Metrics
}

// Engine turns parameter sets into public image URLs.
type Engine struct {
	registry *templates.Registry
	renderer renderer.Renderer
	uploader Uploader
	cache    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	recorder Recorder
	metrics  *observe.Metrics
	group    singleflight.Group
}

// New creates an Engine. Registry, Renderer, Uploader and Cache are required.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Registry == nil:
		return nil, fmt.Errorf("engine: registry is required")
	case opts.Renderer == nil:
		return nil, fmt.Errorf("engine: renderer is required")
	case opts.Uploader == nil:
		return nil, fmt.Errorf("engine: uploader is required")
	case opts.Cache == nil:
		return nil, fmt.Errorf("engine: cache is required")
	}

	m := opts.Metrics
	if m == nil {
		m = observe.NopMetrics()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Engine{
		registry: opts.Registry,
		renderer: opts.Renderer,
		uploader: opts.Uploader,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		timeout:  timeout,
		recorder: opts.Recorder,
		metrics:  m,
	}, nil
}

// Templates returns the names of all registered templates.
func (e *Engine) Templates() []string {
	return e.registry.Names()
}

// Image is a resolved generation request.
type Image struct {
	engine   *Engine
	template templates.Template
}

// NewImage resolves params to a template. Unknown template names fail with
// *templates.NotImplementedError and missing fields with
// *templates.ValidationError.
func (e *Engine) NewImage(params templates.Params) (*Image, error) {
	tmpl, err := e.registry.Resolve(params)
	if err != nil {
		return nil, err
	}
	return &Image{engine: e, template: tmpl}, nil
}

// Template returns the resolved template.
func (img *Image) Template() templates.Template {
	return img.template
}

// CacheKey returns the key the image URL is stored under.
func (img *Image) CacheKey() string {
	return img.template.CacheKey()
}

// GenerateAndStore returns the public URL of the image, rendering and
// uploading it only if its cache key has not been seen before.
func (img *Image) GenerateAndStore(ctx context.Context) (string, error) {
	e := img.engine
	key := img.CacheKey()

	if url, ok := e.lookup(ctx, key); ok {
		e.metrics.CacheHits.Add(ctx, 1, templateAttr(img.template))
		return url, nil
	}

	ch := e.group.DoChan(key, func() (any, error) {
		// The flight is shared, so it must not die with the caller that
		// happened to start it.
		fctx := context.WithoutCancel(ctx)
		if e.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, e.timeout)
			defer cancel()
		}

		// Another flight may have finished between the lookup and DoChan.
		if url, ok := e.lookup(fctx, key); ok {
			return url, nil
		}
		e.metrics.CacheMisses.Add(fctx, 1, templateAttr(img.template))
		return e.generate(fctx, img.template)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// lookup reads the cache, treating read errors as misses.
func (e *Engine) lookup(ctx context.Context, key string) (string, bool) {
	val, found, err := e.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("image cache read failed", "key", key, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}
	return string(val), true
}

func (e *Engine) generate(ctx context.Context, tmpl templates.Template) (string, error) {
	attrs := templateAttr(tmpl)
	key := tmpl.CacheKey()

	job, err := BuildJob(tmpl)
	if err != nil {
		e.fail(ctx, tmpl, "build")
		return "", err
	}

	start := time.Now()
	data, err := e.renderer.Render(ctx, job)
	elapsed := time.Since(start)
	if err != nil {
		e.fail(ctx, tmpl, "render")
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	e.metrics.Renders.Add(ctx, 1, attrs)
	e.metrics.RenderDuration.Record(ctx, elapsed.Seconds(), attrs)
	e.metrics.ImageBytes.Record(ctx, int64(len(data)), attrs)

	filename := tmpl.Filename()
	url, err := e.uploader.Store(ctx, filename, data)
	if err != nil {
		e.fail(ctx, tmpl, "upload")
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	e.metrics.Uploads.Add(ctx, 1, attrs)

	if err := e.cache.Set(ctx, key, []byte(url), e.ttl); err != nil {
		slog.Warn("image cache write failed", "key", key, "error", err)
	}

	if e.recorder != nil {
		rec := &models.GeneratedImage{
			Template:  tmpl.Name(),
			CacheKey:  key,
			Filename:  filename,
			URL:       url,
			SizeBytes: int64(len(data)),
			RenderMS:  elapsed.Milliseconds(),
		}
		if err := e.recorder.Record(ctx, rec); err != nil {
			slog.Warn("record generated image failed", "key", key, "error", err)
		}
	}

	slog.Info("image generated",
		"template", tmpl.Name(),
		"key", key,
		"bytes", len(data),
		"render_ms", elapsed.Milliseconds(),
	)
	return url, nil
}

func (e *Engine) fail(ctx context.Context, tmpl templates.Template, stage string) {
	e.metrics.Failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", tmpl.Name()),
		attribute.String("stage", stage),
	))
}

// BuildJob assembles the render job for a template: its HTML and stylesheet,
// the template's width and quality, at zoom 2 in JPEG format.
func BuildJob(tmpl templates.Template) (renderer.Job, error) {
	html, err := tmpl.HTML()
	if err != nil {
		return renderer.Job{}, fmt.Errorf("build %s html: %w", tmpl.Name(), err)
	}

	var sheets []string
	if p := tmpl.Stylesheet(); p != "" {
		css, err := templates.ReadStylesheet(p)
		if err != nil {
			return renderer.Job{}, err
		}
		sheets = append(sheets, css)
	}

	return renderer.Job{
		HTML:        html,
		Stylesheets: sheets,
		Zoom:        renderer.DefaultZoom,
		Width:       tmpl.ImageWidth(),
		Quality:     tmpl.ImageQuality(),
		Format:      renderer.DefaultFormat,
	}, nil
}

func templateAttr(tmpl templates.Template) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("template", tmpl.Name()))
}
