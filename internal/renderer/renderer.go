// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package renderer rasterizes HTML documents into images using an external
// headless rendering tool. The default backend shells out to wkhtmltoimage,
// feeding the document on stdin and reading the encoded image from stdout.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"sharemeow/internal/resilience"
)

// Defaults applied to every job by the generation engine.
const (
	DefaultZoom   = 2
	DefaultFormat = "jpg"
)

// DefaultBinary is the rendering tool looked up on PATH.
const DefaultBinary = "wkhtmltoimage"

// ErrEmptyOutput is returned when the tool exits cleanly without output.
var ErrEmptyOutput = errors.New("renderer produced no output")

// Job describes a single HTML-to-image conversion.
type Job struct {
	HTML        string
	Stylesheets []string // CSS contents, injected into <head>
	Zoom        float64
	Width       int
	Quality     int
	Format      string // "jpg" or "png"
}

// Renderer converts HTML to encoded image bytes.
type Renderer interface {
	Render(ctx context.Context, job Job) ([]byte, error)
}

// WKHTMLToImage renders jobs with the wkhtmltoimage binary.
type WKHTMLToImage struct {
	binary  string
	timeout time.Duration
}

// NewWKHTMLToImage creates a renderer that invokes binary (DefaultBinary if
// empty). A zero timeout means the context alone bounds each run.
func NewWKHTMLToImage(binary string, timeout time.Duration) *WKHTMLToImage {
	if binary == "" {
		binary = DefaultBinary
	}
	return &WKHTMLToImage{binary: binary, timeout: timeout}
}

// Render runs the tool once for job.
func (w *WKHTMLToImage) Render(ctx context.Context, job Job) ([]byte, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, w.binary, w.Args(job)...)
	cmd.Stdin = strings.NewReader(InjectStylesheets(job.HTML, job.Stylesheets))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", w.binary, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", w.binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", w.binary, err)
	}

	if stdout.Len() == 0 {
		return nil, ErrEmptyOutput
	}

	slog.Debug("image rendered",
		"width", job.Width,
		"quality", job.Quality,
		"bytes", stdout.Len(),
		"duration", time.Since(start).String(),
	)
	return stdout.Bytes(), nil
}

// Args builds the command line for job. Input and output are both "-"
// (stdin and stdout).
func (w *WKHTMLToImage) Args(job Job) []string {
	format := job.Format
	if format == "" {
		format = DefaultFormat
	}
	zoom := job.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}

	args := []string{"--quiet", "--format", format}
	if job.Quality > 0 {
		args = append(args, "--quality", strconv.Itoa(job.Quality))
	}
	if job.Width > 0 {
		args = append(args, "--width", strconv.Itoa(job.Width))
	}
	args = append(args, "--zoom", strconv.FormatFloat(zoom, 'f', -1, 64))
	return append(args, "-", "-")
}

// InjectStylesheets inserts each stylesheet as a <style> element right
// before </head>. Documents without a head get one prepended.
func InjectStylesheets(html string, sheets []string) string {
	if len(sheets) == 0 {
		return html
	}

	var styles strings.Builder
	for _, css := range sheets {
		if strings.TrimSpace(css) == "" {
			continue
		}
		styles.WriteString("<style>")
		styles.WriteString(css)
		styles.WriteString("</style>\n")
	}
	if styles.Len() == 0 {
		return html
	}

	idx := strings.Index(strings.ToLower(html), "</head>")
	if idx == -1 {
		return "<head>\n" + styles.String() + "</head>\n" + html
	}
	return html[:idx] + styles.String() + html[idx:]
}

// breaking guards a Renderer with a circuit breaker.
type breaking struct {
	next    Renderer
	breaker *resilience.Breaker
}

// WithBreaker wraps r so that repeated failures open b and further calls
// fail fast with resilience.ErrCircuitOpen.
func WithBreaker(r Renderer, b *resilience.Breaker) Renderer {
	return &breaking{next: r, breaker: b}
}

// Render counts tool failures against the breaker. Cancellations are the
// caller's doing and leave the breaker untouched.
func (r *breaking) Render(ctx context.Context, job Job) ([]byte, error) {
	var out []byte
	err := r.breaker.ExecuteIgnoring(func() error {
		var err error
		out, err = r.next.Render(ctx, job)
		return err
	}, isCancellation)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
