package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sharemeow/internal/resilience"
)

func TestArgs(t *testing.T) {
	w := NewWKHTMLToImage("", 0)

	tests := []struct {
		name string
		job  Job
		want []string
	}{
		{
			name: "full job",
			job:  Job{Zoom: 2, Width: 300, Quality: 100, Format: "jpg"},
			want: []string{"--quiet", "--format", "jpg", "--quality", "100", "--width", "300", "--zoom", "2", "-", "-"},
		},
		{
			name: "defaults",
			job:  Job{},
			want: []string{"--quiet", "--format", "jpg", "--zoom", "2", "-", "-"},
		},
		{
			name: "fractional zoom and png",
			job:  Job{Zoom: 1.5, Width: 640, Format: "png"},
			want: []string{"--quiet", "--format", "png", "--width", "640", "--zoom", "1.5", "-", "-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, w.Args(tt.job)); diff != "" {
				t.Errorf("Args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewWKHTMLToImageDefaultBinary(t *testing.T) {
	if w := NewWKHTMLToImage("", 0); w.binary != DefaultBinary {
		t.Errorf("binary: got %q, want %q", w.binary, DefaultBinary)
	}
}

func TestInjectStylesheets(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		sheets []string
		want   string
	}{
		{
			name:   "no sheets",
			html:   "<html><head></head></html>",
			sheets: nil,
			want:   "<html><head></head></html>",
		},
		{
			name:   "before closing head",
			html:   "<html><head><title>x</title></head><body></body></html>",
			sheets: []string{"body{color:red}"},
			want:   "<html><head><title>x</title><style>body{color:red}</style>\n</head><body></body></html>",
		},
		{
			name:   "uppercase head",
			html:   "<HTML><HEAD></HEAD></HTML>",
			sheets: []string{"a{}"},
			want:   "<HTML><HEAD><style>a{}</style>\n</HEAD></HTML>",
		},
		{
			name:   "no head",
			html:   "<p>hi</p>",
			sheets: []string{"p{}"},
			want:   "<head>\n<style>p{}</style>\n</head>\n<p>hi</p>",
		},
		{
			name:   "blank sheets skipped",
			html:   "<head></head>",
			sheets: []string{"  ", ""},
			want:   "<head></head>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InjectStylesheets(tt.html, tt.sheets); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeTool writes an executable shell script that stands in for
// wkhtmltoimage.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "wkhtmltoimage")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestRenderReadsStdout(t *testing.T) {
	// Echo stdin back so the test can see the injected stylesheet.
	bin := fakeTool(t, "cat\n")
	w := NewWKHTMLToImage(bin, 5*time.Second)

	out, err := w.Render(context.Background(), Job{
		HTML:        "<html><head></head><body>hi</body></html>",
		Stylesheets: []string{"body{}"},
		Width:       300,
		Quality:     100,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "<style>body{}</style>") {
		t.Errorf("stylesheet not delivered on stdin: %q", out)
	}
}

func TestRenderFailureIncludesStderr(t *testing.T) {
	bin := fakeTool(t, "echo 'Exit with code 1 due to network error' >&2\nexit 1\n")
	w := NewWKHTMLToImage(bin, 5*time.Second)

	_, err := w.Render(context.Background(), Job{HTML: "<p>x</p>"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "network error") {
		t.Errorf("error should carry stderr, got %v", err)
	}
}

func TestRenderEmptyOutput(t *testing.T) {
	bin := fakeTool(t, "cat >/dev/null\n")
	w := NewWKHTMLToImage(bin, 5*time.Second)

	_, err := w.Render(context.Background(), Job{HTML: "<p>x</p>"})
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("expected ErrEmptyOutput, got %v", err)
	}
}

func TestRenderMissingBinary(t *testing.T) {
	w := NewWKHTMLToImage(filepath.Join(t.TempDir(), "does-not-exist"), time.Second)
	if _, err := w.Render(context.Background(), Job{HTML: "x"}); err == nil {
		t.Error("expected error for missing binary")
	}
}

type stubRenderer struct {
	calls int
	err   error
	errs  []error // when set, call i returns errs[i]
}

func (s *stubRenderer) Render(_ context.Context, _ Job) ([]byte, error) {
	s.calls++
	err := s.err
	if len(s.errs) > 0 {
		err = s.errs[(s.calls-1)%len(s.errs)]
	}
	if err != nil {
		return nil, err
	}
	return []byte("image"), nil
}

func TestWithBreaker(t *testing.T) {
	stub := &stubRenderer{err: errors.New("tool crashed")}
	r := WithBreaker(stub, resilience.NewBreaker("renderer", 2, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := r.Render(context.Background(), Job{}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := r.Render(context.Background(), Job{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("inner renderer calls: got %d, want 2", stub.calls)
	}
}

func TestWithBreakerPassesOutput(t *testing.T) {
	r := WithBreaker(&stubRenderer{}, resilience.NewBreaker("renderer", 1, time.Minute))
	out, err := r.Render(context.Background(), Job{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(out) != "image" {
		t.Errorf("output: got %q, want %q", out, "image")
	}
}

func TestWithBreakerIgnoresCancellation(t *testing.T) {
	stub := &stubRenderer{err: context.Canceled}
	b := resilience.NewBreaker("renderer", 1, time.Minute)
	r := WithBreaker(stub, b)

	for i := 0; i < 3; i++ {
		if _, err := r.Render(context.Background(), Job{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}
	if b.State() != resilience.StateClosed {
		t.Errorf("breaker state: got %v, want closed", b.State())
	}
}

func TestWithBreakerCancellationIsNeutral(t *testing.T) {
	crash := errors.New("tool crashed")
	stub := &stubRenderer{errs: []error{crash, context.Canceled, crash}}
	b := resilience.NewBreaker("renderer", 2, time.Minute)
	r := WithBreaker(stub, b)

	for i := 0; i < 3; i++ {
		_, _ = r.Render(context.Background(), Job{})
	}
	if b.State() != resilience.StateOpen {
		t.Errorf("breaker state after crash, cancel, crash: got %v, want open", b.State())
	}
}

func TestWithBreakerCancelledTrialKeepsHalfOpen(t *testing.T) {
	crash := errors.New("tool crashed")
	stub := &stubRenderer{errs: []error{crash, context.Canceled}}
	b := resilience.NewBreaker("renderer", 1, 0)
	r := WithBreaker(stub, b)

	if _, err := r.Render(context.Background(), Job{}); !errors.Is(err, crash) {
		t.Fatalf("first call: expected crash, got %v", err)
	}
	if _, err := r.Render(context.Background(), Job{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("trial call: expected context.Canceled, got %v", err)
	}
	if b.State() != resilience.StateHalfOpen {
		t.Errorf("breaker state after cancelled trial call: got %v, want half-open", b.State())
	}
}
