// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"sharemeow/internal/engine"
	"sharemeow/internal/renderer"
	"sharemeow/internal/resilience"
	"sharemeow/internal/signing"
	"sharemeow/internal/templates"
)

type stubRenderer struct{ err error }

func (s *stubRenderer) Render(context.Context, renderer.Job) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("jpeg"), nil
}

type stubUploader struct {
	mu    sync.Mutex
	calls int
}

func (s *stubUploader) Store(_ context.Context, filename string, _ []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "https://cdn.example.com/" + filename, nil
}

type stubCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *stubCache) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type testEnv struct {
	router   chi.Router
	images   *Images
	signer   *signing.Signer
	renderer *stubRenderer
	uploader *stubUploader
}

func newTestEnv(t *testing.T, withSigner bool) *testEnv {
	t.Helper()
	env := &testEnv{renderer: &stubRenderer{}, uploader: &stubUploader{}}

	eng, err := engine.New(engine.Options{
		Registry: templates.NewRegistry(templates.DefaultFactories()),
		Renderer: env.renderer,
		Uploader: env.uploader,
		Cache:    &stubCache{data: make(map[string][]byte)},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	var signer TokenSigner
	if withSigner {
		env.signer, err = signing.New("test-secret")
		if err != nil {
			t.Fatal(err)
		}
		signer = env.signer
	}
	env.images = NewImages(eng, signer, "https://img.example.com/")

	r := chi.NewRouter()
	r.Get("/v1/{token}/image.jpg", env.images.Render)
	r.Post("/v1/images", env.images.Create)
	r.Post("/v1/images/sign", env.images.Sign)
	r.Get("/v1/templates", env.images.Templates)
	env.router = r
	return env
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(http.MethodPost, "/v1/images", `{"template":"HelloWorld","message":"Hello, World"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body)
	}

	var resp imageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	key := templates.CacheKey("HelloWorld", templates.Params{"template": "HelloWorld", "message": "Hello, World"})
	want := imageResponse{
		ImageURL: "https://cdn.example.com/" + key + ".jpg",
		CacheKey: key,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	// A repeated request is served from cache.
	env.do(http.MethodPost, "/v1/images", `{"message":"Hello, World","template":"HelloWorld"}`)
	if env.uploader.calls != 1 {
		t.Errorf("uploads: got %d, want 1", env.uploader.calls)
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		renderErr  error
		wantStatus int
		wantError  string
	}{
		{"unknown template", `{"template":"Fake"}`, nil, http.StatusUnprocessableEntity, "You must implement a Fake template"},
		{"missing param", `{"template":"HelloWorld"}`, nil, http.StatusBadRequest, `parameter "message" is required`},
		{"not json", `template=HelloWorld`, nil, http.StatusBadRequest, "JSON object"},
		{"non-string values", `{"template":"HelloWorld","message":42}`, nil, http.StatusBadRequest, "JSON object"},
		{"empty object", `{}`, nil, http.StatusBadRequest, "JSON object"},
		{"render failure", `{"template":"HelloWorld","message":"hi"}`, errors.New("crash"), http.StatusBadGateway, "image generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			env.renderer.err = tt.renderErr

			rr := env.do(http.MethodPost, "/v1/images", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
			body := decodeBody(t, rr)
			if msg, _ := body["error"].(string); !strings.Contains(msg, tt.wantError) {
				t.Errorf("error: got %q, want it to contain %q", msg, tt.wantError)
			}
		})
	}
}

func TestCreateBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, false)
	body := `{"template":"HelloWorld","message":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	rr := env.do(http.MethodPost, "/v1/images", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rr.Code)
	}
}

func TestSignAndRender(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(http.MethodPost, "/v1/images/sign", `{"template":"Quote","quote":"Be **kind**","author":"Ada"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("sign status: got %d (body %s)", rr.Code, rr.Body)
	}
	signed, _ := decodeBody(t, rr)["url"].(string)
	if !strings.HasPrefix(signed, "https://img.example.com/v1/") || !strings.HasSuffix(signed, "/image.jpg") {
		t.Fatalf("signed url: got %q", signed)
	}
	if env.uploader.calls != 0 {
		t.Error("signing must not generate the image")
	}

	path := strings.TrimPrefix(signed, "https://img.example.com")
	rr = env.do(http.MethodGet, path, "")
	if rr.Code != http.StatusFound {
		t.Fatalf("render status: got %d, want 302 (body %s)", rr.Code, rr.Body)
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://cdn.example.com/quote-") {
		t.Errorf("Location: got %q", loc)
	}
	if rr.Header().Get("Cache-Control") != redirectMaxAge {
		t.Errorf("Cache-Control: got %q", rr.Header().Get("Cache-Control"))
	}

	// Fetching again redirects to the same image without another upload.
	rr = env.do(http.MethodGet, path, "")
	if rr.Header().Get("Location") != loc {
		t.Errorf("second Location: got %q, want %q", rr.Header().Get("Location"), loc)
	}
	if env.uploader.calls != 1 {
		t.Errorf("uploads: got %d, want 1", env.uploader.calls)
	}
}

func TestSignRejectsBadParams(t *testing.T) {
	env := newTestEnv(t, true)

	if rr := env.do(http.MethodPost, "/v1/images/sign", `{"template":"Fake"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown template: got %d, want 422", rr.Code)
	}
	if rr := env.do(http.MethodPost, "/v1/images/sign", `{"template":"Quote","quote":"x"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("missing author: got %d, want 400", rr.Code)
	}
}

func TestRenderRejectsBadToken(t *testing.T) {
	env := newTestEnv(t, true)

	other, _ := signing.New("other-secret")
	foreign, _ := other.Sign(templates.Params{"template": "HelloWorld", "message": "hi"})

	for _, token := range []string{"garbage", foreign} {
		rr := env.do(http.MethodGet, "/v1/"+token+"/image.jpg", "")
		if rr.Code != http.StatusForbidden {
			t.Errorf("token %q: got %d, want 403", token, rr.Code)
		}
	}
	if env.uploader.calls != 0 {
		t.Error("rejected tokens must not generate images")
	}
}

func TestRenderSignedUnknownTemplate(t *testing.T) {
	env := newTestEnv(t, true)

	token, err := env.signer.Sign(templates.Params{"template": "Retired"})
	if err != nil {
		t.Fatal(err)
	}
	rr := env.do(http.MethodGet, "/v1/"+token+"/image.jpg", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rr.Code)
	}
}

// brokenSigner verifies nothing and fails to sign.
type brokenSigner struct{}

func (brokenSigner) Sign(templates.Params) (string, error) {
	return "", errors.New("key material unavailable")
}

func (brokenSigner) Verify(string) (templates.Params, error) {
	return nil, signing.ErrInvalidToken
}

func TestSignFailureIsInternalError(t *testing.T) {
	env := newTestEnv(t, true)
	env.images.signer = brokenSigner{}

	rr := env.do(http.MethodPost, "/v1/images/sign", `{"template":"HelloWorld","message":"hi"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "could not sign url") {
		t.Errorf("body: got %q", rr.Body.String())
	}
	if env.uploader.calls != 0 {
		t.Error("signing must not generate images")
	}
}

func TestSignedEndpointsWithoutSigner(t *testing.T) {
	env := newTestEnv(t, false)

	if rr := env.do(http.MethodGet, "/v1/abc/image.jpg", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("render: got %d, want 503", rr.Code)
	}
	if rr := env.do(http.MethodPost, "/v1/images/sign", `{"template":"HelloWorld","message":"hi"}`); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("sign: got %d, want 503", rr.Code)
	}
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(http.MethodGet, "/v1/templates", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var body struct {
		Templates []string `json:"templates"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	want := []string{"CodeSnippet", "HelloWorld", "Quote"}
	if diff := cmp.Diff(want, body.Templates); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&templates.NotImplementedError{Name: "X"}, http.StatusUnprocessableEntity},
		{&templates.ValidationError{Template: "X", Field: "y"}, http.StatusBadRequest},
		{signing.ErrInvalidToken, http.StatusForbidden},
		{fmt.Errorf("render HelloWorld: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable},
		{errors.New("upload failed"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
