// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sharemeow/internal/engine"
	"sharemeow/internal/middleware"
	"sharemeow/internal/resilience"
	"sharemeow/internal/signing"
	"sharemeow/internal/templates"
)

// redirectMaxAge is how long clients may cache an image redirect. Signed
// URLs always resolve to the same image, so this only bounds stale CDNs.
const redirectMaxAge = "public, max-age=86400"

// TokenSigner issues and checks the tokens carried by signed image URLs.
// *signing.Signer implements it.
type TokenSigner interface {
	Sign(params templates.Params) (string, error)
	Verify(token string) (templates.Params, error)
}

// Images groups the image generation endpoints.
type Images struct {
	engine  *engine.Engine
	signer  TokenSigner
	baseURL string
}

// NewImages creates a new Images handler group. signer may be nil, in which
// case the signed-URL endpoints answer 503.
func NewImages(eng *engine.Engine, signer TokenSigner, baseURL string) *Images {
	return &Images{
		engine:  eng,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// imageResponse is returned by Create.
type imageResponse struct {
	ImageURL string `json:"image_url"`
	CacheKey string `json:"cache_key"`
}

// Render verifies a signed token, generates the image it describes and
// redirects to it.
func (h *Images) Render(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "signed urls are not configured")
		return
	}

	params, err := h.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		slog.Info("signed image rejected", "error", err, "request_id", middleware.RequestIDFromCtx(r.Context()))
		writeError(w, http.StatusForbidden, "invalid image token")
		return
	}

	url, _, err := h.generate(r, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", redirectMaxAge)
	http.Redirect(w, r, url, http.StatusFound)
}

// Create generates an image from a JSON object of parameters and returns
// its public URL.
func (h *Images) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams(w, r)
	if !ok {
		return
	}

	url, key, err := h.generate(r, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imageResponse{ImageURL: url, CacheKey: key})
}

// Sign returns a signed GET URL for a parameter set. The template is
// resolved first so callers learn about bad parameters immediately rather
// than when the URL is fetched.
func (h *Images) Sign(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "signed urls are not configured")
		return
	}

	params, ok := decodeParams(w, r)
	if !ok {
		return
	}
	if _, err := h.engine.NewImage(params); err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.signer.Sign(params)
	if err != nil {
		slog.Error("sign image url failed",
			"error", err,
			"template", params.Name(),
			"request_id", middleware.RequestIDFromCtx(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "could not sign url")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": h.SignedURL(token)})
}

// SignedURL builds the public GET URL for a token.
func (h *Images) SignedURL(token string) string {
	return h.baseURL + "/v1/" + token + "/image.jpg"
}

// Templates lists the registered template names.
func (h *Images) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"templates": h.engine.Templates()})
}

func (h *Images) generate(r *http.Request, params templates.Params) (url, key string, err error) {
	img, err := h.engine.NewImage(params)
	if err != nil {
		return "", "", err
	}
	url, err = img.GenerateAndStore(r.Context())
	if err != nil {
		return "", "", err
	}
	return url, img.CacheKey(), nil
}

// fail maps an error to a status code and writes it.
func (h *Images) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("image request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
		)
		msg = "image generation failed"
	}
	writeError(w, status, msg)
}

// statusFor maps engine and template errors to HTTP status codes.
func statusFor(err error) int {
	var notImpl *templates.NotImplementedError
	var invalid *templates.ValidationError
	switch {
	case errors.As(err, &notImpl):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, signing.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// decodeParams reads a JSON object of string parameters. On failure it
// writes a 400 and returns false.
func decodeParams(w http.ResponseWriter, r *http.Request) (templates.Params, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var params templates.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Request body must be a JSON object of string parameters.")
		return nil, false
	}
	if msg := validateParams(params); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return nil, false
	}
	return params, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
