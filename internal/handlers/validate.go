package handlers

import (
	"fmt"
	"unicode/utf8"

	"sharemeow/internal/templates"
)

// Limits for image request bodies. Templates enforce their own per-field
// limits on top of these.
const (
	maxBodyBytes   = 64 << 10
	maxParams      = 32
	maxParamKeyLen = 64
	maxParamValLen = 8_000
)

// validateParams checks the shape of a parameter set and returns the first
// problem found, or "".
func validateParams(params templates.Params) string {
	if len(params) == 0 {
		return "Request body must be a JSON object of parameters."
	}
	if len(params) > maxParams {
		return fmt.Sprintf("Too many parameters (max %d).", maxParams)
	}
	for k, v := range params {
		if k == "" {
			return "Parameter names must not be empty."
		}
		if utf8.RuneCountInString(k) > maxParamKeyLen {
			return fmt.Sprintf("Parameter names must be at most %d characters.", maxParamKeyLen)
		}
		if utf8.RuneCountInString(v) > maxParamValLen {
			return fmt.Sprintf("Parameter %q is too long (max %d characters).", k, maxParamValLen)
		}
	}
	return ""
}
