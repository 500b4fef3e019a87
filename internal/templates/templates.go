// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package templates defines the image templates that sharemeow can render.
// A template turns a set of string parameters into an HTML document plus the
// rendering options (width, quality, stylesheet) and the identity of the
// resulting image (cache key and filename). Everything a template returns is
// derived from its parameters alone, so two templates built from the same
// parameters always describe the same image.
package templates

import (
	"fmt"
	"maps"
)

// ParamTemplate is the parameter that selects which template to build.
const ParamTemplate = "template"

// Params holds the named fields of an image request, including the
// "template" discriminator.
type Params map[string]string

// Name returns the value of the template discriminator.
func (p Params) Name() string {
	return p[ParamTemplate]
}

// Clone returns a copy of p. Templates keep a clone so callers cannot mutate
// parameters after construction.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Template describes one renderable image.
type Template interface {
	// Name is the registry name of the template (e.g. "HelloWorld").
	Name() string
	// HTML returns the complete HTML document to rasterize.
	HTML() (string, error)
	// Filename is the object name the rendered image is stored under.
	Filename() string
	// ImageWidth is the viewport width in CSS pixels.
	ImageWidth() int
	// ImageQuality is the JPEG quality, 1-100.
	ImageQuality() int
	// Stylesheet is the path of the template's CSS within the embedded
	// assets. Use ReadStylesheet to load it.
	Stylesheet() string
	// CacheKey identifies the rendered image. Equal parameters yield
	// equal keys.
	CacheKey() string
}

// Factory builds a template from request parameters.
type Factory func(Params) (Template, error)

// NotImplementedError is returned when no template is registered under the
// requested name.
type NotImplementedError struct {
	Name string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("You must implement a %s template", e.Name)
}

// ValidationError reports a missing or invalid template parameter.
type ValidationError struct {
	Template string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	return fmt.Sprintf("%s template: parameter %q %s", e.Template, e.Field, reason)
}

// base carries the state shared by every built-in template.
type base struct {
	name       string
	params     Params
	width      int
	quality    int
	stylesheet string
}

func newBase(name string, params Params, width, quality int, stylesheet string) base {
	return base{
		name:       name,
		params:     params.Clone(),
		width:      width,
		quality:    quality,
		stylesheet: stylesheet,
	}
}

func (b *base) Name() string       { return b.name }
func (b *base) ImageWidth() int    { return b.width }
func (b *base) ImageQuality() int  { return b.quality }
func (b *base) Stylesheet() string { return b.stylesheet }

// CacheKey hashes the full parameter set, so any parameter change (including
// ones the template ignores) produces a new key.
func (b *base) CacheKey() string {
	return CacheKey(b.name, b.params)
}

// Filename is the cache key with a .jpg extension.
func (b *base) Filename() string {
	return b.CacheKey() + ".jpg"
}

// require returns the named parameter or a ValidationError if it is blank.
func (b *base) require(field string) (string, error) {
	v := b.params[field]
	if isBlank(v) {
		return "", &ValidationError{Template: b.name, Field: field}
	}
	return v, nil
}
