// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"fmt"
	"html/template"
	"unicode/utf8"

	"sharemeow/internal/markdown"
)

// Built-in template names.
const (
	NameHelloWorld  = "HelloWorld"
	NameQuote       = "Quote"
	NameCodeSnippet = "CodeSnippet"
)

// Parameter length limits.
const (
	maxMessageLen = 280
	maxQuoteLen   = 600
	maxAuthorLen  = 120
	maxCodeLen    = 4_000
)

// DefaultFactories returns the built-in templates keyed by name.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		NameHelloWorld:  NewHelloWorld,
		NameQuote:       NewQuote,
		NameCodeSnippet: NewCodeSnippet,
	}
}

// HelloWorld renders a single centered message.
//
// Parameters: message (required).
type HelloWorld struct {
	base
	message string
}

// NewHelloWorld builds a HelloWorld template.
func NewHelloWorld(params Params) (Template, error) {
	t := &HelloWorld{base: newBase(NameHelloWorld, params, 800, 90, "styles/hello_world.css")}

	msg, err := t.require("message")
	if err != nil {
		return nil, err
	}
	if err := maxLen(t.name, "message", msg, maxMessageLen); err != nil {
		return nil, err
	}
	t.message = msg
	return t, nil
}

// HTML renders the message page.
func (t *HelloWorld) HTML() (string, error) {
	return renderPage("hello_world", pageData{
		Title:  t.message,
		Width:  t.width,
		Fields: map[string]string{"message": t.message},
	})
}

// Quote renders a pull quote with attribution. The quote text accepts
// Markdown.
//
// Parameters: quote (required), author (required), source (optional).
type Quote struct {
	base
	quote  string
	author string
	source string
}

// NewQuote builds a Quote template.
func NewQuote(params Params) (Template, error) {
	t := &Quote{base: newBase(NameQuote, params, 1024, 90, "styles/quote.css")}

	quote, err := t.require("quote")
	if err != nil {
		return nil, err
	}
	author, err := t.require("author")
	if err != nil {
		return nil, err
	}
	if err := maxLen(t.name, "quote", quote, maxQuoteLen); err != nil {
		return nil, err
	}
	if err := maxLen(t.name, "author", author, maxAuthorLen); err != nil {
		return nil, err
	}

	t.quote = quote
	t.author = author
	t.source = t.params["source"]
	return t, nil
}

// HTML renders the quote page.
func (t *Quote) HTML() (string, error) {
	rich, err := markdown.ToHTML(t.quote)
	if err != nil {
		return "", fmt.Errorf("quote markdown: %w", err)
	}
	return renderPage("quote", pageData{
		Title: t.author,
		Width: t.width,
		Fields: map[string]string{
			"author": t.author,
			"source": t.source,
		},
		// Sanitized by markdown.ToHTML.
		Rich: map[string]template.HTML{"quote": template.HTML(rich)},
	})
}

// CodeSnippet renders syntax-highlighted source code.
//
// Parameters: code (required), language (optional, guessed when empty),
// title (optional).
type CodeSnippet struct {
	base
	code     string
	language string
	title    string
}

// NewCodeSnippet builds a CodeSnippet template.
func NewCodeSnippet(params Params) (Template, error) {
	t := &CodeSnippet{base: newBase(NameCodeSnippet, params, 1200, 95, "styles/code_snippet.css")}

	code, err := t.require("code")
	if err != nil {
		return nil, err
	}
	if err := maxLen(t.name, "code", code, maxCodeLen); err != nil {
		return nil, err
	}

	t.code = code
	t.language = t.params["language"]
	t.title = t.params["title"]
	return t, nil
}

// HTML renders the snippet page.
func (t *CodeSnippet) HTML() (string, error) {
	highlighted, err := markdown.Highlight(t.code, t.language)
	if err != nil {
		return "", fmt.Errorf("highlight code: %w", err)
	}
	title := t.title
	if title == "" {
		title = "snippet"
	}
	return renderPage("code_snippet", pageData{
		Title: title,
		Width: t.width,
		Fields: map[string]string{
			"title":    t.title,
			"language": t.language,
		},
		Rich: map[string]template.HTML{"code": template.HTML(highlighted)},
	})
}

func maxLen(tmpl, field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &ValidationError{
			Template: tmpl,
			Field:    field,
			Reason:   fmt.Sprintf("is too long (max %d characters)", limit),
		}
	}
	return nil
}
