// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts user-supplied Markdown into HTML that is safe to
// embed in an image template. Conversion uses goldmark; the output is then
// passed through a bluemonday policy, because template parameters arrive
// from the public internet and may carry arbitrary markup.
package markdown

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// DefaultCodeStyle is the chroma style used for code blocks.
const DefaultCodeStyle = "monokai"

// md converts inline rich text. Raw HTML is never passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.Typographer, // Smart quotes and dashes
	),
)

// code renders fenced code blocks with inline-styled syntax highlighting.
var code = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(
			highlighting.WithStyle(DefaultCodeStyle),
			highlighting.WithGuessLanguage(true),
		),
	),
)

var (
	policyOnce sync.Once
	textPolicy *bluemonday.Policy
	codePolicy *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		text := bluemonday.StrictPolicy()
		text.AllowElements("p", "br", "em", "strong", "del", "code",
			"blockquote", "ul", "ol", "li")
		textPolicy = text

		cp := bluemonday.StrictPolicy()
		cp.AllowElements("pre", "code", "span")
		cp.AllowStyles("color", "background-color", "font-weight",
			"font-style", "text-decoration", "display").Globally()
		codePolicy = cp
	})
	return textPolicy, codePolicy
}

// ToHTML converts Markdown source into sanitized HTML. Only basic inline
// formatting, paragraphs, lists and block quotes survive.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	text, _ := policies()
	return strings.TrimSpace(text.Sanitize(buf.String())), nil
}

// Highlight renders source code as a syntax-highlighted <pre> block. An
// empty language lets chroma guess.
func Highlight(source, language string) (string, error) {
	fence := codeFence(source)

	var in strings.Builder
	in.WriteString(fence)
	in.WriteString(strings.TrimSpace(language))
	in.WriteByte('\n')
	in.WriteString(strings.TrimRight(source, "\n"))
	in.WriteByte('\n')
	in.WriteString(fence)
	in.WriteByte('\n')

	var buf bytes.Buffer
	if err := code.Convert([]byte(in.String()), &buf); err != nil {
		return "", err
	}
	_, cp := policies()
	return strings.TrimSpace(cp.Sanitize(buf.String())), nil
}

// codeFence returns a backtick fence longer than any backtick run in source.
func codeFence(source string) string {
	longest, run := 0, 0
	for _, r := range source {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
