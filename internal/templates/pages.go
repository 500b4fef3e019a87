// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed assets/html/*.html assets/styles/*.css
var assets embed.FS

// pageData holds all variables available to a page template.
type pageData struct {
	Title     string
	Width     int
	BodyClass string
	Fields    map[string]string        // Raw parameters, escaped on output
	Rich      map[string]template.HTML // Pre-sanitized HTML fragments
}

var (
	pagesOnce sync.Once
	pages     map[string]*template.Template
	pagesErr  error
)

// loadPages parses every page template paired with the base layout.
func loadPages() (map[string]*template.Template, error) {
	pagesOnce.Do(func() {
		entries, err := fs.ReadDir(assets, "assets/html")
		if err != nil {
			pagesErr = fmt.Errorf("read embedded templates: %w", err)
			return
		}

		parsed := make(map[string]*template.Template)
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || name == "base.html" {
				continue
			}

			tmpl, err := template.New("base.html").ParseFS(
				assets, "assets/html/base.html", "assets/html/"+name,
			)
			if err != nil {
				pagesErr = fmt.Errorf("parse template %s: %w", name, err)
				return
			}
			parsed[strings.TrimSuffix(name, ".html")] = tmpl
		}
		pages = parsed
	})
	return pages, pagesErr
}

// renderPage executes the named page inside the base layout.
func renderPage(page string, data pageData) (string, error) {
	all, err := loadPages()
	if err != nil {
		return "", err
	}
	tmpl, ok := all[page]
	if !ok {
		return "", fmt.Errorf("page template %q not found", page)
	}
	if data.BodyClass == "" {
		data.BodyClass = "card"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", page, err)
	}
	return buf.String(), nil
}

// ReadStylesheet returns the contents of a stylesheet returned by
// Template.Stylesheet.
func ReadStylesheet(p string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("stylesheet %q: invalid path", p)
	}
	data, err := assets.ReadFile(path.Join("assets", clean))
	if err != nil {
		return "", fmt.Errorf("stylesheet %q: %w", p, err)
	}
	return string(data), nil
}
