// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GeneratedImage records one rendered and uploaded image. Rows are written
// on cache misses only, so the table lists each distinct image once per
// generation.
type GeneratedImage struct {
	ID        uuid.UUID `json:"id"`
	Template  string    `json:"template"`
	CacheKey  string    `json:"cache_key"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"size_bytes"`
	RenderMS  int64     `json:"render_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// HumanSize returns a human-readable file size string.
func (g *GeneratedImage) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case g.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(g.SizeBytes)/float64(mb))
	case g.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(g.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", g.SizeBytes)
	}
}
