// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// image_log.go records every generated image in the database for audit and
// debugging purposes. Each entry captures which template produced the
// image, its cache key and where it was published.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sharemeow/internal/models"
)

// ImageLogStore handles generated image log operations.
type ImageLogStore struct {
	db *sql.DB
}

// NewImageLogStore creates a new ImageLogStore.
func NewImageLogStore(db *sql.DB) *ImageLogStore {
	return &ImageLogStore{db: db}
}

// imageColumns lists the columns selected in generated_images queries.
const imageColumns = `id, template, cache_key, filename, url, size_bytes, render_ms, created_at`

// scanImage scans a generated_images row from the result set.
func scanImage(scanner interface{ Scan(...any) error }) (*models.GeneratedImage, error) {
	var g models.GeneratedImage
	err := scanner.Scan(
		&g.ID, &g.Template, &g.CacheKey, &g.Filename, &g.URL,
		&g.SizeBytes, &g.RenderMS, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Record inserts a generated image and fills in its ID and CreatedAt.
func (s *ImageLogStore) Record(ctx context.Context, g *models.GeneratedImage) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO generated_images (template, cache_key, filename, url, size_bytes, render_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, g.Template, g.CacheKey, g.Filename, g.URL, g.SizeBytes, g.RenderMS,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("record generated image: %w", err)
	}
	return nil
}

// FindByCacheKey returns the most recent record for a cache key, or nil if
// the key was never generated.
func (s *ImageLogStore) FindByCacheKey(ctx context.Context, key string) (*models.GeneratedImage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+`
		FROM generated_images
		WHERE cache_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, key)
	g, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generated image: %w", err)
	}
	return g, nil
}

// Recent returns the most recently generated images, newest first.
func (s *ImageLogStore) Recent(ctx context.Context, limit int) ([]models.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM generated_images
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generated images: %w", err)
	}
	defer rows.Close()

	var items []models.GeneratedImage
	for rows.Next() {
		g, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generated image: %w", err)
		}
		items = append(items, *g)
	}
	return items, rows.Err()
}

// Count returns the total number of generated images.
func (s *ImageLogStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count generated images: %w", err)
	}
	return count, nil
}
