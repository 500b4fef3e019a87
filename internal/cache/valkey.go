// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// valkey.go provides the Valkey-backed (L2) store for image URLs. Entries
// survive restarts and are shared by every sharemeow instance pointing at
// the same Valkey.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces image entries in Valkey.
const DefaultKeyPrefix = "image:"

// ConnectValkey creates a Valkey client and verifies the connection with a ping.
func ConnectValkey(host, port, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port), "db", db)
	return client, nil
}

// Valkey stores cache entries in Valkey under a key prefix.
type Valkey struct {
	client redis.UniversalClient
	prefix string
}

// NewValkey creates a Valkey cache. An empty prefix uses DefaultKeyPrefix.
func NewValkey(client redis.UniversalClient, prefix string) *Valkey {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Valkey{client: client, prefix: prefix}
}

// Get retrieves the value for key.
func (v *Valkey) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := v.client.Get(ctx, v.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A zero ttl keeps the entry until it is
// evicted or deleted.
func (v *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := v.client.Set(ctx, v.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (v *Valkey) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, v.prefix+key).Err(); err != nil {
		return fmt.Errorf("valkey delete %s: %w", key, err)
	}
	return nil
}

// InvalidateAll removes every entry under the prefix by scanning in
// batches. Returns the number of keys deleted.
func (v *Valkey) InvalidateAll(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := v.client.Scan(ctx, cursor, v.prefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("valkey scan: %w", err)
		}
		if len(keys) > 0 {
			if err := v.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("valkey bulk delete: %w", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("image cache cleared", "deleted", deleted)
	}
	return deleted, nil
}
