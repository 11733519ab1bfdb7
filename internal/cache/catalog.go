// Package cache keeps catalog lookups warm in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"recount/internal/domain"
)

const (
	codeKeyPrefix = "catalog:code:"
	termKeyPrefix = "catalog:term:"
)

// ErrMiss reports that no entry is cached under the key.
var ErrMiss = errors.New("cache miss")

// Catalog stores found catalog entries. Implementations never cache absence.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (domain.CatalogEntry, error)
	GetByTerm(ctx context.Context, term string) (domain.CatalogEntry, error)
	Put(ctx context.Context, term string, entry domain.CatalogEntry) error
	Invalidate(ctx context.Context, code string) error
}

type RedisCatalog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCatalog(client *redis.Client, ttl time.Duration) *RedisCatalog {
	return &RedisCatalog{client: client, ttl: ttl}
}

func CodeKey(code string) string { return codeKeyPrefix + code }

func TermKey(term string) string { return termKeyPrefix + strings.ToLower(strings.TrimSpace(term)) }

func (c *RedisCatalog) GetByCode(ctx context.Context, code string) (domain.CatalogEntry, error) {
	return c.get(ctx, CodeKey(code))
}

func (c *RedisCatalog) GetByTerm(ctx context.Context, term string) (domain.CatalogEntry, error) {
	return c.get(ctx, TermKey(term))
}

func (c *RedisCatalog) get(ctx context.Context, key string) (domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, ErrMiss
	}
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// Put stores entry under its code and, when term is set, under term.
func (c *RedisCatalog) Put(ctx context.Context, term string, entry domain.CatalogEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, CodeKey(entry.Code), raw, c.ttl)
	if strings.TrimSpace(term) != "" {
		pipe.Set(ctx, TermKey(term), raw, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops the code key. Term keys expire on their own.
func (c *RedisCatalog) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, CodeKey(code)).Err()
}
