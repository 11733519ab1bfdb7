package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recount/internal/cache"
	"recount/internal/domain"
	"recount/internal/engine/auth"
	"recount/internal/repo"
)

// SearchCatalog finds one catalog entry by exact code, or else by term.
// Found entries are cached; absence is not.
func (e Engine) SearchCatalog(ctx context.Context, code, term string) (domain.CatalogEntry, error) {
	code = strings.TrimSpace(code)
	term = strings.TrimSpace(term)
	switch {
	case code != "":
		return e.lookup(ctx, "", func(c cache.Catalog) (domain.CatalogEntry, error) {
			return c.GetByCode(ctx, code)
		}, func() (domain.CatalogEntry, error) {
			return e.Repo.FindCatalogByCode(ctx, code)
		})
	case term != "":
		return e.lookup(ctx, term, func(c cache.Catalog) (domain.CatalogEntry, error) {
			return c.GetByTerm(ctx, term)
		}, func() (domain.CatalogEntry, error) {
			return e.Repo.SearchCatalog(ctx, term)
		})
	default:
		return domain.CatalogEntry{}, ValidationError{Field: "search", Message: "codigo or term is required"}
	}
}

func (e Engine) lookup(ctx context.Context, term string, cached func(cache.Catalog) (domain.CatalogEntry, error), load func() (domain.CatalogEntry, error)) (domain.CatalogEntry, error) {
	if e.Catalog != nil {
		entry, err := cached(e.Catalog)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			e.log().Warn("catalog cache read failed", zap.Error(err))
		}
	}
	entry, err := load()
	if err != nil {
		return entry, err
	}
	if e.Catalog != nil {
		if err := e.Catalog.Put(ctx, term, entry); err != nil {
			e.log().Warn("catalog cache write failed", zap.String("code", entry.Code), zap.Error(err))
		}
	}
	return entry, nil
}

// CreateCatalogEntry registers a product. Codes are unique.
func (e Engine) CreateCatalogEntry(ctx context.Context, scope auth.Scope, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	entry.Code = strings.TrimSpace(entry.Code)
	entry.Description = strings.TrimSpace(entry.Description)
	if entry.Code == "" {
		return entry, ValidationError{Field: "codigo", Message: "required"}
	}
	if entry.Description == "" {
		return entry, ValidationError{Field: "descricao", Message: "required"}
	}
	entry.CreatedBy = scope.UserID
	entry.Sector = scope.Sector
	entry.CreatedAt = e.timestamp()
	if err := e.Repo.InsertCatalog(ctx, entry); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return entry, fmt.Errorf("product code %s already exists: %w", entry.Code, err)
		}
		return entry, err
	}
	if e.Catalog != nil {
		if err := e.Catalog.Invalidate(ctx, entry.Code); err != nil {
			e.log().Warn("catalog cache invalidate failed", zap.String("code", entry.Code), zap.Error(err))
		}
	}
	return entry, nil
}

// SeedCatalog loads the demo catalog; existing codes are kept.
func (e Engine) SeedCatalog(ctx context.Context, generic int) (int, error) {
	added, err := e.Repo.SeedCatalog(ctx, SeedEntries(generic, e.timestamp()))
	if err != nil {
		return added, err
	}
	e.log().Info("catalog seeded", zap.Int("added", added))
	return added, nil
}
