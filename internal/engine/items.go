package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recount/internal/domain"
	"recount/internal/engine/auth"
	"recount/internal/reconcile"
	"recount/internal/repo"
)

// SubmitOptions describe a new count record. Product fields are a fallback
// snapshot used when Code is not in the catalog.
type SubmitOptions struct {
	Code        string
	Description string
	Type        string
	SystemUnit  string
	Barcode     string
	Digitizer   string
	TeamLeader  string
	Warehouse   string
	LabelCode   string
	CountUnit   string
	UsedScale   bool
	Slots       reconcile.Series
}

// SubmitCount records a new item with its first counts.
func (e Engine) SubmitCount(ctx context.Context, scope auth.Scope, opts SubmitOptions) (domain.InventoryItem, error) {
	if err := requireScope(scope); err != nil {
		return domain.InventoryItem{}, err
	}
	code := strings.TrimSpace(opts.Code)
	if code == "" {
		return domain.InventoryItem{}, ValidationError{Field: "codigo", Message: "product code is required"}
	}
	countUnit := strings.TrimSpace(opts.CountUnit)
	if countUnit == "" {
		return domain.InventoryItem{}, ValidationError{Field: "unidade_contagem", Message: "counting unit is required"}
	}
	counts := opts.Slots.Valid()
	if limit := reconcile.Capacity(0, reconcile.StatusPending); len(counts) > limit {
		return domain.InventoryItem{}, ValidationError{Field: "contagens", Message: fmt.Sprintf("a new item holds at most %d counts", limit)}
	}

	item := domain.InventoryItem{
		ID:          uuid.NewString(),
		UserID:      scope.UserID,
		Sector:      scope.ItemSector(),
		Code:        code,
		Description: opts.Description,
		Type:        opts.Type,
		SystemUnit:  opts.SystemUnit,
		Barcode:     opts.Barcode,
		Digitizer:   strings.TrimSpace(opts.Digitizer),
		TeamLeader:  strings.TrimSpace(opts.TeamLeader),
		Warehouse:   strings.TrimSpace(opts.Warehouse),
		LabelCode:   strings.TrimSpace(opts.LabelCode),
		CountUnit:   countUnit,
		UsedScale:   opts.UsedScale,
	}
	entry, err := e.SearchCatalog(ctx, code, "")
	switch {
	case err == nil:
		item.Description = entry.Description
		item.Type = entry.Type
		item.SystemUnit = entry.Unit
		item.Barcode = entry.Barcode
	case errors.Is(err, repo.ErrNotFound):
	default:
		return domain.InventoryItem{}, fmt.Errorf("catalog lookup: %w", err)
	}
	applyResult(&item, counts, reconcile.EvaluateCounts(counts, item.UsedScale))
	now := e.timestamp()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := e.Repo.InsertItem(ctx, item); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert item: %w", err)
	}
	e.log().Info("count submitted",
		zap.String("item_id", item.ID),
		zap.String("code", item.Code),
		zap.String("status", item.Status),
		zap.Int("counts", len(item.Counts)))
	return item, nil
}

// UpdateOptions replace the editable fields of an item. An empty CountUnit
// keeps the stored one.
type UpdateOptions struct {
	Slots      reconcile.Series
	UsedScale  bool
	TeamLeader string
	Warehouse  string
	LabelCode  string
	CountUnit  string
}

// UpdateItem re-reconciles an item with a new slot series. Recorded counts
// are append-only: the new series either extends the stored counts or drops
// trailing ones. Concurrent updates are not detected; the last write wins.
func (e Engine) UpdateItem(ctx context.Context, scope auth.Scope, id string, opts UpdateOptions) (domain.InventoryItem, error) {
	item, err := e.GetItem(ctx, scope, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	counts := opts.Slots.Valid()
	if !hasPrefix(counts, item.Counts) && !hasPrefix(item.Counts, counts) {
		return domain.InventoryItem{}, ValidationError{Field: "contagens", Message: "recorded counts cannot be changed; clear later counts or append new ones"}
	}
	if limit := reconcile.Capacity(len(item.Counts), reconcile.Status(item.Status)); len(counts) > limit {
		if item.Status == string(reconcile.StatusCounted) {
			return domain.InventoryItem{}, ErrCountClosed
		}
		return domain.InventoryItem{}, ValidationError{Field: "contagens", Message: fmt.Sprintf("at most %d counts allowed at this stage", limit)}
	}
	item.UsedScale = opts.UsedScale
	item.TeamLeader = strings.TrimSpace(opts.TeamLeader)
	item.Warehouse = strings.TrimSpace(opts.Warehouse)
	item.LabelCode = strings.TrimSpace(opts.LabelCode)
	if unit := strings.TrimSpace(opts.CountUnit); unit != "" {
		item.CountUnit = unit
	}
	previous := item.Status
	applyResult(&item, counts, reconcile.EvaluateCounts(counts, item.UsedScale))
	item.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateItem(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	e.log().Info("item updated",
		zap.String("item_id", item.ID),
		zap.String("from", previous),
		zap.String("to", item.Status))
	return item, nil
}

// hasPrefix reports whether s starts with prefix.
func hasPrefix(s, prefix []float64) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, v := range prefix {
		if s[i] != v {
			return false
		}
	}
	return true
}

func applyResult(item *domain.InventoryItem, counts []float64, r reconcile.Result) {
	item.Counts = counts
	item.Status = string(r.Status)
	item.Discrepancy = r.Discrepancy
	item.NextAction = r.NextAction
}

// GetItem returns an item visible to scope.
func (e Engine) GetItem(ctx context.Context, scope auth.Scope, id string) (domain.InventoryItem, error) {
	if err := requireScope(scope); err != nil {
		return domain.InventoryItem{}, err
	}
	item, err := e.Repo.GetItem(ctx, id)
	if err != nil {
		return item, err
	}
	if !scope.CanSee(item) {
		return domain.InventoryItem{}, auth.ForbiddenError{ItemID: id}
	}
	return item, nil
}

func (e Engine) DeleteItem(ctx context.Context, scope auth.Scope, id string) error {
	if _, err := e.GetItem(ctx, scope, id); err != nil {
		return err
	}
	if err := e.Repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	e.log().Info("item deleted", zap.String("item_id", id), zap.String("by", scope.UserID))
	return nil
}

// MinSearchLength is the shortest search term that filters a listing.
const MinSearchLength = 3

type ListOptions struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

type ItemPage struct {
	Items      []domain.InventoryItem
	NextCursor string
}

// ListItems pages through the caller's items, newest first.
func (e Engine) ListItems(ctx context.Context, scope auth.Scope, opts ListOptions) (ItemPage, error) {
	if err := requireScope(scope); err != nil {
		return ItemPage{}, err
	}
	if opts.Status != "" && !reconcile.Status(opts.Status).Valid() {
		return ItemPage{}, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", opts.Status)}
	}
	cursorCreated, cursorID, err := repo.ParseCursor(opts.Cursor)
	if err != nil {
		return ItemPage{}, ValidationError{Field: "cursor", Message: err.Error()}
	}
	search := strings.TrimSpace(opts.Search)
	if utf8.RuneCountInString(search) < MinSearchLength {
		search = ""
	}
	limit := repo.NormalizeLimit(opts.Limit)
	items, err := e.Repo.ListItems(ctx, repo.ItemFilters{
		Scope:           scope.Filter(),
		Status:          opts.Status,
		Search:          search,
		Limit:           limit + 1,
		CursorCreatedAt: cursorCreated,
		CursorID:        cursorID,
	})
	if err != nil {
		return ItemPage{}, err
	}
	page := ItemPage{Items: items}
	if len(items) > limit {
		last := items[limit-1]
		page.Items = items[:limit]
		page.NextCursor = repo.ComposeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// Reconcile previews the outcome of slots without storing anything.
func (e Engine) Reconcile(slots reconcile.Series, usedScale bool) reconcile.Result {
	return reconcile.Evaluate(slots, usedScale)
}
