package engine

import (
	"context"

	"recount/internal/domain"
	"recount/internal/engine/auth"
	"recount/internal/reconcile"
	"recount/internal/repo"
)

func (e Engine) DigitizerReport(ctx context.Context, scope auth.Scope) ([]domain.DigitizerStats, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	return e.Repo.DigitizerStats(ctx, scope.Filter())
}

// StatusSummary counts visible items per status; every status is present.
func (e Engine) StatusSummary(ctx context.Context, scope auth.Scope) (domain.StatusSummary, error) {
	if err := requireScope(scope); err != nil {
		return domain.StatusSummary{}, err
	}
	counts, err := e.Repo.CountItemsByStatus(ctx, scope.Filter())
	if err != nil {
		return domain.StatusSummary{}, err
	}
	summary := domain.StatusSummary{ByStatus: map[string]int{}}
	for _, st := range reconcile.Statuses {
		summary.ByStatus[string(st)] = counts[string(st)]
	}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

// Revisions lists the visible items waiting for another count.
func (e Engine) Revisions(ctx context.Context, scope auth.Scope) ([]domain.InventoryItem, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	return e.Repo.ListItems(ctx, repo.ItemFilters{
		Scope:  scope.Filter(),
		Status: string(reconcile.StatusNeedsReview),
	})
}
