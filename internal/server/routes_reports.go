package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"recount/internal/domain"
)

func (h handlers) registerReports(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "report-digitizers",
		Method:      http.MethodGet,
		Path:        "/reports/digitizers",
		Summary:     "Items per digitizer",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Items []domain.DigitizerStats `json:"items"`
		} `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		stats, err := h.e.DigitizerReport(ctx, scope)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		out := &struct {
			Body struct {
				Items []domain.DigitizerStats `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = nonNilSlice(stats)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-summary",
		Method:      http.MethodGet,
		Path:        "/reports/summary",
		Summary:     "Items per status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.StatusSummary `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		summary, err := h.e.StatusSummary(ctx, scope)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body domain.StatusSummary `json:"body"`
		}{Body: summary}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-revisions",
		Method:      http.MethodGet,
		Path:        "/reports/revisions",
		Summary:     "Items waiting for another count",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ItemList `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		items, err := h.e.Revisions(ctx, scope)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body ItemList `json:"body"`
		}{Body: ItemList{Items: mapItems(items)}}, nil
	})
}
