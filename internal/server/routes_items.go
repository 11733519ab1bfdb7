package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"recount/internal/engine"
)

type itemPath struct {
	ID string `path:"id"`
}

func (h handlers) registerItems(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/items",
		Summary:     "List visible items, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Search string `query:"q"`
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body ItemList `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		page, err := h.e.ListItems(ctx, scope, engine.ListOptions{
			Status: input.Status,
			Search: input.Search,
			Limit:  input.Limit,
			Cursor: input.Cursor,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body ItemList `json:"body"`
		}{Body: ItemList{Items: mapItems(page.Items), NextCursor: page.NextCursor}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-item",
		Method:        http.MethodPost,
		Path:          "/items",
		Summary:       "Record a new count",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body SubmitItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		b := input.Body
		item, err := h.e.SubmitCount(ctx, scope, engine.SubmitOptions{
			Code:        b.Code,
			Description: b.Description,
			Type:        b.Type,
			SystemUnit:  b.SystemUnit,
			Barcode:     b.Barcode,
			Digitizer:   b.Digitizer,
			TeamLeader:  b.TeamLeader,
			Warehouse:   b.Warehouse,
			LabelCode:   b.LabelCode,
			CountUnit:   b.CountUnit,
			UsedScale:   b.UsedScale,
			Slots:       seriesFromAny(b.Counts),
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(item)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/items/{id}",
		Summary:     "Get item",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *itemPath) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		item, err := h.e.GetItem(ctx, scope, input.ID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(item)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-item",
		Method:      http.MethodPut,
		Path:        "/items/{id}",
		Summary:     "Replace the counts of an item and reconcile again",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		b := input.Body
		item, err := h.e.UpdateItem(ctx, scope, input.ID, engine.UpdateOptions{
			Slots:      seriesFromAny(b.Counts),
			UsedScale:  b.UsedScale,
			TeamLeader: b.TeamLeader,
			Warehouse:  b.Warehouse,
			LabelCode:  b.LabelCode,
			CountUnit:  b.CountUnit,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: itemResponse(item)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-item",
		Method:        http.MethodDelete,
		Path:          "/items/{id}",
		Summary:       "Delete item",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *itemPath) (*struct{}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		if err := h.e.DeleteItem(ctx, scope, input.ID); err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reconcile",
		Method:      http.MethodPost,
		Path:        "/reconcile",
		Summary:     "Preview the reconciliation of a count series",
	}, func(ctx context.Context, input *struct {
		Body ReconcileRequest `json:"body"`
	}) (*struct {
		Body ReconcileResponse `json:"body"`
	}, error) {
		slots := seriesFromAny(input.Body.Counts)
		return &struct {
			Body ReconcileResponse `json:"body"`
		}{Body: reconcileResponse(slots, h.e.Reconcile(slots, input.Body.UsedScale))}, nil
	})
}
