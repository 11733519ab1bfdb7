package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"recount/internal/domain"
)

func (h handlers) registerCatalog(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-catalog-entry",
		Method:        http.MethodPost,
		Path:          "/catalog",
		Summary:       "Register a product",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateCatalogRequest `json:"body"`
	}) (*struct {
		Body domain.CatalogEntry `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		entry, err := h.e.CreateCatalogEntry(ctx, scope, domain.CatalogEntry{
			Code:        input.Body.Code,
			Description: input.Body.Description,
			Type:        input.Body.Type,
			Unit:        input.Body.Unit,
			Barcode:     input.Body.Barcode,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body domain.CatalogEntry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-catalog",
		Method:      http.MethodGet,
		Path:        "/catalog/search",
		Summary:     "Find a product by code, barcode or description",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Code string `query:"codigo"`
		Term string `query:"term"`
	}) (*struct {
		Body domain.CatalogEntry `json:"body"`
	}, error) {
		entry, err := h.e.SearchCatalog(ctx, input.Code, input.Term)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body domain.CatalogEntry `json:"body"`
		}{Body: entry}, nil
	})
}
