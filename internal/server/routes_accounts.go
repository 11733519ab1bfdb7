package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"recount/internal/domain"
	"recount/internal/engine"
)

func (h handlers) registerAccounts(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Create an account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := h.e.Register(ctx, engine.RegisterOptions{
			Name:     input.Body.Name,
			Email:    input.Body.Email,
			Password: input.Body.Password,
			Role:     input.Body.Role,
			Sector:   input.Body.Sector,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange email and password for a bearer token",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := h.e.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		token, exp, err := SignToken(h.auth.JWTSecret, Principal{UserID: u.ID, Name: u.Name, Role: u.Role, Sector: u.Sector}, time.Now(), h.auth.ttl())
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), User: u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		scope, err := h.scope(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		u, err := h.e.User(ctx, scope.UserID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-leaders",
		Method:      http.MethodGet,
		Path:        "/leaders",
		Summary:     "Team leaders",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Items []domain.Leader `json:"items"`
		} `json:"body"`
	}, error) {
		leaders, err := h.e.Leaders(ctx)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		out := &struct {
			Body struct {
				Items []domain.Leader `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = nonNilSlice(leaders)
		return out, nil
	})
}
