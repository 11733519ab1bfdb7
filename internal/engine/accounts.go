package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recount/internal/domain"
	"recount/internal/engine/auth"
	"recount/internal/repo"
)

type RegisterOptions struct {
	Name     string
	Email    string
	Password string
	Role     string
	Sector   string
}

// Register creates an account. Leaders are also added to the team leader list.
func (e Engine) Register(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	name := strings.TrimSpace(opts.Name)
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if name == "" {
		return domain.User{}, ValidationError{Field: "name", Message: "required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ValidationError{Field: "email", Message: "a valid address is required"}
	}
	if opts.Password == "" {
		return domain.User{}, ValidationError{Field: "password", Message: "required"}
	}
	role := opts.Role
	if role == "" {
		role = domain.RoleUser
	}
	switch role {
	case domain.RoleUser, domain.RoleLeader, domain.RoleAdmin:
	default:
		return domain.User{}, ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	hash, err := auth.HashPassword(opts.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return domain.User{}, ValidationError{Field: "password", Message: "at most 72 bytes"}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := e.timestamp()
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Sector:       strings.TrimSpace(opts.Sector),
		CreatedAt:    now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUserTx(ctx, tx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.User{}, fmt.Errorf("email %s already registered: %w", email, err)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if role == domain.RoleLeader {
		if err := e.Repo.EnsureLeaderTx(ctx, tx, domain.Leader{ID: uuid.NewString(), Name: name, CreatedAt: now}); err != nil {
			return domain.User{}, fmt.Errorf("insert leader: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	e.log().Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role), zap.String("sector", u.Sector))
	return u, nil
}

// Login returns the account matching email and password.
func (e Engine) Login(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return domain.User{}, auth.ErrInvalidCredentials
	}
	return u, nil
}

// ScopeFor loads the stored role and sector of userID.
func (e Engine) ScopeFor(ctx context.Context, userID string) (auth.Scope, error) {
	if userID == "" {
		return auth.Scope{}, ErrNoIdentity
	}
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return auth.Scope{}, err
	}
	return ScopeOf(u), nil
}

// ScopeForEmail is ScopeFor keyed by email, used by the CLI.
func (e Engine) ScopeForEmail(ctx context.Context, email string) (auth.Scope, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return auth.Scope{}, fmt.Errorf("user %s: %w", email, err)
	}
	return ScopeOf(u), nil
}

func ScopeOf(u domain.User) auth.Scope {
	return auth.Scope{UserID: u.ID, Role: u.Role, Sector: u.Sector}
}

func (e Engine) User(ctx context.Context, id string) (domain.User, error) {
	return e.Repo.GetUser(ctx, id)
}

func (e Engine) Users(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}

func (e Engine) Leaders(ctx context.Context) ([]domain.Leader, error) {
	return e.Repo.ListLeaders(ctx)
}
