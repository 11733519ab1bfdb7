package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recount/internal/cache"
	"recount/internal/config"
	"recount/internal/engine/auth"
	"recount/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Config  *config.Config
	Catalog cache.Catalog
	Logger  *zap.Logger
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Logger: zap.NewNop(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return repo.FormatTime(e.now())
}

func (e Engine) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var (
	// ErrCountClosed rejects new counts on an accepted item.
	ErrCountClosed = errors.New("item is already counted; clear later counts to reopen it")
	// ErrNoIdentity rejects scoped calls without a caller.
	ErrNoIdentity = errors.New("caller identity required")
)

func requireScope(scope auth.Scope) error {
	if scope.UserID == "" {
		return ErrNoIdentity
	}
	return nil
}
