package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TimeLayout is fixed width so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

// NormalizeLimit clamps a page size to (0, 200], defaulting to 50.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ParseCursor splits a "created_at|id" cursor.
func ParseCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

// ComposeCursor is the inverse of ParseCursor.
func ComposeCursor(createdAt, id string) string {
	return createdAt + "|" + id
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func str(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}
