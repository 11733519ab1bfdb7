// Package auth decides which inventory items a caller may touch.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"recount/internal/domain"
	"recount/internal/repo"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ForbiddenError indicates the item lies outside the caller's scope.
type ForbiddenError struct {
	ItemID string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("item %s is outside your scope", e.ItemID)
}

// Scope identifies the caller of a scoped operation.
type Scope struct {
	UserID string
	Role   string
	Sector string
}

// SectorWide reports whether the caller sees every item of its sector.
func (s Scope) SectorWide() bool {
	return (s.Role == domain.RoleLeader || s.Role == domain.RoleAdmin) && s.Sector != ""
}

// Filter converts the scope into a repository restriction.
func (s Scope) Filter() repo.ItemScope {
	if s.SectorWide() {
		return repo.ItemScope{Sector: s.Sector}
	}
	return repo.ItemScope{UserID: s.UserID}
}

// CanSee reports whether item is visible to the caller.
func (s Scope) CanSee(item domain.InventoryItem) bool {
	if s.SectorWide() {
		return item.Sector == s.Sector
	}
	return item.UserID != "" && item.UserID == s.UserID
}

// ItemSector is the sector stamped on items created by the caller.
func (s Scope) ItemSector() string {
	if s.Sector == "" {
		return domain.DefaultSector
	}
	return s.Sector
}

// ErrPasswordTooLong rejects passwords bcrypt would truncate.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches a stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
