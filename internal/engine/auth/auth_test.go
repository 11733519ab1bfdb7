package auth

import (
	"errors"
	"strings"
	"testing"

	"recount/internal/domain"
	"recount/internal/repo"
)

func TestScopeVisibility(t *testing.T) {
	mine := domain.InventoryItem{ID: "a", UserID: "u1", Sector: "ALMOX"}
	theirs := domain.InventoryItem{ID: "b", UserID: "u2", Sector: "ALMOX"}
	elsewhere := domain.InventoryItem{ID: "c", UserID: "u3", Sector: "OFICINA"}

	cases := []struct {
		name  string
		scope Scope
		want  map[string]bool
		repo  repo.ItemScope
	}{
		{"user", Scope{UserID: "u1", Role: domain.RoleUser, Sector: "ALMOX"}, map[string]bool{"a": true}, repo.ItemScope{UserID: "u1"}},
		{"leader", Scope{UserID: "u9", Role: domain.RoleLeader, Sector: "ALMOX"}, map[string]bool{"a": true, "b": true}, repo.ItemScope{Sector: "ALMOX"}},
		{"admin", Scope{UserID: "u9", Role: domain.RoleAdmin, Sector: "OFICINA"}, map[string]bool{"c": true}, repo.ItemScope{Sector: "OFICINA"}},
		{"leader without sector", Scope{UserID: "u2", Role: domain.RoleLeader}, map[string]bool{"b": true}, repo.ItemScope{UserID: "u2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, it := range []domain.InventoryItem{mine, theirs, elsewhere} {
				if got := tc.scope.CanSee(it); got != tc.want[it.ID] {
					t.Fatalf("CanSee(%s)=%v want %v", it.ID, got, tc.want[it.ID])
				}
			}
			if got := tc.scope.Filter(); got != tc.repo {
				t.Fatalf("Filter()=%+v want %+v", got, tc.repo)
			}
		})
	}
}

func TestEmptyScopeSeesNothing(t *testing.T) {
	if (Scope{}).CanSee(domain.InventoryItem{ID: "x"}) {
		t.Fatal("anonymous scope must not see ownerless items")
	}
}

func TestItemSectorDefaults(t *testing.T) {
	if got := (Scope{}).ItemSector(); got != domain.DefaultSector {
		t.Fatalf("expected %s, got %s", domain.DefaultSector, got)
	}
	if got := (Scope{Sector: "ALMOX"}).ItemSector(); got != "ALMOX" {
		t.Fatalf("expected ALMOX, got %s", got)
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(h, "$2a$") {
		t.Fatalf("expected a bcrypt hash, got %q", h)
	}
	if !CheckPassword(h, "s3cret") {
		t.Fatal("expected password to match")
	}
	if CheckPassword(h, "S3cret") {
		t.Fatal("expected mismatch")
	}
	if CheckPassword("not-a-hash", "s3cret") {
		t.Fatal("expected malformed hash to fail")
	}
	again, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if again == h {
		t.Fatal("expected a fresh salt per hash")
	}
	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
