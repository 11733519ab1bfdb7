package repo

import (
	"context"
	"database/sql"
	"fmt"

	"recount/internal/domain"
)

const catalogColumns = `code,description,type,unit,barcode,created_by,sector,created_at`

func scanCatalog(row rowScanner) (domain.CatalogEntry, error) {
	var c domain.CatalogEntry
	var typ, unit, barcode, createdBy, sector sql.NullString
	err := row.Scan(&c.Code, &c.Description, &typ, &unit, &barcode, &createdBy, &sector, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.Type = str(typ)
	c.Unit = str(unit)
	c.Barcode = str(barcode)
	c.CreatedBy = str(createdBy)
	c.Sector = str(sector)
	return c, err
}

func (r Repo) FindCatalogByCode(ctx context.Context, code string) (domain.CatalogEntry, error) {
	return scanCatalog(r.DB.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog WHERE code=?`, code))
}

// SearchCatalog matches term against the exact code or barcode, or a
// case-insensitive literal substring of the description. The first match by
// code wins.
func (r Repo) SearchCatalog(ctx context.Context, term string) (domain.CatalogEntry, error) {
	return scanCatalog(r.DB.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog WHERE code=? OR barcode=? OR description_lc LIKE ? ESCAPE '`+likeEscape+`' ORDER BY code ASC LIMIT 1`,
		term, term, containsPattern(term)))
}

func (r Repo) InsertCatalog(ctx context.Context, c domain.CatalogEntry) error {
	if _, err := r.FindCatalogByCode(ctx, c.Code); err == nil {
		return ErrConflict
	} else if err != ErrNotFound {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO catalog(`+catalogColumns+`,description_lc) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Code, c.Description, nullable(c.Type), nullable(c.Unit), nullable(c.Barcode), nullable(c.CreatedBy), nullable(c.Sector), c.CreatedAt,
		fold(c.Description))
	return err
}

// SeedCatalog inserts entries whose code is not present yet and reports how
// many were added.
func (r Repo) SeedCatalog(ctx context.Context, entries []domain.CatalogEntry) (int, error) {
	added := 0
	for _, c := range entries {
		err := r.InsertCatalog(ctx, c)
		if err == ErrConflict {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", c.Code, err)
		}
		added++
	}
	return added, nil
}

func (r Repo) CountCatalog(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog`).Scan(&n)
	return n, err
}
