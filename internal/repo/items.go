package repo

import (
	"context"
	"database/sql"
	"strings"

	"recount/internal/domain"
)

const itemColumns = `id,user_id,sector,code,description,type,system_unit,barcode,digitizer_name,team_leader,warehouse,label_code,count_unit,used_scale,counts,discrepancy,status,next_action,created_at,updated_at`

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var it domain.InventoryItem
	var description, typ, systemUnit, barcode, digitizer, leader, warehouse, label, counts, next sql.NullString
	err := row.Scan(&it.ID, &it.UserID, &it.Sector, &it.Code, &description, &typ, &systemUnit, &barcode,
		&digitizer, &leader, &warehouse, &label, &it.CountUnit, &it.UsedScale, &counts, &it.Discrepancy,
		&it.Status, &next, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	it.Description = str(description)
	it.Type = str(typ)
	it.SystemUnit = str(systemUnit)
	it.Barcode = str(barcode)
	it.Digitizer = str(digitizer)
	it.TeamLeader = str(leader)
	it.Warehouse = str(warehouse)
	it.LabelCode = str(label)
	it.Counts = DecodeCounts(counts)
	it.NextAction = str(next)
	return it, nil
}

func (r Repo) InsertItem(ctx context.Context, it domain.InventoryItem) error {
	counts, err := EncodeCounts(it.Counts)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO inventory_items(`+itemColumns+`,search_lc) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.UserID, it.Sector, it.Code, nullable(it.Description), nullable(it.Type), nullable(it.SystemUnit),
		nullable(it.Barcode), nullable(it.Digitizer), nullable(it.TeamLeader), nullable(it.Warehouse),
		nullable(it.LabelCode), it.CountUnit, it.UsedScale, counts, it.Discrepancy, it.Status,
		nullable(it.NextAction), it.CreatedAt, it.UpdatedAt, itemSearchText(it))
	return err
}

// UpdateItem overwrites the editable fields and reconciliation outcome of an
// existing item.
func (r Repo) UpdateItem(ctx context.Context, it domain.InventoryItem) error {
	counts, err := EncodeCounts(it.Counts)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE inventory_items SET team_leader=?,warehouse=?,label_code=?,count_unit=?,used_scale=?,counts=?,discrepancy=?,status=?,next_action=?,updated_at=?,search_lc=? WHERE id=?`,
		nullable(it.TeamLeader), nullable(it.Warehouse), nullable(it.LabelCode), it.CountUnit, it.UsedScale,
		counts, it.Discrepancy, it.Status, nullable(it.NextAction), it.UpdatedAt, itemSearchText(it), it.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	return scanItem(r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=?`, id))
}

func (r Repo) DeleteItem(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM inventory_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemScope restricts queries to one sector, or to one owner when Sector is
// empty. The zero value matches every item.
type ItemScope struct {
	UserID string
	Sector string
}

func (s ItemScope) clauses() ([]string, []any) {
	switch {
	case s.Sector != "":
		return []string{"sector=?"}, []any{s.Sector}
	case s.UserID != "":
		return []string{"user_id=?"}, []any{s.UserID}
	}
	return nil, nil
}

type ItemFilters struct {
	Scope           ItemScope
	Status          string
	Search          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListItems(ctx context.Context, f ItemFilters) ([]domain.InventoryItem, error) {
	clauses, args := f.Scope.clauses()
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		clauses = append(clauses, "search_lc LIKE ? ESCAPE '"+likeEscape+"'")
		args = append(args, containsPattern(f.Search))
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + itemColumns + ` FROM inventory_items ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

// DigitizerStats groups items by who typed them in.
func (r Repo) DigitizerStats(ctx context.Context, scope ItemScope) ([]domain.DigitizerStats, error) {
	clauses, args := scope.clauses()
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT COALESCE(digitizer_name,''),COUNT(*),
		SUM(CASE WHEN status='COUNTED' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='NEEDS_REVIEW' THEN 1 ELSE 0 END)
		FROM inventory_items `+where+` GROUP BY COALESCE(digitizer_name,'') ORDER BY COUNT(*) DESC, COALESCE(digitizer_name,'') ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DigitizerStats
	for rows.Next() {
		var s domain.DigitizerStats
		if err := rows.Scan(&s.Digitizer, &s.Total, &s.Counted, &s.NeedsReview); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) CountItemsByStatus(ctx context.Context, scope ItemScope) (map[string]int, error) {
	clauses, args := scope.clauses()
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM inventory_items `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
