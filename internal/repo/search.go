package repo

import (
	"context"
	"database/sql"
	"strings"

	"recount/internal/domain"
)

// likeEscape is the ESCAPE character of every LIKE pattern built here.
// Backslash would need quoting differently on MySQL and SQLite.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// fold lowercases with Unicode case mapping. SQLite's LOWER only maps ASCII,
// so search columns are folded before they are stored.
func fold(s string) string {
	return strings.ToLower(s)
}

// containsPattern matches term as a literal, case-folded substring.
func containsPattern(term string) string {
	return "%" + likeReplacer.Replace(fold(term)) + "%"
}

// itemSearchText joins the searchable fields of an item. The separator keeps a
// term from matching across two fields.
func itemSearchText(it domain.InventoryItem) string {
	return fold(strings.Join([]string{it.Code, it.Description, it.LabelCode, it.Digitizer}, "\n"))
}

// BackfillSearchText fills the folded search columns of rows written before
// those columns existed and reports how many rows were touched.
func (r Repo) BackfillSearchText(ctx context.Context) (int, error) {
	type pending struct{ key, text string }
	collect := func(query string, build func(scan func(...any) error) (pending, error)) ([]pending, error) {
		rows, err := r.DB.QueryContext(ctx, query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []pending
		for rows.Next() {
			p, err := build(rows.Scan)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	}

	catalog, err := collect(`SELECT code, description FROM catalog WHERE description_lc IS NULL`, func(scan func(...any) error) (pending, error) {
		var code, description string
		err := scan(&code, &description)
		return pending{key: code, text: fold(description)}, err
	})
	if err != nil {
		return 0, err
	}
	items, err := collect(`SELECT id, code, description, label_code, digitizer_name FROM inventory_items WHERE search_lc IS NULL`, func(scan func(...any) error) (pending, error) {
		var it domain.InventoryItem
		var description, label, digitizer sql.NullString
		err := scan(&it.ID, &it.Code, &description, &label, &digitizer)
		it.Description, it.LabelCode, it.Digitizer = str(description), str(label), str(digitizer)
		return pending{key: it.ID, text: itemSearchText(it)}, err
	})
	if err != nil {
		return 0, err
	}

	for _, p := range catalog {
		if _, err := r.DB.ExecContext(ctx, `UPDATE catalog SET description_lc=? WHERE code=?`, p.text, p.key); err != nil {
			return 0, err
		}
	}
	for _, p := range items {
		if _, err := r.DB.ExecContext(ctx, `UPDATE inventory_items SET search_lc=? WHERE id=?`, p.text, p.key); err != nil {
			return 0, err
		}
	}
	return len(catalog) + len(items), nil
}
