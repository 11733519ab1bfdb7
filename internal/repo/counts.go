package repo

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"

	"recount/internal/reconcile"
)

// EncodeCounts stores only valid counts, as a JSON array.
func EncodeCounts(counts []float64) (string, error) {
	if len(counts) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCounts reads a stored counts column. Older rows hold a bare number,
// where 0 meant "not counted yet", or nothing at all.
func DecodeCounts(raw sql.NullString) []float64 {
	if !raw.Valid {
		return nil
	}
	data := bytes.TrimSpace([]byte(raw.String))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var slots reconcile.Series
		if err := json.Unmarshal(data, &slots); err != nil {
			return nil
		}
		return slots.Valid()
	}
	var slot reconcile.Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		slot = reconcile.ParseSlot(strings.Trim(string(data), `"`))
	}
	v, ok := slot.Float()
	if !ok || v == 0 {
		return nil
	}
	return []float64{v}
}
