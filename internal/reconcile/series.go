package reconcile

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Slot is one position of a count series: either empty or one measurement.
// An entered zero is a value, not an empty slot.
type Slot struct {
	value float64
	set   bool
}

// Value returns a slot holding v.
func Value(v float64) Slot { return Slot{value: v, set: true} }

// Empty returns an unset slot.
func Empty() Slot { return Slot{} }

// Float returns the slot value and whether it holds a finite number.
func (s Slot) Float() (float64, bool) {
	if !s.set || math.IsNaN(s.value) || math.IsInf(s.value, 0) {
		return 0, false
	}
	return s.value, true
}

// IsEmpty reports whether the slot holds no usable count.
func (s Slot) IsEmpty() bool {
	_, ok := s.Float()
	return !ok
}

// ParseSlot reads a slot typed by an operator. Blank input is empty; input
// that is not a number is noise and also reads as empty.
func ParseSlot(raw string) Slot {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Empty()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Empty()
	}
	return Value(v)
}

func (s Slot) MarshalJSON() ([]byte, error) {
	v, ok := s.Float()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON accepts a number, null, or a string holding a number.
func (s *Slot) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = Empty()
	case data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = ParseSlot(raw)
	case data[0] == '{' || data[0] == '[' || data[0] == 't' || data[0] == 'f':
		*s = Empty()
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			*s = Empty()
			return nil
		}
		*s = Value(v)
	}
	return nil
}

// Series is the ordered slots of one item.
type Series []Slot

// SeriesOf builds a series where every slot is filled.
func SeriesOf(counts ...float64) Series {
	s := make(Series, 0, len(counts))
	for _, c := range counts {
		s = append(s, Value(c))
	}
	return s
}

// ParseSeries reads operator input slot by slot.
func ParseSeries(raw ...string) Series {
	s := make(Series, 0, len(raw))
	for _, r := range raw {
		s = append(s, ParseSlot(r))
	}
	return s
}

// Valid returns the finite counts in entry order.
func (s Series) Valid() []float64 {
	out := make([]float64, 0, len(s))
	for _, slot := range s {
		if v, ok := slot.Float(); ok {
			out = append(out, v)
		}
	}
	return out
}

// ValidCount is len(s.Valid()).
func (s Series) ValidCount() int {
	n := 0
	for _, slot := range s {
		if !slot.IsEmpty() {
			n++
		}
	}
	return n
}
