package reconcile_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"recount/internal/reconcile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name      string
		slots     reconcile.Series
		usedScale bool
		want      reconcile.Result
	}{
		{
			name:  "equal counts close the item",
			slots: reconcile.SeriesOf(10, 10),
			want:  reconcile.Result{Status: reconcile.StatusCounted, Discrepancy: 0, NextAction: "completed"},
		},
		{
			name:  "manual tolerance exceeded",
			slots: reconcile.SeriesOf(10, 10.0002),
			want:  reconcile.Result{Status: reconcile.StatusNeedsReview, Discrepancy: 0.0002, NextAction: "perform count number 3"},
		},
		{
			name:      "scale tolerance absorbs the same difference",
			slots:     reconcile.SeriesOf(10, 10.0002),
			usedScale: true,
			want:      reconcile.Result{Status: reconcile.StatusCounted, Discrepancy: 0.0002, NextAction: "completed"},
		},
		{
			name:  "only first slot filled",
			slots: reconcile.Series{reconcile.Value(10), reconcile.Empty(), reconcile.Empty()},
			want:  reconcile.Result{Status: reconcile.StatusInProgress, Discrepancy: 0, NextAction: "awaiting second count"},
		},
		{
			name:  "only the last two counts are compared",
			slots: reconcile.SeriesOf(10, 12, 12.001),
			want:  reconcile.Result{Status: reconcile.StatusNeedsReview, Discrepancy: 0.001, NextAction: "perform count number 4"},
		},
		{
			name:  "cleared third slot falls back to the first two",
			slots: reconcile.Series{reconcile.Value(10), reconcile.Value(10), reconcile.Empty()},
			want:  reconcile.Result{Status: reconcile.StatusCounted, Discrepancy: 0, NextAction: "completed"},
		},
		{
			name:  "empty series",
			slots: nil,
			want:  reconcile.Result{Status: reconcile.StatusInProgress, NextAction: "awaiting second count"},
		},
		{
			name:  "earlier disagreement is superseded",
			slots: reconcile.SeriesOf(3, 9, 9),
			want:  reconcile.Result{Status: reconcile.StatusCounted, Discrepancy: 0, NextAction: "completed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.Evaluate(tt.slots, tt.usedScale)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Evaluate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateBoundaryIsInclusive(t *testing.T) {
	manual := reconcile.EvaluateCounts([]float64{10, 10.0001}, false)
	assert.Equal(t, reconcile.StatusCounted, manual.Status)
	assert.Equal(t, 0.0001, manual.Discrepancy)

	scale := reconcile.EvaluateCounts([]float64{10, 10.0025}, true)
	assert.Equal(t, reconcile.StatusCounted, scale.Status)
	assert.Equal(t, 0.0025, scale.Discrepancy)

	over := reconcile.EvaluateCounts([]float64{10, 10.0026}, true)
	assert.Equal(t, reconcile.StatusNeedsReview, over.Status)

	justOver := reconcile.EvaluateCounts([]float64{0.5, 0.50011}, false)
	assert.Equal(t, reconcile.StatusNeedsReview, justOver.Status)
}

func TestEvaluateZeroIsACount(t *testing.T) {
	res := reconcile.EvaluateCounts([]float64{0, 0}, false)
	assert.Equal(t, reconcile.StatusCounted, res.Status)

	res = reconcile.Evaluate(reconcile.Series{reconcile.Value(0), reconcile.Empty()}, false)
	assert.Equal(t, reconcile.StatusInProgress, res.Status)

	res = reconcile.EvaluateCounts([]float64{0, 1}, false)
	assert.Equal(t, reconcile.StatusNeedsReview, res.Status)
	assert.Equal(t, 1.0, res.Discrepancy)
}

func TestEvaluateFiltersNonFinite(t *testing.T) {
	slots := reconcile.Series{
		reconcile.Value(math.NaN()),
		reconcile.Value(5),
		reconcile.Value(math.Inf(1)),
		reconcile.ParseSeries("abc")[0],
		reconcile.Value(5),
	}
	res := reconcile.Evaluate(slots, false)
	assert.Equal(t, reconcile.StatusCounted, res.Status)
	assert.Equal(t, []float64{5, 5}, slots.Valid())
}

func TestEvaluateFewerThanTwoIgnoresNoise(t *testing.T) {
	for _, slots := range []reconcile.Series{
		{},
		{reconcile.Empty(), reconcile.Empty()},
		reconcile.ParseSeries("", " ", "x"),
		reconcile.ParseSeries("", "7"),
	} {
		res := reconcile.Evaluate(slots, true)
		assert.Equal(t, reconcile.StatusInProgress, res.Status)
		assert.Zero(t, res.Discrepancy)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	slots := reconcile.ParseSeries("4.2", "", "4.21", "4.2")
	first := reconcile.Evaluate(slots, false)
	second := reconcile.Evaluate(slots, false)
	assert.Equal(t, first, second)
	assert.Equal(t, reconcile.ParseSeries("4.2", "", "4.21", "4.2"), slots)
}

func TestEvaluateUsesCurrentScaleFlag(t *testing.T) {
	slots := reconcile.SeriesOf(2, 2.001)
	assert.Equal(t, reconcile.StatusNeedsReview, reconcile.Evaluate(slots, false).Status)
	assert.Equal(t, reconcile.StatusCounted, reconcile.Evaluate(slots, true).Status)
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 2, reconcile.Capacity(0, reconcile.StatusInProgress))
	assert.Equal(t, 2, reconcile.Capacity(1, reconcile.StatusInProgress))
	assert.Equal(t, 3, reconcile.Capacity(2, reconcile.StatusNeedsReview))
	assert.Equal(t, 2, reconcile.Capacity(2, reconcile.StatusCounted))
	assert.Equal(t, 2, reconcile.Capacity(0, reconcile.StatusPending))
}

func TestEditableSlots(t *testing.T) {
	got := reconcile.EditableSlots(nil, reconcile.EvaluateCounts(nil, false))
	assert.Equal(t, reconcile.Series{reconcile.Empty(), reconcile.Empty()}, got)

	got = reconcile.EditableSlots([]float64{3}, reconcile.EvaluateCounts([]float64{3}, false))
	assert.Equal(t, reconcile.Series{reconcile.Value(3), reconcile.Empty()}, got)

	counts := []float64{3, 4}
	got = reconcile.EditableSlots(counts, reconcile.EvaluateCounts(counts, false))
	assert.Equal(t, reconcile.Series{reconcile.Value(3), reconcile.Value(4), reconcile.Empty()}, got)

	counts = []float64{4, 4}
	got = reconcile.EditableSlots(counts, reconcile.EvaluateCounts(counts, false))
	assert.Equal(t, reconcile.SeriesOf(4, 4), got)
}

func TestSlotJSON(t *testing.T) {
	var slots reconcile.Series
	require.NoError(t, json.Unmarshal([]byte(`[1.5, null, "", " 2 ", "n/a", 0, {"x":1}]`), &slots))
	require.Len(t, slots, 7)
	assert.Equal(t, []float64{1.5, 2, 0}, slots.Valid())
	assert.True(t, slots[1].IsEmpty())
	assert.True(t, slots[4].IsEmpty())
	assert.False(t, slots[5].IsEmpty())

	out, err := json.Marshal(reconcile.Series{reconcile.Value(0), reconcile.Empty(), reconcile.Value(3.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `[0, null, 3.25]`, string(out))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, reconcile.StatusPending.Valid())
	assert.True(t, reconcile.StatusNeedsReview.Valid())
	assert.False(t, reconcile.Status("DONE").Valid())
}
