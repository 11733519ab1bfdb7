// Package reconcile decides whether a series of physical counts for one item
// is accepted or needs another count.
//
// Evaluate is the single source of an item's status, discrepancy and next
// action. It has no state and performs no I/O; callers persist its Result
// verbatim.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCounted     Status = "COUNTED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCounted, StatusNeedsReview}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

const (
	ActionAwaitingSecond = "awaiting second count"
	ActionCompleted      = "completed"
)

// Tolerances are fixed by measurement method.
var (
	ScaleTolerance  = decimal.RequireFromString("0.0025")
	ManualTolerance = decimal.RequireFromString("0.0001")
)

// Tolerance returns the maximum accepted difference between the last two counts.
func Tolerance(usedScale bool) decimal.Decimal {
	if usedScale {
		return ScaleTolerance
	}
	return ManualTolerance
}

// Result is the reconciliation of one series.
type Result struct {
	Status      Status  `json:"status"`
	Discrepancy float64 `json:"discrepancy"`
	NextAction  string  `json:"next_action"`
}

// Terminal reports whether no further counts are solicited.
func (r Result) Terminal() bool {
	return r.Status == StatusCounted
}

// Evaluate reconciles the slots entered so far. Only the last two valid counts
// are compared; earlier ones stay in the series for display.
func Evaluate(slots Series, usedScale bool) Result {
	valid := slots.Valid()
	n := len(valid)
	if n < 2 {
		return Result{Status: StatusInProgress, Discrepancy: 0, NextAction: ActionAwaitingSecond}
	}
	last := decimal.NewFromFloat(valid[n-1])
	prev := decimal.NewFromFloat(valid[n-2])
	diff := last.Sub(prev).Abs()
	if diff.LessThanOrEqual(Tolerance(usedScale)) {
		return Result{Status: StatusCounted, Discrepancy: diff.InexactFloat64(), NextAction: ActionCompleted}
	}
	return Result{
		Status:      StatusNeedsReview,
		Discrepancy: diff.InexactFloat64(),
		NextAction:  NextCountAction(n + 1),
	}
}

// EvaluateCounts reconciles a series that holds only entered counts.
func EvaluateCounts(counts []float64, usedScale bool) Result {
	return Evaluate(SeriesOf(counts...), usedScale)
}

// NextCountAction names the count with the given 1-based ordinal.
func NextCountAction(ordinal int) string {
	return fmt.Sprintf("perform count number %d", ordinal)
}

// Capacity is how many valid counts the next save of a series may hold.
// A counted series is closed; reopening it means clearing later counts.
func Capacity(validCount int, status Status) int {
	switch status {
	case StatusCounted:
		return validCount
	case StatusNeedsReview:
		return validCount + 1
	default:
		if validCount < 2 {
			return 2
		}
		return validCount + 1
	}
}

// EditableSlots returns the slots an entry form should show for counts that
// were evaluated to r: two slots while the second count is missing, one extra
// empty slot when another count is required, and no empty slot once counted.
func EditableSlots(counts []float64, r Result) Series {
	slots := SeriesOf(counts...)
	switch r.Status {
	case StatusCounted:
		return slots
	case StatusNeedsReview:
		return append(slots, Empty())
	default:
		for len(slots) < 2 {
			slots = append(slots, Empty())
		}
		return slots
	}
}
