package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/digitalsociety/dues-engine/ledger"
)

// =============================================================================
// ORDINAL AND ORDERING TESTS
// =============================================================================

func TestPeriod_Ordinal_TotalOrder(t *testing.T) {
	// GIVEN: December 2023 and January 2024
	// THEN: the ordinal mapping orders them across the year boundary

	dec23 := ledger.NewPeriod(12, 2023)
	jan24 := ledger.NewPeriod(1, 2024)

	assert.True(t, dec23.Before(jan24))
	assert.True(t, jan24.After(dec23))
	assert.Equal(t, dec23.Ordinal()+1, jan24.Ordinal())
}

func TestPeriod_Next_RollsOverDecember(t *testing.T) {
	next := ledger.NewPeriod(12, 2024).Next()

	assert.Equal(t, time.January, next.Month)
	assert.Equal(t, 2025, next.Year)
}

func TestPeriod_Next_MidYear(t *testing.T) {
	next := ledger.NewPeriod(6, 2024).Next()

	assert.Equal(t, time.July, next.Month)
	assert.Equal(t, 2024, next.Year)
}

func TestPeriodOf_UsesMonthGranularity(t *testing.T) {
	// Day of month is irrelevant: the 1st and the 31st fall in the same period.
	first := ledger.PeriodOf(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	last := ledger.PeriodOf(time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC))

	assert.True(t, first.Equal(last))
}

// =============================================================================
// MONTH COUNT TESTS
// =============================================================================

func TestMonthsBetween_Inclusive(t *testing.T) {
	// January through March is three months, not two.
	assert.Equal(t, 3, ledger.MonthsBetween(ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024)))

	// A single month counts as one.
	assert.Equal(t, 1, ledger.MonthsBetween(ledger.NewPeriod(5, 2024), ledger.NewPeriod(5, 2024)))

	// Across a year boundary.
	assert.Equal(t, 2, ledger.MonthsBetween(ledger.NewPeriod(12, 2024), ledger.NewPeriod(1, 2025)))
}

func TestMonthsBetween_InvertedRangeIsNonPositive(t *testing.T) {
	months := ledger.MonthsBetween(ledger.NewPeriod(3, 2024), ledger.NewPeriod(1, 2024))

	assert.LessOrEqual(t, months, 0)
}

// =============================================================================
// OVERLAP TESTS
// =============================================================================

func TestOverlaps_ContainedRange(t *testing.T) {
	// GIVEN: an existing Jan-Mar range
	// WHEN: checking Feb-Feb
	// THEN: the single month inside the range overlaps

	assert.True(t, ledger.Overlaps(
		ledger.NewPeriod(2, 2024), ledger.NewPeriod(2, 2024),
		ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024)))
}

func TestOverlaps_BoundaryTouchCounts(t *testing.T) {
	// Sharing exactly one month (March) is an overlap.
	assert.True(t, ledger.Overlaps(
		ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024),
		ledger.NewPeriod(3, 2024), ledger.NewPeriod(6, 2024)))
}

func TestOverlaps_AdjacentRangesDoNot(t *testing.T) {
	// Jan-Mar and Apr-Jun share no month.
	assert.False(t, ledger.Overlaps(
		ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024),
		ledger.NewPeriod(4, 2024), ledger.NewPeriod(6, 2024)))
}

func TestOverlaps_Symmetric(t *testing.T) {
	a := ledger.PeriodRange{From: ledger.NewPeriod(2, 2024), Till: ledger.NewPeriod(4, 2024)}
	b := ledger.PeriodRange{From: ledger.NewPeriod(4, 2024), Till: ledger.NewPeriod(7, 2024)}

	assert.Equal(t, a.Overlaps(b), b.Overlaps(a))
}

func TestPeriodRange_Valid(t *testing.T) {
	valid := ledger.PeriodRange{From: ledger.NewPeriod(1, 2024), Till: ledger.NewPeriod(1, 2024)}
	inverted := ledger.PeriodRange{From: ledger.NewPeriod(2, 2024), Till: ledger.NewPeriod(1, 2024)}

	assert.True(t, valid.Valid())
	assert.False(t, inverted.Valid())
}
