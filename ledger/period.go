package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The core concept for dues billing
// =============================================================================

// Period is a billing month: a (month, year) pair. Dues, receipts and the
// member dues cursor all operate at month granularity - there are no
// day-of-month semantics anywhere in the billing engine.
//
// Examples:
//   - January 2024:  Period{Month: time.January, Year: 2024}
//   - December 2025: Period{Month: time.December, Year: 2025}
type Period struct {
	Month time.Month
	Year  int
}

// NewPeriod builds a period from a 1-12 month number and a year.
func NewPeriod(month, year int) Period {
	return Period{Month: time.Month(month), Year: year}
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// Ordinal maps the period onto a single integer so that periods are totally
// ordered and interval arithmetic reduces to integer comparison.
func (p Period) Ordinal() int {
	return p.Year*12 + int(p.Month)
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Comparison
func (p Period) Before(other Period) bool        { return p.Ordinal() < other.Ordinal() }
func (p Period) After(other Period) bool         { return p.Ordinal() > other.Ordinal() }
func (p Period) Equal(other Period) bool         { return p.Ordinal() == other.Ordinal() }
func (p Period) BeforeOrEqual(other Period) bool { return p.Ordinal() <= other.Ordinal() }

// Next returns the period one month later, rolling December into January of
// the following year.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// MonthsBetween returns the inclusive month count of [from, till].
// Contract: callers must ensure from <= till; an inverted range yields a
// non-positive count and must be rejected before billing.
func MonthsBetween(from, till Period) int {
	return till.Ordinal() - from.Ordinal() + 1
}

// Overlaps reports whether the closed intervals [aFrom, aTill] and
// [bFrom, bTill] intersect at all. An exact boundary touch counts as overlap:
// two receipts may not share even a single billed month.
func Overlaps(aFrom, aTill, bFrom, bTill Period) bool {
	lo := max(aFrom.Ordinal(), bFrom.Ordinal())
	hi := min(aTill.Ordinal(), bTill.Ordinal())
	return lo <= hi
}

// =============================================================================
// PERIOD RANGE - Closed [From, Till] interval
// =============================================================================

// PeriodRange is the inclusive billing window carried by a receipt or a
// generation request.
type PeriodRange struct {
	From Period
	Till Period
}

// Valid reports whether the range is well-formed (From <= Till).
func (r PeriodRange) Valid() bool {
	return r.From.BeforeOrEqual(r.Till)
}

// Months returns the inclusive month count. Zero or negative means unbillable.
func (r PeriodRange) Months() int {
	return MonthsBetween(r.From, r.Till)
}

// Overlaps reports whether the two ranges share any month.
func (r PeriodRange) Overlaps(other PeriodRange) bool {
	return Overlaps(r.From, r.Till, other.From, other.Till)
}

func (r PeriodRange) String() string {
	return "[" + r.From.String() + ", " + r.Till.String() + "]"
}
