/*
calculator.go - Itemized bill computation from recurring charges

PURPOSE:
  Turns a member's recurring monthly charges and an inclusive billing range
  into an ordered, itemized bill. This is the only place bill amounts are
  computed; the receipt ledger and the bulk orchestrator both delegate here.

ALGORITHM:
  months = MonthsBetween(from, till)
  For each recurring charge with a positive unit amount, emit one line
  "<Name> (<months> month[s])" with amount = unit * months, in the fixed
  order: maintenance, water, then other bills in their stored order.
  Total is the sum of the lines.

DEGENERATE CASE:
  months <= 0, or no charge qualifies (all units <= 0): the result is
  "not billable" (zero total, no items). Callers must treat this as a
  no-op, never as an error that aborts a batch.
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BILL RESULT
// =============================================================================

// BillResult is an itemized bill for one member over one period range.
type BillResult struct {
	Items  []PaymentItem
	Total  decimal.Decimal
	Months int
}

// Billable reports whether the result is worth turning into a receipt.
func (b BillResult) Billable() bool {
	return b.Total.IsPositive() && len(b.Items) > 0
}

// =============================================================================
// CALCULATOR
// =============================================================================

const (
	maintenanceLabel = "Maintenance Bill"
	waterLabel       = "Water Bill"
)

// Calculate produces the itemized bill for the member's recurring charges
// over the inclusive range [from, till].
func Calculate(member *Member, from, till Period) BillResult {
	months := MonthsBetween(from, till)
	if months <= 0 {
		return BillResult{Total: decimal.Zero, Months: months}
	}

	factor := decimal.NewFromInt(int64(months))
	var items []PaymentItem

	addLine := func(name string, unit decimal.Decimal) {
		if !unit.IsPositive() {
			return
		}
		items = append(items, PaymentItem{
			Description: fmt.Sprintf("%s (%d %s)", name, months, pluralMonths(months)),
			Amount:      unit.Mul(factor),
		})
	}

	addLine(maintenanceLabel, member.MonthlyMaintenance)
	addLine(waterLabel, member.MonthlyWaterBill)
	for _, bill := range member.OtherBills {
		addLine(bill.Name, bill.Amount)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}

	return BillResult{Items: items, Total: total, Months: months}
}

func pluralMonths(n int) string {
	if n == 1 {
		return "month"
	}
	return "months"
}
