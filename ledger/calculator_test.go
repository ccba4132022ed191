package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalsociety/dues-engine/ledger"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// =============================================================================
// BILL COMPUTATION TESTS
// =============================================================================

func TestCalculate_ThreeMonthMaintenance(t *testing.T) {
	// GIVEN: a member paying 1000/month maintenance and nothing else
	// WHEN: billing January through March 2024
	// THEN: one line of 3000 labeled with the month count

	member := &ledger.Member{MonthlyMaintenance: dec(1000)}

	result := ledger.Calculate(member, ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024))

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Maintenance Bill (3 months)", result.Items[0].Description)
	assert.True(t, result.Items[0].Amount.Equal(dec(3000)))
	assert.True(t, result.Total.Equal(dec(3000)))
	assert.Equal(t, 3, result.Months)
	assert.True(t, result.Billable())
}

func TestCalculate_SingleMonthUsesSingular(t *testing.T) {
	member := &ledger.Member{MonthlyWaterBill: dec(200)}

	result := ledger.Calculate(member, ledger.NewPeriod(5, 2024), ledger.NewPeriod(5, 2024))

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Water Bill (1 month)", result.Items[0].Description)
	assert.True(t, result.Total.Equal(dec(200)))
}

func TestCalculate_LineOrderIsFixed(t *testing.T) {
	// Maintenance first, water second, then other bills in stored order.
	member := &ledger.Member{
		MonthlyMaintenance: dec(1000),
		MonthlyWaterBill:   dec(200),
		OtherBills: []ledger.OtherBill{
			{ID: "b1", Name: "Parking", Amount: dec(150)},
			{ID: "b2", Name: "Clubhouse", Amount: dec(50)},
		},
	}

	result := ledger.Calculate(member, ledger.NewPeriod(1, 2024), ledger.NewPeriod(2, 2024))

	require.Len(t, result.Items, 4)
	assert.Equal(t, "Maintenance Bill (2 months)", result.Items[0].Description)
	assert.Equal(t, "Water Bill (2 months)", result.Items[1].Description)
	assert.Equal(t, "Parking (2 months)", result.Items[2].Description)
	assert.Equal(t, "Clubhouse (2 months)", result.Items[3].Description)
	assert.True(t, result.Total.Equal(dec(2800)))
}

func TestCalculate_NonPositiveChargesAreSkipped(t *testing.T) {
	// A zero water bill produces no line; the bill still has the others.
	member := &ledger.Member{
		MonthlyMaintenance: dec(500),
		MonthlyWaterBill:   decimal.Zero,
		OtherBills: []ledger.OtherBill{
			{ID: "b1", Name: "Legacy Fee", Amount: dec(-10)},
		},
	}

	result := ledger.Calculate(member, ledger.NewPeriod(1, 2024), ledger.NewPeriod(1, 2024))

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Maintenance Bill (1 month)", result.Items[0].Description)
}

func TestCalculate_AllChargesZero_NotBillable(t *testing.T) {
	member := &ledger.Member{}

	result := ledger.Calculate(member, ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024))

	assert.Empty(t, result.Items)
	assert.True(t, result.Total.IsZero())
	assert.False(t, result.Billable())
}

func TestCalculate_InvertedRange_NotBillable(t *testing.T) {
	member := &ledger.Member{MonthlyMaintenance: dec(1000)}

	result := ledger.Calculate(member, ledger.NewPeriod(3, 2024), ledger.NewPeriod(1, 2024))

	assert.False(t, result.Billable())
	assert.Empty(t, result.Items)
}

func TestCalculate_DecimalPrecision(t *testing.T) {
	// 333.33 * 3 must be exactly 999.99, not a float approximation.
	unit, err := decimal.NewFromString("333.33")
	require.NoError(t, err)
	member := &ledger.Member{MonthlyMaintenance: unit}

	result := ledger.Calculate(member, ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024))

	expected, _ := decimal.NewFromString("999.99")
	assert.True(t, result.Total.Equal(expected), "got %s", result.Total)
}
