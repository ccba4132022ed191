package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalsociety/dues-engine/ledger"
	"github.com/digitalsociety/dues-engine/ledger/store"
)

// =============================================================================
// STATUS PROJECTION TESTS
// =============================================================================

func TestStatusOf_NoCursor_NotSet(t *testing.T) {
	member := &ledger.Member{}

	assert.Equal(t, ledger.DuesNotSet, ledger.StatusOf(member, testNow))
}

func TestStatusOf_CursorInPast_Pending(t *testing.T) {
	// Cursor at March 2024, current month June 2024: dues are owed.
	cursor := ledger.NewPeriod(3, 2024)
	member := &ledger.Member{DuesFrom: &cursor}

	assert.Equal(t, ledger.DuesPending, ledger.StatusOf(member, testNow))
}

func TestStatusOf_CursorAtCurrentMonth_Pending(t *testing.T) {
	// The current month itself is already due.
	cursor := ledger.PeriodOf(testNow)
	member := &ledger.Member{DuesFrom: &cursor}

	assert.Equal(t, ledger.DuesPending, ledger.StatusOf(member, testNow))
}

func TestStatusOf_CursorInFuture_Paid(t *testing.T) {
	cursor := ledger.PeriodOf(testNow).Next()
	member := &ledger.Member{DuesFrom: &cursor}

	assert.Equal(t, ledger.DuesPaid, ledger.StatusOf(member, testNow))
}

// =============================================================================
// CURSOR MUTATION TESTS
// =============================================================================

func newTrackedMember(t *testing.T, cursor *ledger.Period) (*ledger.DuesTracker, ledger.Repos) {
	t.Helper()

	repos := store.NewMemory().Repos()
	err := repos.Members.Put(context.Background(), ledger.Member{
		ID: "m-1", Name: "Asha", SocietyID: "soc-1",
		Building: "A", Apartment: "101",
		DuesFrom:  cursor,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	return ledger.NewDuesTracker(repos.Members), repos
}

func TestDuesTracker_AdvanceAfterBilling(t *testing.T) {
	// GIVEN: a member with dues from January 2024
	// WHEN: billed through March 2024
	// THEN: the cursor lands on April 2024

	start := ledger.NewPeriod(1, 2024)
	tracker, repos := newTrackedMember(t, &start)
	ctx := context.Background()

	err := tracker.AdvanceAfterBilling(ctx, "m-1", ledger.NewPeriod(3, 2024))
	require.NoError(t, err)

	member, err := repos.Members.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, member.DuesFrom)
	assert.True(t, member.DuesFrom.Equal(ledger.NewPeriod(4, 2024)))
}

func TestDuesTracker_AdvancePastDecemberRollsYear(t *testing.T) {
	start := ledger.NewPeriod(11, 2024)
	tracker, repos := newTrackedMember(t, &start)
	ctx := context.Background()

	err := tracker.AdvanceAfterBilling(ctx, "m-1", ledger.NewPeriod(12, 2024))
	require.NoError(t, err)

	member, err := repos.Members.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, member.DuesFrom)
	assert.Equal(t, time.January, member.DuesFrom.Month)
	assert.Equal(t, 2025, member.DuesFrom.Year)
}

func TestDuesTracker_RollbackIsUnconditional(t *testing.T) {
	// GIVEN: a member whose cursor has advanced to July 2024
	// WHEN: a receipt that started at February 2024 is deleted
	// THEN: the cursor rewinds to February, regardless of other receipts

	cursor := ledger.NewPeriod(7, 2024)
	tracker, repos := newTrackedMember(t, &cursor)
	ctx := context.Background()

	err := tracker.RollbackOnDelete(ctx, "m-1", ledger.NewPeriod(2, 2024))
	require.NoError(t, err)

	member, err := repos.Members.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, member.DuesFrom)
	assert.True(t, member.DuesFrom.Equal(ledger.NewPeriod(2, 2024)))
}

func TestDuesTracker_UnknownMember(t *testing.T) {
	tracker, _ := newTrackedMember(t, nil)

	err := tracker.AdvanceAfterBilling(context.Background(), "ghost", ledger.NewPeriod(1, 2024))

	assert.ErrorIs(t, err, ledger.ErrMemberNotFound)
}
