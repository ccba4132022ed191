package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalsociety/dues-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestBulk(t *testing.T) (*ledger.BulkGenerator, *ledger.ReceiptLedger, ledger.Repos) {
	t.Helper()

	l, repos := newTestLedger(t)
	return ledger.NewBulkGenerator(repos, l), l, repos
}

func bulkReq(memberID string, fromMonth, tillMonth, year int) ledger.BulkRequest {
	return ledger.BulkRequest{
		MemberID: ledger.MemberID(memberID),
		From:     ledger.NewPeriod(fromMonth, year),
		Till:     ledger.NewPeriod(tillMonth, year),
	}
}

// =============================================================================
// BULK GENERATION TESTS
// =============================================================================

func TestBulkGenerate_MixedBatchCountsEachOutcome(t *testing.T) {
	// GIVEN: member A is clean, member B already has a receipt for the
	//        requested range
	// WHEN: generating for both
	// THEN: one created, one skipped, and A's receipt is committed

	bulk, l, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)
	seedMember(t, repos, "m-b", "soc-1", "Ravi", 1000)

	_, err := l.Create(ctx, "soc-1", "m-b", ledger.NewPeriod(1, 2024), ledger.NewPeriod(3, 2024), "")
	require.NoError(t, err)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 3, 2024),
		bulkReq("m-b", 2, 2, 2024),
	}, "quarterly run")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.NothingToBill)

	receipts, err := repos.Receipts.ListByMember(ctx, "m-a")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "quarterly run", receipts[0].Description)
}

func TestBulkGenerate_NumbersFollowInputOrder(t *testing.T) {
	// GIVEN: the society's next number is 3 (receipts #1 and #2 exist)
	// WHEN: bulk-generating for three members
	// THEN: they get #3, #4, #5 in input order

	bulk, l, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)
	seedMember(t, repos, "m-b", "soc-1", "Ravi", 1000)
	seedMember(t, repos, "m-c", "soc-1", "Mina", 1000)
	seedMember(t, repos, "m-d", "soc-1", "Drew", 1000)

	_, err := l.Create(ctx, "soc-1", "m-d", ledger.NewPeriod(1, 2024), ledger.NewPeriod(1, 2024), "")
	require.NoError(t, err)
	_, err = l.Create(ctx, "soc-1", "m-d", ledger.NewPeriod(2, 2024), ledger.NewPeriod(2, 2024), "")
	require.NoError(t, err)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 1, 2024),
		bulkReq("m-b", 1, 1, 2024),
		bulkReq("m-c", 1, 1, 2024),
	}, "")
	require.NoError(t, err)
	require.Equal(t, 3, result.Created)

	numbers := map[string]int{}
	for _, id := range []string{"m-a", "m-b", "m-c"} {
		receipts, err := repos.Receipts.ListByMember(ctx, ledger.MemberID(id))
		require.NoError(t, err)
		require.Len(t, receipts, 1)
		numbers[id] = receipts[0].ReceiptNumber
	}

	assert.Equal(t, 3, numbers["m-a"])
	assert.Equal(t, 4, numbers["m-b"])
	assert.Equal(t, 5, numbers["m-c"])
}

func TestBulkGenerate_UnresolvableMemberDroppedSilently(t *testing.T) {
	// Unknown members and members of other societies appear in no counter.
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedSociety(t, repos, "soc-2", "Blue Hills")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)
	seedMember(t, repos, "m-other", "soc-2", "Ravi", 1000)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("ghost", 1, 1, 2024),
		bulkReq("m-other", 1, 1, 2024),
		bulkReq("m-a", 1, 1, 2024),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.NothingToBill)
}

func TestBulkGenerate_InvertedPeriodCountsAsSkipped(t *testing.T) {
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		{MemberID: "m-a", From: ledger.NewPeriod(3, 2024), Till: ledger.NewPeriod(1, 2024)},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestBulkGenerate_ZeroChargeCountsAsNothingToBill(t *testing.T) {
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-zero", "soc-1", "Asha", 0)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-zero", 1, 3, 2024),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.NothingToBill)
}

func TestBulkGenerate_InBatchOverlapSkipped(t *testing.T) {
	// Two requests for the same member with overlapping ranges in one batch:
	// the first wins, the second is skipped.
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 3, 2024),
		bulkReq("m-a", 2, 4, 2024),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)

	receipts, err := repos.Receipts.ListByMember(ctx, "m-a")
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestBulkGenerate_TrimsDescription(t *testing.T) {
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)

	_, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 3, 2024),
	}, "  quarterly run  ")
	require.NoError(t, err)

	receipts, err := repos.Receipts.ListByMember(ctx, "m-a")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "quarterly run", receipts[0].Description)
}

func TestBulkGenerate_RepeatedMemberLastCursorWins(t *testing.T) {
	// Two non-overlapping requests for one member in a batch: both receipts
	// are created and the cursor lands after the later range.
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)

	result, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 2, 2024),
		bulkReq("m-a", 3, 4, 2024),
	}, "")
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)

	member, err := repos.Members.Get(ctx, "m-a")
	require.NoError(t, err)
	require.NotNil(t, member.DuesFrom)
	assert.True(t, member.DuesFrom.Equal(ledger.NewPeriod(5, 2024)))
}

func TestBulkGenerate_AdvancesDuesCursors(t *testing.T) {
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")
	seedMember(t, repos, "m-a", "soc-1", "Asha", 1000)

	_, err := bulk.Generate(ctx, "soc-1", []ledger.BulkRequest{
		bulkReq("m-a", 1, 3, 2024),
	}, "")
	require.NoError(t, err)

	member, err := repos.Members.Get(ctx, "m-a")
	require.NoError(t, err)
	require.NotNil(t, member.DuesFrom)
	assert.True(t, member.DuesFrom.Equal(ledger.NewPeriod(4, 2024)))
}

func TestBulkGenerate_UnknownSociety(t *testing.T) {
	bulk, _, _ := newTestBulk(t)

	_, err := bulk.Generate(context.Background(), "ghost", nil, "")

	assert.ErrorIs(t, err, ledger.ErrSocietyNotFound)
}

func TestBulkGenerate_EmptyBatchIsNoOp(t *testing.T) {
	bulk, _, repos := newTestBulk(t)
	ctx := context.Background()
	seedSociety(t, repos, "soc-1", "Green Park")

	result, err := bulk.Generate(ctx, "soc-1", nil, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.BatchResult{}, result)
}
