/*
dues.go - The member dues cursor and its status projection

PURPOSE:
  Each member carries a cursor to their first unbilled period. Billing
  advances it to the month after the billed range; deleting a receipt
  rewinds it to that receipt's original From period. Nothing else moves it
  except an explicit operator edit.

STATUS PROJECTION:
  "Not Set" / "Pending" / "Paid" is derived from the cursor and the current
  month on every read. It is never stored.
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// DUES STATUS - Read-side projection
// =============================================================================

type DuesStatus string

const (
	DuesNotSet  DuesStatus = "Not Set"
	DuesPending DuesStatus = "Pending"
	DuesPaid    DuesStatus = "Paid"
)

// StatusOf derives the display status of a member's dues from the cursor:
// unset -> Not Set; cursor at or before the current month -> Pending
// (there is an unbilled month due); cursor in the future -> Paid.
func StatusOf(member *Member, now time.Time) DuesStatus {
	if member.DuesFrom == nil {
		return DuesNotSet
	}
	if member.DuesFrom.Ordinal() <= PeriodOf(now).Ordinal() {
		return DuesPending
	}
	return DuesPaid
}

// =============================================================================
// DUES TRACKER
// =============================================================================

// DuesTracker mutates member dues cursors through the member repository.
type DuesTracker struct {
	members MemberRepository
}

func NewDuesTracker(members MemberRepository) *DuesTracker {
	return &DuesTracker{members: members}
}

// AdvanceAfterBilling moves the member's cursor to the month after the
// billed Till period.
func (t *DuesTracker) AdvanceAfterBilling(ctx context.Context, memberID MemberID, till Period) error {
	return t.set(ctx, memberID, till.Next())
}

// RollbackOnDelete rewinds the cursor to the deleted receipt's From period,
// unconditionally. The cursor is NOT recomputed from the remaining
// receipts; see the package note in receipts.go.
func (t *DuesTracker) RollbackOnDelete(ctx context.Context, memberID MemberID, deletedFrom Period) error {
	return t.set(ctx, memberID, deletedFrom)
}

func (t *DuesTracker) set(ctx context.Context, memberID MemberID, cursor Period) error {
	member, err := t.members.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrMemberNotFound
	}
	member.DuesFrom = &cursor
	return t.members.Put(ctx, *member)
}
