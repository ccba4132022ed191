/*
receipts.go - Receipt numbering, overlap detection, create and delete

PURPOSE:
  ReceiptLedger owns the receipt collection for billing purposes. It
  assigns per-society receipt numbers, refuses to bill a member twice for
  the same month, and reverses the dues cursor on deletion.

CRITICAL INVARIANTS:
  1. NO DOUBLE BILLING: for a given member, no two receipts' [from, till]
     ranges ever overlap, not even at a single month boundary.
  2. MONOTONIC NUMBERS: receipt numbers per society only grow. Deleting
     receipt #3 and creating a new one yields #(max+1), never #3 again.
  3. NO EDITS: a receipt's only mutation is deletion.

DELETE-THEN-ROLLBACK:
  Delete returns the deleted receipt's member id and From period so the
  dues tracker can roll the cursor back to exactly that period - NOT to
  some recomputed "latest remaining receipt" value. Deleting a receipt
  always resets the member's cursor to that receipt's original From, even
  if later receipts still exist. Confirm with stakeholders before changing
  this behavior.
*/
package ledger

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// RECEIPT LEDGER
// =============================================================================

// ReceiptLedger creates and deletes receipts against the shared repositories.
type ReceiptLedger struct {
	repos Repos
	newID IDGenerator
	clock Clock
}

// NewReceiptLedger wires a ledger over the shared repositories.
func NewReceiptLedger(repos Repos) *ReceiptLedger {
	return &ReceiptLedger{repos: repos, newID: NewID, clock: time.Now}
}

// WithIDGenerator overrides the id source (tests).
func (l *ReceiptLedger) WithIDGenerator(gen IDGenerator) *ReceiptLedger {
	l.newID = gen
	return l
}

// WithClock overrides the time source (tests).
func (l *ReceiptLedger) WithClock(clock Clock) *ReceiptLedger {
	l.clock = clock
	return l
}

// Now reads the ledger's clock. Callers deriving dues status use this so
// a test clock flows through everywhere.
func (l *ReceiptLedger) Now() time.Time {
	return l.clock()
}

// NextReceiptNumber returns one past the highest number ever issued in the
// society. Monotonic per society, not globally. The store's high-water mark
// counts deleted receipts too, so deletions leave gaps in the sequence but
// never free a number for reuse.
func (l *ReceiptLedger) NextReceiptNumber(ctx context.Context, societyID SocietyID) (int, error) {
	highest, err := l.repos.Receipts.HighestNumber(ctx, societyID)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// HasOverlap reports whether any existing receipt for the member shares a
// month with [from, till]. Member ids are society-scoped by construction,
// so the check spans all of the member's receipts.
func (l *ReceiptLedger) HasOverlap(ctx context.Context, memberID MemberID, from, till Period) (bool, error) {
	existing, err := l.findOverlap(ctx, memberID, from, till)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (l *ReceiptLedger) findOverlap(ctx context.Context, memberID MemberID, from, till Period) (*Receipt, error) {
	receipts, err := l.repos.Receipts.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		r := &receipts[i]
		if Overlaps(from, till, r.Payment.From, r.Payment.Till) {
			return r, nil
		}
	}
	return nil, nil
}

// Create bills one member for [from, till] and persists the receipt.
//
// Failure modes, all recoverable and side-effect free:
//   - ErrInvalidPeriod:   from after till
//   - ErrMemberNotFound / ErrSocietyNotFound
//   - *OverlapError:      period collides with an existing receipt
//   - ErrNothingToBill:   computed total <= 0
//
// On success the receipt carries the next society-scoped number and
// date = now; the caller advances the dues cursor afterwards.
func (l *ReceiptLedger) Create(ctx context.Context, societyID SocietyID, memberID MemberID, from, till Period, description string) (*Receipt, error) {
	if !(PeriodRange{From: from, Till: till}).Valid() {
		return nil, ErrInvalidPeriod
	}

	member, err := l.repos.Members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.SocietyID != societyID {
		return nil, ErrMemberNotFound
	}

	society, err := l.repos.Societies.Get(ctx, societyID)
	if err != nil {
		return nil, err
	}
	if society == nil {
		return nil, ErrSocietyNotFound
	}

	if existing, err := l.findOverlap(ctx, memberID, from, till); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &OverlapError{
			MemberID:  memberID,
			Requested: PeriodRange{From: from, Till: till},
			Existing:  existing.Payment,
			ReceiptID: existing.ID,
		}
	}

	bill := Calculate(member, from, till)
	if !bill.Billable() {
		return nil, ErrNothingToBill
	}

	number, err := l.NextReceiptNumber(ctx, societyID)
	if err != nil {
		return nil, err
	}

	receipt := Receipt{
		ID:            ReceiptID(l.newID()),
		ReceiptNumber: number,
		Date:          l.clock(),
		MemberID:      member.ID,
		MemberName:    member.Name,
		SocietyID:     society.ID,
		SocietyName:   society.Name,
		Items:         bill.Items,
		TotalAmount:   bill.Total,
		Payment:       PeriodRange{From: from, Till: till},
		Description:   strings.TrimSpace(description),
	}

	if err := l.repos.Receipts.Put(ctx, receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// DeletedReceipt identifies what a Delete removed: the member whose cursor
// must be rolled back, and the From period to roll it back to.
type DeletedReceipt struct {
	ReceiptID     ReceiptID
	ReceiptNumber int
	MemberID      MemberID
	From          Period
}

// Delete removes a receipt. Returns ErrReceiptNotFound if the id does not
// resolve (e.g. already deleted); otherwise removes it and reports the
// member id and original From period for the dues rollback.
func (l *ReceiptLedger) Delete(ctx context.Context, id ReceiptID) (*DeletedReceipt, error) {
	receipt, err := l.repos.Receipts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}
	if err := l.repos.Receipts.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &DeletedReceipt{
		ReceiptID:     receipt.ID,
		ReceiptNumber: receipt.ReceiptNumber,
		MemberID:      receipt.MemberID,
		From:          receipt.Payment.From,
	}, nil
}
