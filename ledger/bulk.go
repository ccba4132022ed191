/*
bulk.go - Batch receipt generation

PURPOSE:
  Runs calculator + receipt ledger + dues tracker across a list of
  (member, period) requests and aggregates the outcome. One bad request
  never aborts the batch; it is counted and the run continues.

ORDERING & ATOMICITY:
  Requests are evaluated independently, in list order. Receipt numbers are
  assigned sequentially in INPUT order starting from the society's next
  number, then all staged receipts are persisted in one repository batch
  and all dues-cursor advances in another. Readers never observe a
  partially numbered batch, and sequential number allocation cannot race a
  concurrent read of the list view.

TRUST MODEL:
  A request's From period usually comes from the member's dues cursor as
  captured by the caller at render time. The orchestrator does not assume
  that: every request is re-validated against the CURRENT receipts at
  submission time, so a stale cursor degrades to an overlap skip, never to
  a double billing.
*/
package ledger

import (
	"context"
	"strings"
)

// =============================================================================
// BULK GENERATION
// =============================================================================

// BulkRequest asks for one member to be billed for [From, Till].
type BulkRequest struct {
	MemberID MemberID
	From     Period
	Till     Period
}

// BatchResult aggregates a bulk run.
//
// Skipped counts conflict rejections (inverted period, overlapping period).
// NothingToBill counts members whose computed total was <= 0 - a distinct
// zero-amount case, not a conflict. Requests whose member cannot be
// resolved in the target society are dropped silently and appear in no
// counter, matching the single-receipt flow's treatment of stale rows.
type BatchResult struct {
	Created       int
	Skipped       int
	NothingToBill int
}

// BulkGenerator stages and commits batch receipt generation.
type BulkGenerator struct {
	repos  Repos
	ledger *ReceiptLedger
}

func NewBulkGenerator(repos Repos, ledger *ReceiptLedger) *BulkGenerator {
	return &BulkGenerator{repos: repos, ledger: ledger}
}

// Generate processes the requests for one society and commits all resulting
// receipts and dues advances in one observable step.
func (g *BulkGenerator) Generate(ctx context.Context, societyID SocietyID, requests []BulkRequest, description string) (BatchResult, error) {
	var result BatchResult

	society, err := g.repos.Societies.Get(ctx, societyID)
	if err != nil {
		return result, err
	}
	if society == nil {
		return result, ErrSocietyNotFound
	}

	// Same normalization as the single-receipt path.
	description = strings.TrimSpace(description)

	number, err := g.ledger.NextReceiptNumber(ctx, societyID)
	if err != nil {
		return result, err
	}

	var (
		staged   []Receipt
		advanced []Member
		// advancedIdx lets a later request for the same member overwrite the
		// staged cursor rather than queue two conflicting updates.
		advancedIdx = map[MemberID]int{}
	)

	for _, req := range requests {
		member, err := g.repos.Members.Get(ctx, req.MemberID)
		if err != nil {
			return result, err
		}
		if member == nil || member.SocietyID != societyID {
			continue // unresolvable request, dropped silently
		}

		rng := PeriodRange{From: req.From, Till: req.Till}
		if !rng.Valid() {
			result.Skipped++
			continue
		}

		overlap, err := g.ledger.HasOverlap(ctx, req.MemberID, req.From, req.Till)
		if err != nil {
			return result, err
		}
		if !overlap {
			// Also guard against collisions within the batch itself.
			for _, s := range staged {
				if s.MemberID == req.MemberID && s.Payment.Overlaps(rng) {
					overlap = true
					break
				}
			}
		}
		if overlap {
			result.Skipped++
			continue
		}

		bill := Calculate(member, req.From, req.Till)
		if !bill.Billable() {
			result.NothingToBill++
			continue
		}

		staged = append(staged, Receipt{
			ID:            ReceiptID(g.ledger.newID()),
			ReceiptNumber: number,
			Date:          g.ledger.clock(),
			MemberID:      member.ID,
			MemberName:    member.Name,
			SocietyID:     society.ID,
			SocietyName:   society.Name,
			Items:         bill.Items,
			TotalAmount:   bill.Total,
			Payment:       rng,
			Description:   description,
		})
		number++

		cursor := req.Till.Next()
		updated := *member
		updated.DuesFrom = &cursor
		if i, ok := advancedIdx[member.ID]; ok {
			advanced[i] = updated
		} else {
			advancedIdx[member.ID] = len(advanced)
			advanced = append(advanced, updated)
		}
	}

	if len(staged) > 0 {
		if err := g.repos.Receipts.PutBatch(ctx, staged); err != nil {
			return result, err
		}
		if err := g.repos.Members.PutBatch(ctx, advanced); err != nil {
			return result, err
		}
	}

	result.Created = len(staged)
	return result, nil
}
