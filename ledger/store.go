/*
store.go - Repository interfaces for the four top-level collections

PURPOSE:
  Defines the boundary between the engine and persistence. The original
  system kept everything in UI-bound observable lists; here each top-level
  collection is an explicit repository with list/get/put/delete semantics,
  and the orchestration layer is responsible for notifying observers after
  a commit.

ATOMIC BATCHES:
  PutBatch on receipts and members gives bulk generation its all-or-
  visible-together guarantee: receipt numbers are allocated up front and
  the whole batch lands in one call, so readers never observe a partially
  numbered batch.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and the dev server
  - store/sqlite/sqlite.go: SQLite-backed, for production
*/
package ledger

import "context"

// =============================================================================
// REPOSITORIES
// =============================================================================

// SocietyRepository stores societies.
//
// ReplaceAll swaps the whole collection in one step; it exists for backup
// restore, which replaces the live data wholesale, and must never be used
// by the billing flow.
type SocietyRepository interface {
	List(ctx context.Context) ([]Society, error)
	Get(ctx context.Context, id SocietyID) (*Society, error)
	Put(ctx context.Context, s Society) error
	Delete(ctx context.Context, id SocietyID) error
	ReplaceAll(ctx context.Context, ss []Society) error
}

// MemberRepository stores members.
type MemberRepository interface {
	List(ctx context.Context) ([]Member, error)
	ListBySociety(ctx context.Context, societyID SocietyID) ([]Member, error)
	Get(ctx context.Context, id MemberID) (*Member, error)
	Put(ctx context.Context, m Member) error

	// PutBatch upserts several members atomically. Used to apply the dues
	// cursor advances of a bulk run in one observable step.
	PutBatch(ctx context.Context, ms []Member) error

	Delete(ctx context.Context, id MemberID) error
	ReplaceAll(ctx context.Context, ms []Member) error
}

// ReceiptRepository stores receipts. Receipts are immutable: Put is only
// ever called with freshly created records, never to edit one in place.
type ReceiptRepository interface {
	List(ctx context.Context) ([]Receipt, error)
	ListBySociety(ctx context.Context, societyID SocietyID) ([]Receipt, error)
	ListByMember(ctx context.Context, memberID MemberID) ([]Receipt, error)
	Get(ctx context.Context, id ReceiptID) (*Receipt, error)
	Put(ctx context.Context, r Receipt) error

	// HighestNumber reports the highest receipt number ever issued in the
	// society, counting since-deleted receipts. Implementations keep a
	// per-society high-water mark advanced by Put/PutBatch and untouched by
	// Delete, so deleting the top-numbered receipt never frees its number.
	// ReplaceAll rebuilds the marks from the new dataset.
	HighestNumber(ctx context.Context, societyID SocietyID) (int, error)

	// PutBatch persists several receipts atomically.
	PutBatch(ctx context.Context, rs []Receipt) error

	Delete(ctx context.Context, id ReceiptID) error
	ReplaceAll(ctx context.Context, rs []Receipt) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Put(ctx context.Context, u User) error
	Delete(ctx context.Context, id UserID) error
	ReplaceAll(ctx context.Context, us []User) error
}

// =============================================================================
// SESSION - The single active-user record
// =============================================================================

// SessionStore holds the id of the currently signed-in user, or "" when no
// session is active. Restore reconciles it against the restored users.
type SessionStore interface {
	CurrentUserID(ctx context.Context) (UserID, error)
	SetCurrentUserID(ctx context.Context, id UserID) error
}

// =============================================================================
// REPOS - Convenience bundle
// =============================================================================

// Repos bundles the four collections plus the session record. Components
// take the bundle and read the current state on every operation; no
// component retains its own copy.
type Repos struct {
	Societies SocietyRepository
	Members   MemberRepository
	Receipts  ReceiptRepository
	Users     UserRepository
	Session   SessionStore
}
