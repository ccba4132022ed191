/*
Package ledger is the core engine for society dues billing.

PURPOSE:
  This package contains the domain types and algorithms for monthly dues
  management: computing itemized bills from a member's recurring charges,
  recording immutable payment receipts, preventing duplicate billing for
  overlapping periods, and advancing each member's dues cursor.

KEY CONCEPTS IN THIS FILE (types.go):
  - Society: a registered housing society that owns members and receipts
  - Member: a flat owner with recurring charges and a dues cursor
  - Receipt: an immutable record of one billing event
  - User: an account tied to a society (admin) or to none (superadmin)

DESIGN PRINCIPLES:
  1. Immutability: receipts are never edited, only deleted
  2. Precision: charge amounts use decimal.Decimal, never float64
  3. Snapshots: receipts denormalize member/society names at creation time
     so history stays readable after renames and deletions
  4. Explicit context: every operation takes society/member ids as
     parameters; nothing reads ambient session state

SEE ALSO:
  - period.go: month-granularity period arithmetic
  - calculator.go: recurring charges -> itemized bill
  - receipts.go: receipt numbering, overlap detection, create/delete
  - dues.go: the dues cursor and its status projection
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SocietyID string
type MemberID string
type ReceiptID string
type UserID string

// IDGenerator produces collision-free string identifiers for new records.
// Injected so tests can use deterministic ids.
type IDGenerator func() string

// NewID is the default generator (random UUID v4).
func NewID() string { return uuid.NewString() }

// Clock provides "now" for receipt dates, backup timestamps and the dues
// status projection. Injected so tests can pin time.
type Clock func() time.Time

// =============================================================================
// SOCIETY
// =============================================================================

type SignatureType string

const (
	SignatureText  SignatureType = "text"
	SignatureImage SignatureType = "image"
)

// Society is a registered housing society. Name and registration number are
// unique across all societies, case-insensitively (enforced by registry).
type Society struct {
	ID                 SocietyID `json:"id"`
	Name               string    `json:"name"`
	Address            string    `json:"address"`
	RegistrationNumber string    `json:"registrationNumber"`
	RegistrationYear   int       `json:"registrationYear"`

	// Receipt signature block, printed on generated receipts.
	SignatureAuthority string        `json:"signatureAuthority,omitempty"`
	SignatureType      SignatureType `json:"signatureType,omitempty"`
	SignatureText      string        `json:"signatureText,omitempty"`
	SignatureImage     string        `json:"signatureImage,omitempty"` // base64
}

// =============================================================================
// MEMBER
// =============================================================================

// OtherBill is an additional recurring monthly charge beyond maintenance and
// water (e.g. parking, clubhouse). Amounts <= 0 are kept but never billed.
type OtherBill struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Member belongs to exactly one society. At most one member may exist per
// (society, building, apartment), case-insensitively.
//
// DuesFrom is the dues cursor: the first unbilled period. A nil cursor means
// the member was never billed and no initial period was set ("Not Set").
// The cursor is mutated only by the billing flow (advance on create, rollback
// on delete) or by an explicit operator edit.
type Member struct {
	ID          MemberID  `json:"id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"countryCode"`
	Phone       string    `json:"phone"`
	Building    string    `json:"building"`
	Apartment   string    `json:"apartment"`
	SocietyID   SocietyID `json:"societyId"`

	MonthlyMaintenance decimal.Decimal `json:"monthlyMaintenance"`
	MonthlyWaterBill   decimal.Decimal `json:"monthlyWaterBill"`
	OtherBills         []OtherBill     `json:"otherBills"`

	// Serialized as duesFromMonth/duesFromYear; see json.go.
	DuesFrom *Period

	CreatedAt time.Time `json:"createdAt"`
}

// =============================================================================
// RECEIPT
// =============================================================================

// PaymentItem is one line of an itemized bill.
type PaymentItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt is the immutable record of one billing event for one member.
//
// INVARIANTS:
//   - ReceiptNumber is per-society, sequential, 1-based and gap-tolerant:
//     numbers are never reused after deletion.
//   - Payment covers the inclusive range [From, Till] with From <= Till.
//   - For a given member, no two receipts' ranges ever overlap.
//
// MemberName and SocietyName are snapshots taken at creation, not live
// references; a later rename or deletion does not rewrite history.
type Receipt struct {
	ID            ReceiptID `json:"id"`
	ReceiptNumber int       `json:"receiptNumber"`
	Date          time.Time `json:"date"`

	MemberID    MemberID  `json:"memberId"`
	MemberName  string    `json:"memberName"`
	SocietyID   SocietyID `json:"societyId"`
	SocietyName string    `json:"societyName"`

	Items       []PaymentItem   `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`

	// Serialized as paymentFromMonth/Year, paymentTillMonth/Year; see json.go.
	Payment PeriodRange

	Description string `json:"description,omitempty"`
}

// =============================================================================
// USER
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// User is an account. Admins belong to one society; the superadmin to none.
// Password is stored as-is: authentication is an external collaborator and
// explicitly not part of this engine.
type User struct {
	ID          UserID    `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"password,omitempty"`
	SocietyID   SocietyID `json:"societyId,omitempty"`
	SocietyName string    `json:"societyName,omitempty"`
	Role        Role      `json:"role"`
}
