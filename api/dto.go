/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types that
  already carry the interchange JSON shape (Member, Receipt, Society,
  Snapshot) are returned directly; this file holds the request bodies
  and the response wrappers that have no domain counterpart.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients

VALIDATION:
  Validation is done in the domain layer (registry, ledger), not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/json.go: Interchange serialization of Member and Receipt
*/
package api

import (
	"encoding/json"

	"github.com/digitalsociety/dues-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RegisterSocietyRequest is the request to register a society with its
// admin account.
type RegisterSocietyRequest struct {
	SocietyName        string `json:"societyName"`
	RegistrationNumber string `json:"registrationNumber"`
	RegistrationYear   int    `json:"registrationYear"`
	Email              string `json:"email"`
	Password           string `json:"password"`
}

// RegisterSocietyResponse returns the created society and its admin user.
type RegisterSocietyResponse struct {
	Society ledger.Society `json:"society"`
	User    ledger.User    `json:"user"`
}

// MemberDTO wraps a member with its derived dues status.
type MemberDTO struct {
	ledger.Member
	DuesStatus ledger.DuesStatus `json:"duesStatus"`
}

// MarshalJSON merges duesStatus into the member's own serialization. The
// embedded Member has a custom marshaler, which would otherwise be promoted
// and silently drop the status field.
func (d MemberDTO) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(d.Member)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	status, err := json.Marshal(d.DuesStatus)
	if err != nil {
		return nil, err
	}
	fields["duesStatus"] = status
	return json.Marshal(fields)
}

// CreateReceiptRequest is the request to record a payment receipt.
type CreateReceiptRequest struct {
	SocietyID        string `json:"societyId"`
	MemberID         string `json:"memberId"`
	PaymentFromMonth int    `json:"paymentFromMonth"`
	PaymentFromYear  int    `json:"paymentFromYear"`
	PaymentTillMonth int    `json:"paymentTillMonth"`
	PaymentTillYear  int    `json:"paymentTillYear"`
	Description      string `json:"description,omitempty"`
}

// BulkItemRequest is one member's period range in a bulk generation run.
type BulkItemRequest struct {
	MemberID  string `json:"memberId"`
	FromMonth int    `json:"fromMonth"`
	FromYear  int    `json:"fromYear"`
	TillMonth int    `json:"tillMonth"`
	TillYear  int    `json:"tillYear"`
}

// BulkGenerateRequest is the request to generate receipts for many members.
type BulkGenerateRequest struct {
	SocietyID   string            `json:"societyId"`
	Description string            `json:"description,omitempty"`
	Requests    []BulkItemRequest `json:"requests"`
}

// BulkGenerateResponse reports the outcome of a bulk run.
type BulkGenerateResponse struct {
	Created       int `json:"created"`
	Skipped       int `json:"skipped"`
	NothingToBill int `json:"nothingToBill"`
}

// LoginRequest is the request to establish a session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionDTO describes the current session.
type SessionDTO struct {
	User *ledger.User `json:"user"`
}

// NextReceiptNumberDTO carries the next free receipt number for a society.
type NextReceiptNumberDTO struct {
	NextReceiptNumber int `json:"nextReceiptNumber"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
