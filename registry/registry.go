/*
Package registry manages society, member and user lifecycle.

PURPOSE:
  Sits around the billing engine the way an admission desk sits around a
  ledger: everything that creates or removes the records the engine bills
  against goes through here, with its uniqueness rules enforced.

RULES ENFORCED:
  - Society name and registration number unique across all societies
    (case-insensitive).
  - Account email unique across all users.
  - At most one member per (society, building, apartment), case-insensitive.
  - Phone length validated against the member's country.
  - Society deletion fans out across members, receipts and users as one
    logical unit; no partial cascade is ever observable.

OUT OF SCOPE:
  Login and password flows. Registration stores the credentials it is
  given; authenticating against them is an external collaborator's job.
*/
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/digitalsociety/dues-engine/ledger"
)

// Registry coordinates lifecycle operations over the shared repositories.
type Registry struct {
	repos ledger.Repos
	newID ledger.IDGenerator
	clock ledger.Clock
}

func New(repos ledger.Repos) *Registry {
	return &Registry{repos: repos, newID: ledger.NewID, clock: time.Now}
}

// WithIDGenerator overrides the id source (tests).
func (g *Registry) WithIDGenerator(gen ledger.IDGenerator) *Registry {
	g.newID = gen
	return g
}

// WithClock overrides the time source (tests).
func (g *Registry) WithClock(clock ledger.Clock) *Registry {
	g.clock = clock
	return g
}

// =============================================================================
// SOCIETY REGISTRATION
// =============================================================================

// Registration is the input for creating a society and its admin account.
type Registration struct {
	SocietyName        string
	RegistrationNumber string
	RegistrationYear   int
	Email              string
	Password           string
}

// RegisterSociety creates a society plus its owning admin user and returns
// both. Duplicate email, society name or registration number (all
// case-insensitive) are rejected with a *ledger.ValidationError.
func (g *Registry) RegisterSociety(ctx context.Context, in Registration) (*ledger.Society, *ledger.User, error) {
	name := strings.TrimSpace(in.SocietyName)
	regNo := strings.TrimSpace(in.RegistrationNumber)
	email := strings.TrimSpace(in.Email)

	if name == "" || regNo == "" || email == "" || in.Password == "" {
		return nil, nil, &ledger.ValidationError{Reason: "all registration fields are required"}
	}

	if existing, err := g.repos.Users.GetByEmail(ctx, email); err != nil {
		return nil, nil, err
	} else if existing != nil {
		return nil, nil, &ledger.ValidationError{Field: "email", Reason: "an account with this email already exists"}
	}

	societies, err := g.repos.Societies.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range societies {
		if strings.EqualFold(s.Name, name) {
			return nil, nil, &ledger.ValidationError{Field: "name", Reason: "a society with this name already exists"}
		}
		if strings.EqualFold(s.RegistrationNumber, regNo) {
			return nil, nil, &ledger.ValidationError{Field: "registrationNumber", Reason: "a society with this registration number already exists"}
		}
	}

	society := ledger.Society{
		ID:                 ledger.SocietyID(g.newID()),
		Name:               name,
		RegistrationNumber: regNo,
		RegistrationYear:   in.RegistrationYear,
	}
	user := ledger.User{
		ID:          ledger.UserID(g.newID()),
		Email:       email,
		Password:    in.Password,
		SocietyID:   society.ID,
		SocietyName: society.Name,
		Role:        ledger.RoleAdmin,
	}

	if err := g.repos.Societies.Put(ctx, society); err != nil {
		return nil, nil, err
	}
	if err := g.repos.Users.Put(ctx, user); err != nil {
		return nil, nil, err
	}
	return &society, &user, nil
}

// UpdateSociety replaces the society record and propagates a rename into
// the denormalized SocietyName of its users.
func (g *Registry) UpdateSociety(ctx context.Context, updated ledger.Society) error {
	current, err := g.repos.Societies.Get(ctx, updated.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return ledger.ErrSocietyNotFound
	}
	if err := g.repos.Societies.Put(ctx, updated); err != nil {
		return err
	}

	if current.Name == updated.Name {
		return nil
	}
	users, err := g.repos.Users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.SocietyID == updated.ID {
			u.SocietyName = updated.Name
			if err := g.repos.Users.Put(ctx, u); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteSociety removes a society and everything it owns: members,
// receipts and user accounts, then the society itself. If the active
// session belonged to one of the removed users it is cleared.
func (g *Registry) DeleteSociety(ctx context.Context, societyID ledger.SocietyID) error {
	society, err := g.repos.Societies.Get(ctx, societyID)
	if err != nil {
		return err
	}
	if society == nil {
		return ledger.ErrSocietyNotFound
	}

	members, err := g.repos.Members.ListBySociety(ctx, societyID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := g.repos.Members.Delete(ctx, m.ID); err != nil {
			return err
		}
	}

	receipts, err := g.repos.Receipts.ListBySociety(ctx, societyID)
	if err != nil {
		return err
	}
	for _, r := range receipts {
		if err := g.repos.Receipts.Delete(ctx, r.ID); err != nil {
			return err
		}
	}

	sessionID, err := g.repos.Session.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	users, err := g.repos.Users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.SocietyID != societyID {
			continue
		}
		if err := g.repos.Users.Delete(ctx, u.ID); err != nil {
			return err
		}
		if u.ID == sessionID {
			if err := g.repos.Session.SetCurrentUserID(ctx, ""); err != nil {
				return err
			}
		}
	}

	return g.repos.Societies.Delete(ctx, societyID)
}

// =============================================================================
// MEMBERS
// =============================================================================

// AddMember validates and stores a new member for the society. The caller
// supplies the recurring charges and an optional initial dues cursor.
func (g *Registry) AddMember(ctx context.Context, societyID ledger.SocietyID, m ledger.Member) (*ledger.Member, error) {
	society, err := g.repos.Societies.Get(ctx, societyID)
	if err != nil {
		return nil, err
	}
	if society == nil {
		return nil, ledger.ErrSocietyNotFound
	}

	m.SocietyID = societyID
	if err := g.validateMember(ctx, &m); err != nil {
		return nil, err
	}

	m.ID = ledger.MemberID(g.newID())
	m.CreatedAt = g.clock()
	for i := range m.OtherBills {
		if m.OtherBills[i].ID == "" {
			m.OtherBills[i].ID = g.newID()
		}
	}
	if err := g.repos.Members.Put(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMember validates and replaces an existing member record. The dues
// cursor passed in wins: this is the explicit operator-edit path, the only
// mutation of the cursor outside the billing flow.
func (g *Registry) UpdateMember(ctx context.Context, m ledger.Member) error {
	current, err := g.repos.Members.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return ledger.ErrMemberNotFound
	}
	m.SocietyID = current.SocietyID
	m.CreatedAt = current.CreatedAt
	if err := g.validateMember(ctx, &m); err != nil {
		return err
	}
	return g.repos.Members.Put(ctx, m)
}

// DeleteMember removes one member. Receipts are kept: they carry name
// snapshots and remain readable after the member is gone.
func (g *Registry) DeleteMember(ctx context.Context, id ledger.MemberID) error {
	current, err := g.repos.Members.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ledger.ErrMemberNotFound
	}
	return g.repos.Members.Delete(ctx, id)
}

func (g *Registry) validateMember(ctx context.Context, m *ledger.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Building = strings.TrimSpace(m.Building)
	m.Apartment = strings.TrimSpace(m.Apartment)

	if m.Name == "" || m.Phone == "" || m.Building == "" || m.Apartment == "" {
		return &ledger.ValidationError{Reason: "name, phone, building and apartment are required"}
	}
	if country := CountryByCode(m.CountryCode); country != nil && !country.ValidPhoneLength(m.Phone) {
		return &ledger.ValidationError{Field: "phone", Reason: "invalid phone number length for " + country.Name}
	}
	if m.DuesFrom != nil && (m.DuesFrom.Month < 1 || m.DuesFrom.Month > 12) {
		return &ledger.ValidationError{Field: "duesFromMonth", Reason: "month must be between 1 and 12"}
	}

	siblings, err := g.repos.Members.ListBySociety(ctx, m.SocietyID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ID == m.ID {
			continue
		}
		if strings.EqualFold(other.Building, m.Building) && strings.EqualFold(other.Apartment, m.Apartment) {
			return &ledger.ValidationError{Field: "apartment", Reason: "a member is already registered for this building and apartment"}
		}
	}
	return nil
}
