package registry_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalsociety/dues-engine/ledger"
	"github.com/digitalsociety/dues-engine/ledger/store"
	"github.com/digitalsociety/dues-engine/registry"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*registry.Registry, ledger.Repos) {
	t.Helper()

	repos := store.NewMemory().Repos()
	seq := 0
	reg := registry.New(repos).
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }).
		WithClock(func() time.Time { return testNow })
	return reg, repos
}

func register(t *testing.T, reg *registry.Registry, name, regNo, email string) *ledger.Society {
	t.Helper()
	society, _, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName:        name,
		RegistrationNumber: regNo,
		RegistrationYear:   2020,
		Email:              email,
		Password:           "secret",
	})
	require.NoError(t, err)
	return society
}

func validMember(name, building, apartment string) ledger.Member {
	return ledger.Member{
		Name:               name,
		CountryCode:        "+91",
		Phone:              "9876543210",
		Building:           building,
		Apartment:          apartment,
		MonthlyMaintenance: decimal.NewFromInt(1000),
	}
}

// =============================================================================
// SOCIETY REGISTRATION TESTS
// =============================================================================

func TestRegisterSociety_CreatesAdminAccount(t *testing.T) {
	reg, repos := newTestRegistry(t)

	society, user, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName:        "Green Park",
		RegistrationNumber: "MH-123",
		RegistrationYear:   2019,
		Email:              "admin@greenpark.example",
		Password:           "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "Green Park", society.Name)
	assert.Equal(t, ledger.RoleAdmin, user.Role)
	assert.Equal(t, society.ID, user.SocietyID)
	assert.Equal(t, society.Name, user.SocietyName)

	stored, err := repos.Users.GetByEmail(context.Background(), "admin@greenpark.example")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRegisterSociety_MissingFieldsRejected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, _, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName: "Green Park",
	})

	var ve *ledger.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRegisterSociety_DuplicateNameCaseInsensitive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	register(t, reg, "Green Park", "MH-123", "a@example.com")

	_, _, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName:        "green park",
		RegistrationNumber: "MH-999",
		Email:              "b@example.com",
		Password:           "secret",
	})

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
}

func TestRegisterSociety_DuplicateRegistrationNumber(t *testing.T) {
	reg, _ := newTestRegistry(t)
	register(t, reg, "Green Park", "MH-123", "a@example.com")

	_, _, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName:        "Blue Hills",
		RegistrationNumber: "mh-123",
		Email:              "b@example.com",
		Password:           "secret",
	})

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "registrationNumber", ve.Field)
}

func TestRegisterSociety_DuplicateEmail(t *testing.T) {
	reg, _ := newTestRegistry(t)
	register(t, reg, "Green Park", "MH-123", "a@example.com")

	_, _, err := reg.RegisterSociety(context.Background(), registry.Registration{
		SocietyName:        "Blue Hills",
		RegistrationNumber: "MH-999",
		Email:              "a@example.com",
		Password:           "secret",
	})

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

// =============================================================================
// SOCIETY UPDATE AND DELETE TESTS
// =============================================================================

func TestUpdateSociety_RenamePropagatesToUsers(t *testing.T) {
	reg, repos := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	renamed := *society
	renamed.Name = "Greener Park"
	require.NoError(t, reg.UpdateSociety(ctx, renamed))

	user, err := repos.Users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Greener Park", user.SocietyName)
}

func TestUpdateSociety_UnknownID(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.UpdateSociety(context.Background(), ledger.Society{ID: "ghost", Name: "X"})

	assert.ErrorIs(t, err, ledger.ErrSocietyNotFound)
}

func TestDeleteSociety_CascadesAndClearsSession(t *testing.T) {
	// GIVEN: a society with a member, a receipt and a logged-in admin
	// WHEN: the society is deleted
	// THEN: members, receipts and users are gone and the session is cleared

	reg, repos := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	member, err := reg.AddMember(ctx, society.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	receiptLedger := ledger.NewReceiptLedger(repos)
	_, err = receiptLedger.Create(ctx, society.ID, member.ID,
		ledger.NewPeriod(1, 2024), ledger.NewPeriod(1, 2024), "")
	require.NoError(t, err)

	admin, err := repos.Users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NoError(t, repos.Session.SetCurrentUserID(ctx, admin.ID))

	require.NoError(t, reg.DeleteSociety(ctx, society.ID))

	members, _ := repos.Members.ListBySociety(ctx, society.ID)
	receipts, _ := repos.Receipts.ListBySociety(ctx, society.ID)
	users, _ := repos.Users.List(ctx)
	sessionID, _ := repos.Session.CurrentUserID(ctx)

	assert.Empty(t, members)
	assert.Empty(t, receipts)
	assert.Empty(t, users)
	assert.Empty(t, sessionID)

	gone, err := repos.Societies.Get(ctx, society.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// =============================================================================
// MEMBER TESTS
// =============================================================================

func TestAddMember_AssignsIDsAndTimestamps(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	input := validMember("Asha", "A", "101")
	input.OtherBills = []ledger.OtherBill{{Name: "Parking", Amount: decimal.NewFromInt(150)}}

	member, err := reg.AddMember(ctx, society.ID, input)
	require.NoError(t, err)

	assert.NotEmpty(t, member.ID)
	assert.Equal(t, testNow, member.CreatedAt)
	assert.Equal(t, society.ID, member.SocietyID)
	require.Len(t, member.OtherBills, 1)
	assert.NotEmpty(t, member.OtherBills[0].ID)
}

func TestAddMember_PhoneLengthValidated(t *testing.T) {
	reg, _ := newTestRegistry(t)
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	bad := validMember("Asha", "A", "101")
	bad.Phone = "12345" // India expects 10 digits

	_, err := reg.AddMember(context.Background(), society.ID, bad)

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone", ve.Field)
}

func TestAddMember_UnknownCountrySkipsPhoneValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	m := validMember("Asha", "A", "101")
	m.CountryCode = "+999"
	m.Phone = "12"

	_, err := reg.AddMember(context.Background(), society.ID, m)

	assert.NoError(t, err)
}

func TestAddMember_DuplicateApartmentCaseInsensitive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	_, err := reg.AddMember(ctx, society.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	_, err = reg.AddMember(ctx, society.ID, validMember("Ravi", "a", "101"))

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "apartment", ve.Field)
}

func TestAddMember_SameApartmentDifferentSocietyAllowed(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	first := register(t, reg, "Green Park", "MH-123", "a@example.com")
	second := register(t, reg, "Blue Hills", "MH-456", "b@example.com")

	_, err := reg.AddMember(ctx, first.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	_, err = reg.AddMember(ctx, second.ID, validMember("Ravi", "A", "101"))
	assert.NoError(t, err)
}

func TestAddMember_InvalidDuesMonthRejected(t *testing.T) {
	reg, _ := newTestRegistry(t)
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	m := validMember("Asha", "A", "101")
	cursor := ledger.NewPeriod(13, 2024)
	m.DuesFrom = &cursor

	_, err := reg.AddMember(context.Background(), society.ID, m)

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "duesFromMonth", ve.Field)
}

func TestUpdateMember_PreservesSocietyAndCreatedAt(t *testing.T) {
	reg, repos := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	member, err := reg.AddMember(ctx, society.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	edited := *member
	edited.Name = "Asha Rao"
	edited.SocietyID = "something-else" // must be ignored
	require.NoError(t, reg.UpdateMember(ctx, edited))

	stored, err := repos.Members.Get(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", stored.Name)
	assert.Equal(t, society.ID, stored.SocietyID)
	assert.Equal(t, member.CreatedAt, stored.CreatedAt)
}

func TestUpdateMember_CursorEditWins(t *testing.T) {
	// The operator edit path may move the dues cursor anywhere.
	reg, repos := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	member, err := reg.AddMember(ctx, society.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	edited := *member
	cursor := ledger.NewPeriod(9, 2025)
	edited.DuesFrom = &cursor
	require.NoError(t, reg.UpdateMember(ctx, edited))

	stored, err := repos.Members.Get(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DuesFrom)
	assert.True(t, stored.DuesFrom.Equal(cursor))
}

func TestDeleteMember_KeepsReceipts(t *testing.T) {
	reg, repos := newTestRegistry(t)
	ctx := context.Background()
	society := register(t, reg, "Green Park", "MH-123", "a@example.com")

	member, err := reg.AddMember(ctx, society.ID, validMember("Asha", "A", "101"))
	require.NoError(t, err)

	receiptLedger := ledger.NewReceiptLedger(repos)
	receipt, err := receiptLedger.Create(ctx, society.ID, member.ID,
		ledger.NewPeriod(1, 2024), ledger.NewPeriod(1, 2024), "")
	require.NoError(t, err)

	require.NoError(t, reg.DeleteMember(ctx, member.ID))

	kept, err := repos.Receipts.Get(ctx, receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "Asha", kept.MemberName)
}

func TestDeleteMember_Unknown(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.DeleteMember(context.Background(), "ghost")

	assert.ErrorIs(t, err, ledger.ErrMemberNotFound)
}
