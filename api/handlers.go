/*
handlers.go - HTTP API handlers for the dues management system

PURPOSE:
  Exposes the dues engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Societies:
    GET    /api/societies              List all societies
    POST   /api/societies              Register society + admin account
    GET    /api/societies/{id}         Get society details
    PUT    /api/societies/{id}         Update society
    DELETE /api/societies/{id}         Delete society (cascades)

  Members:
    GET    /api/members                List members (?societyId= filter)
    POST   /api/members                Add member
    GET    /api/members/{id}           Get member with dues status
    PUT    /api/members/{id}           Update member
    DELETE /api/members/{id}           Remove member

  Receipts:
    GET    /api/receipts               List receipts (?societyId=/?memberId=)
    POST   /api/receipts               Record a payment receipt
    GET    /api/receipts/{id}          Get a receipt
    DELETE /api/receipts/{id}          Delete receipt (rewinds dues cursor)
    GET    /api/receipts/next-number   Next free number (?societyId=)
    POST   /api/receipts/bulk          Bulk generation run

  Backups:
    GET    /api/backups                Snapshot history (newest first)
    POST   /api/backups                Create snapshot now
    POST   /api/backups/import         Import an exported snapshot
    POST   /api/backups/{ts}/restore   Restore a snapshot
    DELETE /api/backups/{ts}           Delete a snapshot
    GET    /api/backups/settings       Auto-backup settings
    PUT    /api/backups/settings       Update auto-backup settings

  Misc:
    GET    /api/countries              Phone validation country table
    GET    /api/session                Current session
    POST   /api/session                Log in
    DELETE /api/session                Log out

REQUEST FLOW:
  1. Parse HTTP request
  2. Call domain logic (registry, ledger, backup)
  3. Serialize response
  4. Map domain errors to HTTP status

ERROR HANDLING:
  - 400: Validation errors, invalid periods, nothing to bill, bad imports
  - 404: Resource not found
  - 409: Period overlap, duplicate snapshot
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/digitalsociety/dues-engine/backup"
	"github.com/digitalsociety/dues-engine/ledger"
	"github.com/digitalsociety/dues-engine/registry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repos    ledger.Repos
	Registry *registry.Registry
	Ledger   *ledger.ReceiptLedger
	Dues     *ledger.DuesTracker
	Bulk     *ledger.BulkGenerator
	Backups  *backup.Manager
}

// NewHandler wires the domain services over the given repositories.
func NewHandler(repos ledger.Repos, backups *backup.Manager) *Handler {
	receiptLedger := ledger.NewReceiptLedger(repos)
	return &Handler{
		Repos:    repos,
		Registry: registry.New(repos),
		Ledger:   receiptLedger,
		Dues:     ledger.NewDuesTracker(repos.Members),
		Bulk:     ledger.NewBulkGenerator(repos, receiptLedger),
		Backups:  backups,
	}
}

// =============================================================================
// SOCIETY HANDLERS
// =============================================================================

// ListSocieties returns all societies.
func (h *Handler) ListSocieties(w http.ResponseWriter, r *http.Request) {
	societies, err := h.Repos.Societies.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list societies", err)
		return
	}
	if societies == nil {
		societies = []ledger.Society{}
	}
	writeJSON(w, http.StatusOK, societies)
}

// RegisterSociety registers a society together with its admin account.
func (h *Handler) RegisterSociety(w http.ResponseWriter, r *http.Request) {
	var req RegisterSocietyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	society, user, err := h.Registry.RegisterSociety(r.Context(), registry.Registration{
		SocietyName:        req.SocietyName,
		RegistrationNumber: req.RegistrationNumber,
		RegistrationYear:   req.RegistrationYear,
		Email:              req.Email,
		Password:           req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterSocietyResponse{Society: *society, User: *user})
}

// GetSociety returns a single society.
func (h *Handler) GetSociety(w http.ResponseWriter, r *http.Request) {
	id := ledger.SocietyID(chi.URLParam(r, "id"))

	society, err := h.Repos.Societies.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get society", err)
		return
	}
	if society == nil {
		writeError(w, http.StatusNotFound, "Society not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, society)
}

// UpdateSociety updates a society's profile and signature settings.
func (h *Handler) UpdateSociety(w http.ResponseWriter, r *http.Request) {
	id := ledger.SocietyID(chi.URLParam(r, "id"))

	var society ledger.Society
	if err := json.NewDecoder(r.Body).Decode(&society); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	society.ID = id

	if err := h.Registry.UpdateSociety(r.Context(), society); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, society)
}

// DeleteSociety removes a society and everything that hangs off it.
func (h *Handler) DeleteSociety(w http.ResponseWriter, r *http.Request) {
	id := ledger.SocietyID(chi.URLParam(r, "id"))

	if err := h.Registry.DeleteSociety(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns members, optionally filtered by society, each with
// its derived dues status.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		members []ledger.Member
		err     error
	)
	if societyID := r.URL.Query().Get("societyId"); societyID != "" {
		members, err = h.Repos.Members.ListBySociety(ctx, ledger.SocietyID(societyID))
	} else {
		members, err = h.Repos.Members.List(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	now := h.Ledger.Now()
	dtos := make([]MemberDTO, len(members))
	for i := range members {
		dtos[i] = MemberDTO{Member: members[i], DuesStatus: ledger.StatusOf(&members[i], now)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMember adds a member to a society.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var member ledger.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Registry.AddMember(r.Context(), member.SocietyID, member)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MemberDTO{
		Member:     *created,
		DuesStatus: ledger.StatusOf(created, h.Ledger.Now()),
	})
}

// GetMember returns a member with its dues status.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))

	member, err := h.Repos.Members.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, MemberDTO{
		Member:     *member,
		DuesStatus: ledger.StatusOf(member, h.Ledger.Now()),
	})
}

// UpdateMember updates a member's profile, charges, or dues cursor.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))

	var member ledger.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	member.ID = id

	if err := h.Registry.UpdateMember(r.Context(), member); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Repos.Members.Get(r.Context(), id)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload member", err)
		return
	}
	writeJSON(w, http.StatusOK, MemberDTO{
		Member:     *updated,
		DuesStatus: ledger.StatusOf(updated, h.Ledger.Now()),
	})
}

// DeleteMember removes a member.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))

	if err := h.Registry.DeleteMember(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECEIPT HANDLERS
// =============================================================================

// ListReceipts returns receipts, optionally filtered by society or member.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		receipts []ledger.Receipt
		err      error
	)
	switch {
	case r.URL.Query().Get("memberId") != "":
		receipts, err = h.Repos.Receipts.ListByMember(ctx, ledger.MemberID(r.URL.Query().Get("memberId")))
	case r.URL.Query().Get("societyId") != "":
		receipts, err = h.Repos.Receipts.ListBySociety(ctx, ledger.SocietyID(r.URL.Query().Get("societyId")))
	default:
		receipts, err = h.Repos.Receipts.List(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list receipts", err)
		return
	}
	if receipts == nil {
		receipts = []ledger.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// CreateReceipt records a payment receipt and advances the member's dues
// cursor past the billed range.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from := ledger.NewPeriod(req.PaymentFromMonth, req.PaymentFromYear)
	till := ledger.NewPeriod(req.PaymentTillMonth, req.PaymentTillYear)

	receipt, err := h.Ledger.Create(r.Context(),
		ledger.SocietyID(req.SocietyID), ledger.MemberID(req.MemberID), from, till, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Dues.AdvanceAfterBilling(r.Context(), receipt.MemberID, till); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to advance dues", err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// GetReceipt returns a single receipt.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id := ledger.ReceiptID(chi.URLParam(r, "id"))

	receipt, err := h.Repos.Receipts.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get receipt", err)
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "Receipt not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// DeleteReceipt removes a receipt and rewinds the member's dues cursor to
// the receipt's original starting period.
func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := ledger.ReceiptID(chi.URLParam(r, "id"))

	deleted, err := h.Ledger.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Dues.RollbackOnDelete(r.Context(), deleted.MemberID, deleted.From); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rewind dues", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NextReceiptNumber returns the next free receipt number for a society.
func (h *Handler) NextReceiptNumber(w http.ResponseWriter, r *http.Request) {
	societyID := r.URL.Query().Get("societyId")
	if societyID == "" {
		writeError(w, http.StatusBadRequest, "societyId is required", nil)
		return
	}

	n, err := h.Ledger.NextReceiptNumber(r.Context(), ledger.SocietyID(societyID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute next number", err)
		return
	}
	writeJSON(w, http.StatusOK, NextReceiptNumberDTO{NextReceiptNumber: n})
}

// BulkGenerate runs a bulk receipt generation pass for a society.
func (h *Handler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req BulkGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	requests := make([]ledger.BulkRequest, len(req.Requests))
	for i, item := range req.Requests {
		requests[i] = ledger.BulkRequest{
			MemberID: ledger.MemberID(item.MemberID),
			From:     ledger.NewPeriod(item.FromMonth, item.FromYear),
			Till:     ledger.NewPeriod(item.TillMonth, item.TillYear),
		}
	}

	result, err := h.Bulk.Generate(r.Context(), ledger.SocietyID(req.SocietyID), requests, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BulkGenerateResponse{
		Created:       result.Created,
		Skipped:       result.Skipped,
		NothingToBill: result.NothingToBill,
	})
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ListBackups returns the snapshot history, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	history, err := h.Backups.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load backup history", err)
		return
	}
	if history == nil {
		history = []backup.Snapshot{}
	}
	writeJSON(w, http.StatusOK, history)
}

// CreateBackup snapshots the current dataset.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Backups.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ImportBackup validates and stores an exported snapshot.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	snap, err := h.Backups.Import(r.Context(), raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// RestoreBackup replaces all data with a stored snapshot.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp", err)
		return
	}

	if err := h.Backups.Restore(r.Context(), ts); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBackup removes a snapshot from the history.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp", err)
		return
	}

	if err := h.Backups.Delete(r.Context(), ts); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBackupSettings returns the auto-backup settings.
func (h *Handler) GetBackupSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Backups.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load backup settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateBackupSettings changes the auto-backup frequency.
func (h *Handler) UpdateBackupSettings(w http.ResponseWriter, r *http.Request) {
	var settings backup.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Backups.UpdateSettings(r.Context(), settings); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Backups.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload backup settings", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// GetSession returns the currently logged-in user, if any.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.Repos.Session.CurrentUserID(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read session", err)
		return
	}
	if userID == "" {
		writeJSON(w, http.StatusOK, SessionDTO{})
		return
	}

	user, err := h.Repos.Users.Get(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{User: user})
}

// Login checks credentials and records the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	user, err := h.Repos.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}
	if user == nil || user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	if err := h.Repos.Session.SetCurrentUserID(ctx, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record session", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{User: user})
}

// Logout clears the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Repos.Session.SetCurrentUserID(r.Context(), ""); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COUNTRY HANDLERS
// =============================================================================

// CountryDTO describes a supported dialing country.
type CountryDTO struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	ISO          string `json:"iso"`
	PhoneLengths []int  `json:"phoneLengths"`
}

// ListCountries returns the country table used for phone validation.
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries := registry.Countries()
	dtos := make([]CountryDTO, len(countries))
	for i, c := range countries {
		dtos[i] = CountryDTO{Name: c.Name, Code: c.Code, ISO: c.ISO, PhoneLengths: c.PhoneLengths}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error(), nil)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
