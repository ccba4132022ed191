// Package store provides in-memory repository implementations, used by
// tests and by the dev server when no database path is given.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/digitalsociety/dues-engine/ledger"
)

// =============================================================================
// MEMORY REPOSITORIES - In-memory implementation (for testing/dev)
// =============================================================================

// Memory backs every repository with maps behind one RWMutex. Reads copy;
// callers never alias internal state.
type Memory struct {
	mu        sync.RWMutex
	societies map[ledger.SocietyID]ledger.Society
	members   map[ledger.MemberID]ledger.Member
	receipts  map[ledger.ReceiptID]ledger.Receipt
	users     map[ledger.UserID]ledger.User
	sessionID ledger.UserID

	// Per-society high-water mark of issued receipt numbers. Advanced on
	// every receipt write, never lowered by deletion.
	receiptNumbers map[ledger.SocietyID]int
}

func NewMemory() *Memory {
	return &Memory{
		societies:      make(map[ledger.SocietyID]ledger.Society),
		members:        make(map[ledger.MemberID]ledger.Member),
		receipts:       make(map[ledger.ReceiptID]ledger.Receipt),
		users:          make(map[ledger.UserID]ledger.User),
		receiptNumbers: make(map[ledger.SocietyID]int),
	}
}

// Repos bundles the memory-backed repositories for injection.
func (m *Memory) Repos() ledger.Repos {
	return ledger.Repos{
		Societies: (*memorySocieties)(m),
		Members:   (*memoryMembers)(m),
		Receipts:  (*memoryReceipts)(m),
		Users:     (*memoryUsers)(m),
		Session:   (*memorySession)(m),
	}
}

// =============================================================================
// SOCIETIES
// =============================================================================

type memorySocieties Memory

func (m *memorySocieties) List(_ context.Context) ([]ledger.Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Society, 0, len(m.societies))
	for _, s := range m.societies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memorySocieties) Get(_ context.Context, id ledger.SocietyID) (*ledger.Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.societies[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memorySocieties) Put(_ context.Context, s ledger.Society) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.societies[s.ID] = s
	return nil
}

func (m *memorySocieties) Delete(_ context.Context, id ledger.SocietyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.societies, id)
	return nil
}

// =============================================================================
// MEMBERS
// =============================================================================

type memoryMembers Memory

func (m *memoryMembers) List(_ context.Context) ([]ledger.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Member, 0, len(m.members))
	for _, mb := range m.members {
		out = append(out, copyMember(mb))
	}
	sortMembers(out)
	return out, nil
}

func (m *memoryMembers) ListBySociety(_ context.Context, societyID ledger.SocietyID) ([]ledger.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Member
	for _, mb := range m.members {
		if mb.SocietyID == societyID {
			out = append(out, copyMember(mb))
		}
	}
	sortMembers(out)
	return out, nil
}

func (m *memoryMembers) Get(_ context.Context, id ledger.MemberID) (*ledger.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mb, ok := m.members[id]; ok {
		c := copyMember(mb)
		return &c, nil
	}
	return nil, nil
}

func (m *memoryMembers) Put(_ context.Context, mb ledger.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[mb.ID] = copyMember(mb)
	return nil
}

func (m *memoryMembers) PutBatch(_ context.Context, ms []ledger.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range ms {
		m.members[mb.ID] = copyMember(mb)
	}
	return nil
}

func (m *memoryMembers) Delete(_ context.Context, id ledger.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, id)
	return nil
}

// =============================================================================
// RECEIPTS
// =============================================================================

type memoryReceipts Memory

func (m *memoryReceipts) List(_ context.Context) ([]ledger.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Receipt, 0, len(m.receipts))
	for _, r := range m.receipts {
		out = append(out, copyReceipt(r))
	}
	sortReceipts(out)
	return out, nil
}

func (m *memoryReceipts) ListBySociety(_ context.Context, societyID ledger.SocietyID) ([]ledger.Receipt, error) {
	return m.filter(func(r ledger.Receipt) bool { return r.SocietyID == societyID })
}

func (m *memoryReceipts) ListByMember(_ context.Context, memberID ledger.MemberID) ([]ledger.Receipt, error) {
	return m.filter(func(r ledger.Receipt) bool { return r.MemberID == memberID })
}

func (m *memoryReceipts) filter(keep func(ledger.Receipt) bool) ([]ledger.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Receipt
	for _, r := range m.receipts {
		if keep(r) {
			out = append(out, copyReceipt(r))
		}
	}
	sortReceipts(out)
	return out, nil
}

func (m *memoryReceipts) Get(_ context.Context, id ledger.ReceiptID) (*ledger.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.receipts[id]; ok {
		c := copyReceipt(r)
		return &c, nil
	}
	return nil, nil
}

func (m *memoryReceipts) Put(_ context.Context, r ledger.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[r.ID] = copyReceipt(r)
	m.bumpNumber(r)
	return nil
}

func (m *memoryReceipts) PutBatch(_ context.Context, rs []ledger.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		m.receipts[r.ID] = copyReceipt(r)
		m.bumpNumber(r)
	}
	return nil
}

func (m *memoryReceipts) HighestNumber(_ context.Context, societyID ledger.SocietyID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receiptNumbers[societyID], nil
}

// bumpNumber raises the society's high-water mark; callers hold the lock.
func (m *memoryReceipts) bumpNumber(r ledger.Receipt) {
	if r.ReceiptNumber > m.receiptNumbers[r.SocietyID] {
		m.receiptNumbers[r.SocietyID] = r.ReceiptNumber
	}
}

func (m *memoryReceipts) Delete(_ context.Context, id ledger.ReceiptID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.receipts, id)
	return nil
}

// =============================================================================
// USERS
// =============================================================================

type memoryUsers Memory

func (m *memoryUsers) List(_ context.Context) ([]ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memoryUsers) Get(_ context.Context, id ledger.UserID) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) Put(_ context.Context, u ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id ledger.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// =============================================================================
// SESSION
// =============================================================================

type memorySession Memory

func (m *memorySession) CurrentUserID(_ context.Context) (ledger.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID, nil
}

func (m *memorySession) SetCurrentUserID(_ context.Context, id ledger.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = id
	return nil
}

// =============================================================================
// COPY HELPERS - value semantics on the way in and out
// =============================================================================

func copyMember(m ledger.Member) ledger.Member {
	c := m
	if m.DuesFrom != nil {
		p := *m.DuesFrom
		c.DuesFrom = &p
	}
	c.OtherBills = append([]ledger.OtherBill(nil), m.OtherBills...)
	return c
}

func copyReceipt(r ledger.Receipt) ledger.Receipt {
	c := r
	c.Items = append([]ledger.PaymentItem(nil), r.Items...)
	return c
}

func sortMembers(ms []ledger.Member) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.After(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

// Receipts list newest number first, as the generated-receipts view expects.
func sortReceipts(rs []ledger.Receipt) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].ReceiptNumber != rs[j].ReceiptNumber {
			return rs[i].ReceiptNumber > rs[j].ReceiptNumber
		}
		return rs[i].ID < rs[j].ID
	})
}

// =============================================================================
// REPLACE-ALL - wholesale swap, used only by backup restore
// =============================================================================

func (m *memorySocieties) ReplaceAll(_ context.Context, ss []ledger.Society) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.societies = make(map[ledger.SocietyID]ledger.Society, len(ss))
	for _, s := range ss {
		m.societies[s.ID] = s
	}
	return nil
}

func (m *memoryMembers) ReplaceAll(_ context.Context, ms []ledger.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[ledger.MemberID]ledger.Member, len(ms))
	for _, mb := range ms {
		m.members[mb.ID] = copyMember(mb)
	}
	return nil
}

func (m *memoryReceipts) ReplaceAll(_ context.Context, rs []ledger.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = make(map[ledger.ReceiptID]ledger.Receipt, len(rs))
	m.receiptNumbers = make(map[ledger.SocietyID]int)
	for _, r := range rs {
		m.receipts[r.ID] = copyReceipt(r)
		m.bumpNumber(r)
	}
	return nil
}

func (m *memoryUsers) ReplaceAll(_ context.Context, us []ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[ledger.UserID]ledger.User, len(us))
	for _, u := range us {
		m.users[u.ID] = u
	}
	return nil
}
