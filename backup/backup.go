/*
Package backup snapshots the full dataset and restores it wholesale.

PURPOSE:
  Keeps a rotating, timestamped history of point-in-time copies of the
  four collections (societies, members, receipts, users), independent of
  the live data after creation. Restore swaps the live collections for a
  snapshot's and reconciles the active session by email, since user ids
  may differ across snapshots.

ROTATION:
  History is ordered newest-first and capped at 20 entries; storing a 21st
  evicts exactly the oldest.

IMPORT SAFETY:
  Files are validated before anything is applied: the timestamp must be a
  JSON number and all four data fields must be present as arrays. A
  malformed file is rejected with a *ledger.FormatError and zero effect;
  a file whose timestamp already exists is a reported no-op.
*/
package backup

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/digitalsociety/dues-engine/ledger"
)

// MaxHistory is the rotation cap on stored snapshots.
const MaxHistory = 20

// =============================================================================
// SNAPSHOT
// =============================================================================

// Dataset is a full copy of the four collections.
type Dataset struct {
	Societies []ledger.Society `json:"societies"`
	Members   []ledger.Member  `json:"members"`
	Receipts  []ledger.Receipt `json:"receipts"`
	Users     []ledger.User    `json:"users"`
}

// Snapshot is one point-in-time backup. Timestamp is Unix milliseconds and
// doubles as the snapshot's identity within the history.
type Snapshot struct {
	Timestamp int64   `json:"timestamp"`
	Data      Dataset `json:"data"`
}

// =============================================================================
// SETTINGS
// =============================================================================

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyDisabled Frequency = "disabled"
)

// Interval returns the auto-backup interval, zero for disabled or unknown.
// Monthly is a fixed 30 days, not calendar-month-aware.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Settings governs the automatic-backup check. Process-wide.
type Settings struct {
	Frequency           Frequency `json:"frequency"`
	LastBackupTimestamp int64     `json:"lastBackupTimestamp"` // unix ms, 0 = never
}

// DefaultSettings matches a fresh install: weekly, never backed up.
func DefaultSettings() Settings {
	return Settings{Frequency: FrequencyWeekly}
}

// ShouldAutoBackup decides whether the periodic check fires a backup now.
// Disabled never fires. A zero LastBackupTimestamp fires only once there is
// any data to back up. Otherwise fire iff the interval has elapsed.
func ShouldAutoBackup(settings Settings, now time.Time, hasAnyData bool) bool {
	if settings.Frequency == FrequencyDisabled {
		return false
	}
	interval := settings.Frequency.Interval()
	if interval == 0 {
		return false
	}
	if settings.LastBackupTimestamp == 0 {
		return hasAnyData
	}
	elapsed := now.UnixMilli() - settings.LastBackupTimestamp
	return elapsed > interval.Milliseconds()
}

// =============================================================================
// STORES
// =============================================================================

// HistoryStore persists the snapshot history as one record, newest first.
type HistoryStore interface {
	Load(ctx context.Context) ([]Snapshot, error)
	Save(ctx context.Context, history []Snapshot) error
}

// SettingsStore persists the process-wide backup settings.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager creates, rotates, imports and restores snapshots over the shared
// repositories.
type Manager struct {
	repos    ledger.Repos
	history  HistoryStore
	settings SettingsStore
	clock    ledger.Clock
}

func NewManager(repos ledger.Repos, history HistoryStore, settings SettingsStore) *Manager {
	return &Manager{repos: repos, history: history, settings: settings, clock: time.Now}
}

// WithClock overrides the time source (tests).
func (m *Manager) WithClock(clock ledger.Clock) *Manager {
	m.clock = clock
	return m
}

// Create snapshots the current dataset, stores it with rotation and stamps
// LastBackupTimestamp. The snapshot holds its own copies of the data.
func (m *Manager) Create(ctx context.Context) (*Snapshot, error) {
	data, err := m.collect(ctx)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{Timestamp: m.clock().UnixMilli(), Data: *data}
	if err := m.storeRotated(ctx, snap); err != nil {
		return nil, err
	}

	settings, err := m.Settings(ctx)
	if err != nil {
		return nil, err
	}
	settings.LastBackupTimestamp = snap.Timestamp
	if err := m.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return &snap, nil
}

// History returns the stored snapshots, newest first.
func (m *Manager) History(ctx context.Context) ([]Snapshot, error) {
	history, err := m.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	sortHistory(history)
	return history, nil
}

// Settings returns the current backup settings, defaulted when unset.
func (m *Manager) Settings(ctx context.Context) (Settings, error) {
	s, err := m.settings.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if s.Frequency == "" {
		s = Settings{Frequency: DefaultSettings().Frequency, LastBackupTimestamp: s.LastBackupTimestamp}
	}
	return s, nil
}

// UpdateSettings stores new settings, preserving the last-backup stamp when
// the caller leaves it zero.
func (m *Manager) UpdateSettings(ctx context.Context, s Settings) error {
	current, err := m.Settings(ctx)
	if err != nil {
		return err
	}
	if s.LastBackupTimestamp == 0 {
		s.LastBackupTimestamp = current.LastBackupTimestamp
	}
	return m.settings.Save(ctx, s)
}

// Delete removes one snapshot from the history by timestamp.
func (m *Manager) Delete(ctx context.Context, timestamp int64) error {
	history, err := m.history.Load(ctx)
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, s := range history {
		if s.Timestamp != timestamp {
			kept = append(kept, s)
		}
	}
	return m.history.Save(ctx, kept)
}

// Import validates a backup file and stores it under the same rotation
// rule. Shape errors return *ledger.FormatError with no state change; a
// snapshot whose timestamp already exists returns ErrDuplicateSnapshot.
func (m *Manager) Import(ctx context.Context, raw []byte) (*Snapshot, error) {
	snap, err := ParseSnapshot(raw)
	if err != nil {
		return nil, err
	}

	history, err := m.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range history {
		if existing.Timestamp == snap.Timestamp {
			return nil, ledger.ErrDuplicateSnapshot
		}
	}
	if err := m.storeRotated(ctx, *snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces the live collections with a stored snapshot's data and
// reconciles the session: a previously signed-in user stays signed in iff
// a user with the same email exists in the restored data (under whatever
// id that user carries there); otherwise the session is cleared.
func (m *Manager) Restore(ctx context.Context, timestamp int64) error {
	history, err := m.history.Load(ctx)
	if err != nil {
		return err
	}
	var snap *Snapshot
	for i := range history {
		if history[i].Timestamp == timestamp {
			snap = &history[i]
			break
		}
	}
	if snap == nil {
		return ledger.ErrInvalidSnapshot
	}

	// Capture the active session's email before the user table is replaced.
	sessionEmail := ""
	sessionID, err := m.repos.Session.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if sessionID != "" {
		user, err := m.repos.Users.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if user != nil {
			sessionEmail = user.Email
		}
	}

	if err := m.repos.Societies.ReplaceAll(ctx, snap.Data.Societies); err != nil {
		return err
	}
	if err := m.repos.Members.ReplaceAll(ctx, snap.Data.Members); err != nil {
		return err
	}
	if err := m.repos.Receipts.ReplaceAll(ctx, snap.Data.Receipts); err != nil {
		return err
	}
	if err := m.repos.Users.ReplaceAll(ctx, snap.Data.Users); err != nil {
		return err
	}

	if sessionEmail == "" {
		// A session id that resolved to no user is dropped rather than left
		// to collide with whichever restored user carries that id.
		if sessionID != "" {
			return m.repos.Session.SetCurrentUserID(ctx, "")
		}
		return nil
	}
	restored, err := m.repos.Users.GetByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	if restored == nil {
		return m.repos.Session.SetCurrentUserID(ctx, "")
	}
	return m.repos.Session.SetCurrentUserID(ctx, restored.ID)
}

// HasAnyData reports whether there is anything worth backing up yet.
func (m *Manager) HasAnyData(ctx context.Context) (bool, error) {
	societies, err := m.repos.Societies.List(ctx)
	if err != nil {
		return false, err
	}
	if len(societies) > 0 {
		return true, nil
	}
	members, err := m.repos.Members.List(ctx)
	if err != nil {
		return false, err
	}
	return len(members) > 0, nil
}

func (m *Manager) collect(ctx context.Context) (*Dataset, error) {
	societies, err := m.repos.Societies.List(ctx)
	if err != nil {
		return nil, err
	}
	members, err := m.repos.Members.List(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := m.repos.Receipts.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := m.repos.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Dataset{Societies: societies, Members: members, Receipts: receipts, Users: users}, nil
}

func (m *Manager) storeRotated(ctx context.Context, snap Snapshot) error {
	history, err := m.history.Load(ctx)
	if err != nil {
		return err
	}
	history = append(history, snap)
	sortHistory(history)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	return m.history.Save(ctx, history)
}

func sortHistory(history []Snapshot) {
	sort.Slice(history, func(i, j int) bool { return history[i].Timestamp > history[j].Timestamp })
}

// =============================================================================
// FILE FORMAT
// =============================================================================

// ParseSnapshot validates the interchange shape: timestamp must be a JSON
// number, data.societies/members/receipts/users must all be present as
// arrays. Anything else is a *ledger.FormatError.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	var probe struct {
		Timestamp json.RawMessage `json:"timestamp"`
		Data      *struct {
			Societies json.RawMessage `json:"societies"`
			Members   json.RawMessage `json:"members"`
			Receipts  json.RawMessage `json:"receipts"`
			Users     json.RawMessage `json:"users"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &ledger.FormatError{Detail: "not a valid JSON document"}
	}

	var ts int64
	if probe.Timestamp == nil || json.Unmarshal(probe.Timestamp, &ts) != nil {
		return nil, &ledger.FormatError{Detail: "timestamp must be a number"}
	}
	if probe.Data == nil {
		return nil, &ledger.FormatError{Detail: "missing data object"}
	}
	for _, field := range []struct {
		name string
		raw  json.RawMessage
	}{
		{"societies", probe.Data.Societies},
		{"members", probe.Data.Members},
		{"receipts", probe.Data.Receipts},
		{"users", probe.Data.Users},
	} {
		if !isJSONArray(field.raw) {
			return nil, &ledger.FormatError{Detail: "data." + field.name + " must be a list"}
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &ledger.FormatError{Detail: "malformed records: " + err.Error()}
	}
	snap.Timestamp = ts
	return &snap, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b == '['
		}
	}
	return false
}
