/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every repository (societies, members, receipts, users), the
  session record and the backup history/settings stores on SQLite.

SCHEMA:
  Queryable fields get their own columns; nested lists (a member's other
  bills, a receipt's items, a snapshot's dataset) are stored as JSON
  columns. Charge amounts are stored as decimal strings, never floats.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and crash recovery is cleaner. Use ":memory:" for tests and dev.

MIGRATION:
  Schema is auto-migrated on New(). For a production deployment use a
  versioned migration tool instead.

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/digitalsociety/dues-engine/backup"
	"github.com/digitalsociety/dues-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the migrated schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Repos bundles the SQLite-backed repositories for injection.
func (s *Store) Repos() ledger.Repos {
	return ledger.Repos{
		Societies: &societyRepo{s},
		Members:   &memberRepo{s},
		Receipts:  &receiptRepo{s},
		Users:     &userRepo{s},
		Session:   &sessionRepo{s},
	}
}

// BackupHistory returns the backup history store.
func (s *Store) BackupHistory() backup.HistoryStore { return &historyRepo{s} }

// BackupSettings returns the backup settings store.
func (s *Store) BackupSettings() backup.SettingsStore { return &settingsRepo{s} }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS societies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		registration_number TEXT NOT NULL,
		registration_year INTEGER NOT NULL,
		signature_authority TEXT NOT NULL DEFAULT '',
		signature_type TEXT NOT NULL DEFAULT '',
		signature_text TEXT NOT NULL DEFAULT '',
		signature_image TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country_code TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		building TEXT NOT NULL DEFAULT '',
		apartment TEXT NOT NULL DEFAULT '',
		society_id TEXT NOT NULL,
		monthly_maintenance TEXT NOT NULL DEFAULT '0',
		monthly_water_bill TEXT NOT NULL DEFAULT '0',
		other_bills_json TEXT NOT NULL DEFAULT '[]',
		dues_from_month INTEGER,
		dues_from_year INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_society ON members(society_id);

	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		receipt_number INTEGER NOT NULL,
		date TEXT NOT NULL,
		member_id TEXT NOT NULL,
		member_name TEXT NOT NULL,
		society_id TEXT NOT NULL,
		society_name TEXT NOT NULL,
		items_json TEXT NOT NULL DEFAULT '[]',
		total_amount TEXT NOT NULL DEFAULT '0',
		payment_from_month INTEGER NOT NULL,
		payment_from_year INTEGER NOT NULL,
		payment_till_month INTEGER NOT NULL,
		payment_till_year INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_society ON receipts(society_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_member ON receipts(member_id);

	-- Per-society high-water mark of issued receipt numbers. Survives
	-- receipt deletion so a deleted number is never reissued.
	CREATE TABLE IF NOT EXISTS receipt_counters (
		society_id TEXT PRIMARY KEY,
		highest_number INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		password TEXT NOT NULL DEFAULT '',
		society_id TEXT NOT NULL DEFAULT '',
		society_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Single-row session record; id is pinned to 1.
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_user_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS backups (
		timestamp INTEGER PRIMARY KEY,
		data_json TEXT NOT NULL
	);

	-- Single-row backup settings record; id is pinned to 1.
	CREATE TABLE IF NOT EXISTS backup_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		frequency TEXT NOT NULL,
		last_backup_timestamp INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SOCIETIES
// =============================================================================

type societyRepo struct{ s *Store }

const societyCols = `id, name, address, registration_number, registration_year,
	signature_authority, signature_type, signature_text, signature_image`

func scanSociety(row interface{ Scan(...any) error }) (*ledger.Society, error) {
	var so ledger.Society
	err := row.Scan(&so.ID, &so.Name, &so.Address, &so.RegistrationNumber, &so.RegistrationYear,
		&so.SignatureAuthority, &so.SignatureType, &so.SignatureText, &so.SignatureImage)
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *societyRepo) List(ctx context.Context) ([]ledger.Society, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `SELECT `+societyCols+` FROM societies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Society
	for rows.Next() {
		so, err := scanSociety(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *so)
	}
	return out, rows.Err()
}

func (r *societyRepo) Get(ctx context.Context, id ledger.SocietyID) (*ledger.Society, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	so, err := scanSociety(r.s.db.QueryRowContext(ctx,
		`SELECT `+societyCols+` FROM societies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return so, err
}

func (r *societyRepo) Put(ctx context.Context, so ledger.Society) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return putSociety(ctx, r.s.db, so)
}

func putSociety(ctx context.Context, db execer, so ledger.Society) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO societies (`+societyCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			registration_number = excluded.registration_number,
			registration_year = excluded.registration_year,
			signature_authority = excluded.signature_authority,
			signature_type = excluded.signature_type,
			signature_text = excluded.signature_text,
			signature_image = excluded.signature_image`,
		so.ID, so.Name, so.Address, so.RegistrationNumber, so.RegistrationYear,
		so.SignatureAuthority, so.SignatureType, so.SignatureText, so.SignatureImage)
	return err
}

func (r *societyRepo) Delete(ctx context.Context, id ledger.SocietyID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM societies WHERE id = ?`, id)
	return err
}

func (r *societyRepo) ReplaceAll(ctx context.Context, ss []ledger.Society) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM societies`); err != nil {
			return err
		}
		for _, so := range ss {
			if err := putSociety(ctx, tx, so); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// MEMBERS
// =============================================================================

type memberRepo struct{ s *Store }

const memberCols = `id, name, country_code, phone, building, apartment, society_id,
	monthly_maintenance, monthly_water_bill, other_bills_json,
	dues_from_month, dues_from_year, created_at`

func scanMember(row interface{ Scan(...any) error }) (*ledger.Member, error) {
	var (
		m                    ledger.Member
		maintenance, water   string
		otherBillsJSON       string
		duesMonth, duesYear  sql.NullInt64
		createdAt            string
	)
	err := row.Scan(&m.ID, &m.Name, &m.CountryCode, &m.Phone, &m.Building, &m.Apartment, &m.SocietyID,
		&maintenance, &water, &otherBillsJSON, &duesMonth, &duesYear, &createdAt)
	if err != nil {
		return nil, err
	}

	if m.MonthlyMaintenance, err = decimal.NewFromString(maintenance); err != nil {
		return nil, fmt.Errorf("member %s: bad maintenance amount: %w", m.ID, err)
	}
	if m.MonthlyWaterBill, err = decimal.NewFromString(water); err != nil {
		return nil, fmt.Errorf("member %s: bad water amount: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(otherBillsJSON), &m.OtherBills); err != nil {
		return nil, fmt.Errorf("member %s: bad other bills: %w", m.ID, err)
	}
	if duesMonth.Valid && duesYear.Valid {
		p := ledger.NewPeriod(int(duesMonth.Int64), int(duesYear.Int64))
		m.DuesFrom = &p
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("member %s: bad created_at: %w", m.ID, err)
	}
	return &m, nil
}

func (r *memberRepo) List(ctx context.Context) ([]ledger.Member, error) {
	return r.query(ctx, `SELECT `+memberCols+` FROM members ORDER BY created_at DESC, id`)
}

func (r *memberRepo) ListBySociety(ctx context.Context, societyID ledger.SocietyID) ([]ledger.Member, error) {
	return r.query(ctx, `SELECT `+memberCols+` FROM members WHERE society_id = ? ORDER BY created_at DESC, id`, societyID)
}

func (r *memberRepo) query(ctx context.Context, q string, args ...any) ([]ledger.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *memberRepo) Get(ctx context.Context, id ledger.MemberID) (*ledger.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, err := scanMember(r.s.db.QueryRowContext(ctx,
		`SELECT `+memberCols+` FROM members WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *memberRepo) Put(ctx context.Context, m ledger.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return putMember(ctx, r.s.db, m)
}

func (r *memberRepo) PutBatch(ctx context.Context, ms []ledger.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, m := range ms {
			if err := putMember(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func putMember(ctx context.Context, db execer, m ledger.Member) error {
	otherBillsJSON, err := json.Marshal(m.OtherBills)
	if err != nil {
		return err
	}
	var duesMonth, duesYear any
	if m.DuesFrom != nil {
		duesMonth, duesYear = int(m.DuesFrom.Month), m.DuesFrom.Year
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO members (`+memberCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			country_code = excluded.country_code,
			phone = excluded.phone,
			building = excluded.building,
			apartment = excluded.apartment,
			society_id = excluded.society_id,
			monthly_maintenance = excluded.monthly_maintenance,
			monthly_water_bill = excluded.monthly_water_bill,
			other_bills_json = excluded.other_bills_json,
			dues_from_month = excluded.dues_from_month,
			dues_from_year = excluded.dues_from_year,
			created_at = excluded.created_at`,
		m.ID, m.Name, m.CountryCode, m.Phone, m.Building, m.Apartment, m.SocietyID,
		m.MonthlyMaintenance.String(), m.MonthlyWaterBill.String(), string(otherBillsJSON),
		duesMonth, duesYear, m.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *memberRepo) Delete(ctx context.Context, id ledger.MemberID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	return err
}

func (r *memberRepo) ReplaceAll(ctx context.Context, ms []ledger.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
			return err
		}
		for _, m := range ms {
			if err := putMember(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// RECEIPTS
// =============================================================================

type receiptRepo struct{ s *Store }

const receiptCols = `id, receipt_number, date, member_id, member_name, society_id, society_name,
	items_json, total_amount, payment_from_month, payment_from_year,
	payment_till_month, payment_till_year, description`

func scanReceipt(row interface{ Scan(...any) error }) (*ledger.Receipt, error) {
	var (
		r                                  ledger.Receipt
		date, itemsJSON, total             string
		fromMonth, fromYear, tillMonth, tillYear int
	)
	err := row.Scan(&r.ID, &r.ReceiptNumber, &date, &r.MemberID, &r.MemberName, &r.SocietyID, &r.SocietyName,
		&itemsJSON, &total, &fromMonth, &fromYear, &tillMonth, &tillYear, &r.Description)
	if err != nil {
		return nil, err
	}

	if r.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return nil, fmt.Errorf("receipt %s: bad date: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &r.Items); err != nil {
		return nil, fmt.Errorf("receipt %s: bad items: %w", r.ID, err)
	}
	if r.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("receipt %s: bad total: %w", r.ID, err)
	}
	r.Payment = ledger.PeriodRange{
		From: ledger.NewPeriod(fromMonth, fromYear),
		Till: ledger.NewPeriod(tillMonth, tillYear),
	}
	return &r, nil
}

func (r *receiptRepo) List(ctx context.Context) ([]ledger.Receipt, error) {
	return r.query(ctx, `SELECT `+receiptCols+` FROM receipts ORDER BY receipt_number DESC, id`)
}

func (r *receiptRepo) ListBySociety(ctx context.Context, societyID ledger.SocietyID) ([]ledger.Receipt, error) {
	return r.query(ctx, `SELECT `+receiptCols+` FROM receipts WHERE society_id = ? ORDER BY receipt_number DESC, id`, societyID)
}

func (r *receiptRepo) ListByMember(ctx context.Context, memberID ledger.MemberID) ([]ledger.Receipt, error) {
	return r.query(ctx, `SELECT `+receiptCols+` FROM receipts WHERE member_id = ? ORDER BY receipt_number DESC, id`, memberID)
}

func (r *receiptRepo) query(ctx context.Context, q string, args ...any) ([]ledger.Receipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *receiptRepo) Get(ctx context.Context, id ledger.ReceiptID) (*ledger.Receipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, err := scanReceipt(r.s.db.QueryRowContext(ctx,
		`SELECT `+receiptCols+` FROM receipts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *receiptRepo) Put(ctx context.Context, rec ledger.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// Receipt row and counter bump land together.
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		return putReceipt(ctx, tx, rec)
	})
}

func (r *receiptRepo) HighestNumber(ctx context.Context, societyID ledger.SocietyID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int
	err := r.s.db.QueryRowContext(ctx,
		`SELECT highest_number FROM receipt_counters WHERE society_id = ?`, societyID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (r *receiptRepo) PutBatch(ctx context.Context, recs []ledger.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := putReceipt(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func putReceipt(ctx context.Context, db execer, rec ledger.Receipt) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO receipts (`+receiptCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ReceiptNumber, rec.Date.UTC().Format(time.RFC3339),
		rec.MemberID, rec.MemberName, rec.SocietyID, rec.SocietyName,
		string(itemsJSON), rec.TotalAmount.String(),
		int(rec.Payment.From.Month), rec.Payment.From.Year,
		int(rec.Payment.Till.Month), rec.Payment.Till.Year,
		rec.Description)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO receipt_counters (society_id, highest_number) VALUES (?, ?)
		ON CONFLICT(society_id) DO UPDATE SET
			highest_number = max(highest_number, excluded.highest_number)`,
		rec.SocietyID, rec.ReceiptNumber)
	return err
}

func (r *receiptRepo) Delete(ctx context.Context, id ledger.ReceiptID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	return err
}

func (r *receiptRepo) ReplaceAll(ctx context.Context, recs []ledger.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM receipts`); err != nil {
			return err
		}
		// Counters rebuild from the incoming dataset alone: a restore swaps
		// in a whole world, numbering history included.
		if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_counters`); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := putReceipt(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// USERS
// =============================================================================

type userRepo struct{ s *Store }

const userCols = `id, email, password, society_id, society_name, role`

func scanUser(row interface{ Scan(...any) error }) (*ledger.User, error) {
	var u ledger.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.SocietyID, &u.SocietyName, &u.Role)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context) ([]ledger.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepo) Get(ctx context.Context, id ledger.UserID) (*ledger.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, err := scanUser(r.s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*ledger.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, err := scanUser(r.s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepo) Put(ctx context.Context, u ledger.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return putUser(ctx, r.s.db, u)
}

func putUser(ctx context.Context, db execer, u ledger.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			password = excluded.password,
			society_id = excluded.society_id,
			society_name = excluded.society_name,
			role = excluded.role`,
		u.ID, u.Email, u.Password, u.SocietyID, u.SocietyName, u.Role)
	return err
}

func (r *userRepo) Delete(ctx context.Context, id ledger.UserID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

func (r *userRepo) ReplaceAll(ctx context.Context, us []ledger.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return err
		}
		for _, u := range us {
			if err := putUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// SESSION
// =============================================================================

type sessionRepo struct{ s *Store }

func (r *sessionRepo) CurrentUserID(ctx context.Context) (ledger.UserID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var id string
	err := r.s.db.QueryRowContext(ctx, `SELECT current_user_id FROM session WHERE id = 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return ledger.UserID(id), err
}

func (r *sessionRepo) SetCurrentUserID(ctx context.Context, id ledger.UserID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO session (id, current_user_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET current_user_id = excluded.current_user_id`, id)
	return err
}

// =============================================================================
// BACKUPS
// =============================================================================

type historyRepo struct{ s *Store }

func (r *historyRepo) Load(ctx context.Context) ([]backup.Snapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `SELECT timestamp, data_json FROM backups ORDER BY timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backup.Snapshot
	for rows.Next() {
		var (
			ts       int64
			dataJSON string
		)
		if err := rows.Scan(&ts, &dataJSON); err != nil {
			return nil, err
		}
		var data backup.Dataset
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, fmt.Errorf("backup %d: bad data: %w", ts, err)
		}
		out = append(out, backup.Snapshot{Timestamp: ts, Data: data})
	}
	return out, rows.Err()
}

func (r *historyRepo) Save(ctx context.Context, history []backup.Snapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM backups`); err != nil {
			return err
		}
		for _, snap := range history {
			dataJSON, err := json.Marshal(snap.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO backups (timestamp, data_json) VALUES (?, ?)`,
				snap.Timestamp, string(dataJSON)); err != nil {
				return err
			}
		}
		return nil
	})
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Load(ctx context.Context) (backup.Settings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out backup.Settings
	err := r.s.db.QueryRowContext(ctx,
		`SELECT frequency, last_backup_timestamp FROM backup_settings WHERE id = 1`).
		Scan(&out.Frequency, &out.LastBackupTimestamp)
	if err == sql.ErrNoRows {
		return backup.DefaultSettings(), nil
	}
	return out, err
}

func (r *settingsRepo) Save(ctx context.Context, settings backup.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO backup_settings (id, frequency, last_backup_timestamp) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			frequency = excluded.frequency,
			last_backup_timestamp = excluded.last_backup_timestamp`,
		settings.Frequency, settings.LastBackupTimestamp)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
