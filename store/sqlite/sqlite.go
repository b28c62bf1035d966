/*
Package sqlite provides the SQLite-backed engine.TxStore.

APPEND-ONLY ENFORCEMENT:

	There is no UPDATE or DELETE statement touching the entries table,
	except inside the explicit account cascade. The idempotency_key column
	is UNIQUE so a duplicated causing operation cannot post twice even if
	it slips past the engine's own checks.

SINGLE ACTIVE SLOT:

	A partial unique index on slots(account_id) WHERE status='active'
	enforces the invariant at the storage layer. Violations surface as
	engine.ErrConcurrentModification.

CONCURRENCY:

	Opened in WAL mode; a sync.RWMutex serializes writers in-process and
	WithTx holds the write lock for the whole unit. The same patterns port
	to PostgreSQL with row-level locks instead of the process mutex.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nkwazi/invest-engine/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: avoids SQLITE_BUSY under write contention and
	// keeps ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		level TEXT NOT NULL DEFAULT '',
		wallet TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		last_withdrawal_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Append-only ledger. No UPDATE, no DELETE (outside the explicit
	-- account cascade). rowid keeps same-instant entries in append order.
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		slot_id TEXT,
		reason TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account_time
		ON entries(account_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		principal TEXT NOT NULL,
		status TEXT NOT NULL,
		evidence_ref TEXT NOT NULL DEFAULT '',
		total_accruals TEXT NOT NULL DEFAULT '0',
		last_accrual_date TEXT NOT NULL DEFAULT '',
		opened_at TEXT NOT NULL,
		closed_at TEXT,
		decided_by TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_slots_account ON slots(account_id);
	CREATE INDEX IF NOT EXISTS idx_slots_status ON slots(status);

	-- CRITICAL: at most one active slot per account.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_slots_one_active
		ON slots(account_id) WHERE status = 'active';

	CREATE TABLE IF NOT EXISTS withdrawals (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		slot_id TEXT,
		gross TEXT NOT NULL,
		fee TEXT NOT NULL,
		net TEXT NOT NULL,
		wallet TEXT NOT NULL,
		phone TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested_at TEXT NOT NULL,
		processed_at TEXT,
		processed_by TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_account ON withdrawals(account_id);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// mapConstraintErr converts SQLite uniqueness violations into the engine's
// error vocabulary.
func mapConstraintErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := serr.Error()
		switch {
		case strings.Contains(msg, "idempotency_key"):
			return engine.ErrDuplicateIdempotencyKey
		case strings.Contains(msg, "slots.account_id"), strings.Contains(msg, "idx_slots_one_active"):
			return engine.ErrConcurrentModification
		case strings.Contains(msg, "accounts.id"):
			return engine.ErrAccountExists
		}
	}
	return err
}

// runner abstracts *sql.DB and *sql.Tx so the same queries serve both the
// plain store and the transactional view.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	r runner
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (q queries) CreateAccount(ctx context.Context, a engine.Account) error {
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO accounts (id, level, wallet, phone, last_withdrawal_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(a.ID), a.Level, string(a.Wallet), a.Phone, a.LastWithdrawalDate,
		a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

func (q queries) GetAccount(ctx context.Context, id engine.AccountID) (*engine.Account, error) {
	row := q.r.QueryRowContext(ctx, `
		SELECT id, level, wallet, phone, last_withdrawal_date, created_at
		FROM accounts WHERE id = ?`, string(id))

	var a engine.Account
	var createdAt, wallet string
	err := row.Scan(&a.ID, &a.Level, &wallet, &a.Phone, &a.LastWithdrawalDate, &createdAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Wallet = engine.WalletKind(wallet)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

func (q queries) UpdateAccount(ctx context.Context, a engine.Account) error {
	res, err := q.r.ExecContext(ctx, `
		UPDATE accounts SET level = ?, wallet = ?, phone = ?, last_withdrawal_date = ?
		WHERE id = ?`,
		a.Level, string(a.Wallet), a.Phone, a.LastWithdrawalDate, string(a.ID))
	if err != nil {
		return err
	}
	return requireOneRow(res, engine.ErrAccountNotFound)
}

func (q queries) DeleteAccountCascade(ctx context.Context, id engine.AccountID) error {
	// The only code path that removes ledger rows; deliberately explicit.
	for _, stmt := range []string{
		`DELETE FROM withdrawals WHERE account_id = ?`,
		`DELETE FROM slots WHERE account_id = ?`,
		`DELETE FROM entries WHERE account_id = ?`,
		`DELETE FROM accounts WHERE id = ?`,
	} {
		if _, err := q.r.ExecContext(ctx, stmt, string(id)); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (q queries) AppendEntry(ctx context.Context, e engine.LedgerEntry) error {
	var slotID any
	if e.SlotID != nil {
		slotID = string(*e.SlotID)
	}
	var idem any
	if e.IdempotencyKey != "" {
		idem = e.IdempotencyKey
	}
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO entries (id, account_id, kind, amount, slot_id, reason, idempotency_key, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.AccountID), string(e.Kind), e.Amount.String(),
		slotID, e.Reason, idem, e.CreatedBy, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

func (q queries) EntryExists(ctx context.Context, key string) (bool, error) {
	var n int
	err := q.r.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entries WHERE idempotency_key = ?`, key).Scan(&n)
	return n > 0, err
}

func (q queries) LoadEntries(ctx context.Context, id engine.AccountID) ([]engine.LedgerEntry, error) {
	rows, err := q.r.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, slot_id, reason, idempotency_key, created_by, created_at
		FROM entries WHERE account_id = ?
		ORDER BY created_at ASC, rowid ASC`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (q queries) LoadRecentEntries(ctx context.Context, id engine.AccountID, limit int) ([]engine.LedgerEntry, error) {
	rows, err := q.r.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, slot_id, reason, idempotency_key, created_by, created_at
		FROM entries WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]engine.LedgerEntry, error) {
	var out []engine.LedgerEntry
	for rows.Next() {
		var e engine.LedgerEntry
		var amount, createdAt string
		var slotID, idem sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &amount, &slotID, &e.Reason, &idem, &e.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q for entry %s: %w", amount, e.ID, err)
		}
		e.Amount = d
		if slotID.Valid {
			sid := engine.SlotID(slotID.String)
			e.SlotID = &sid
		}
		if idem.Valid {
			e.IdempotencyKey = idem.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// SLOTS
// =============================================================================

func (q queries) CreateSlot(ctx context.Context, sl engine.InvestmentSlot) error {
	var closedAt any
	if sl.ClosedAt != nil {
		closedAt = sl.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO slots (id, account_id, tier, principal, status, evidence_ref,
			total_accruals, last_accrual_date, opened_at, closed_at, decided_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(sl.ID), string(sl.AccountID), sl.Tier, sl.Principal.String(), string(sl.Status),
		sl.EvidenceRef, sl.TotalAccruals.String(), sl.LastAccrualDate,
		sl.OpenedAt.UTC().Format(time.RFC3339Nano), closedAt, sl.DecidedBy)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

const slotColumns = `id, account_id, tier, principal, status, evidence_ref,
	total_accruals, last_accrual_date, opened_at, closed_at, decided_by`

func (q queries) GetSlot(ctx context.Context, id engine.SlotID) (*engine.InvestmentSlot, error) {
	row := q.r.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, string(id))
	sl, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrSlotNotFound
	}
	return sl, err
}

func (q queries) UpdateSlot(ctx context.Context, sl engine.InvestmentSlot) error {
	var closedAt any
	if sl.ClosedAt != nil {
		closedAt = sl.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := q.r.ExecContext(ctx, `
		UPDATE slots SET status = ?, total_accruals = ?, last_accrual_date = ?,
			closed_at = ?, decided_by = ?
		WHERE id = ?`,
		string(sl.Status), sl.TotalAccruals.String(), sl.LastAccrualDate,
		closedAt, sl.DecidedBy, string(sl.ID))
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireOneRow(res, engine.ErrSlotNotFound)
}

func (q queries) ActiveSlot(ctx context.Context, id engine.AccountID) (*engine.InvestmentSlot, error) {
	row := q.r.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE account_id = ? AND status = 'active'`, string(id))
	sl, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sl, err
}

func (q queries) ActiveSlots(ctx context.Context) ([]engine.InvestmentSlot, error) {
	return q.SlotsByStatus(ctx, engine.SlotActive)
}

func (q queries) SlotsByStatus(ctx context.Context, status engine.SlotStatus) ([]engine.InvestmentSlot, error) {
	rows, err := q.r.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE status = ? ORDER BY opened_at ASC, rowid ASC`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.InvestmentSlot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sl)
	}
	return out, rows.Err()
}

func (q queries) CountActiveSlots(ctx context.Context, id engine.AccountID) (int, error) {
	var n int
	err := q.r.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM slots WHERE account_id = ? AND status = 'active'`, string(id)).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*engine.InvestmentSlot, error) {
	var sl engine.InvestmentSlot
	var principal, accruals, openedAt string
	var closedAt sql.NullString
	err := row.Scan(&sl.ID, &sl.AccountID, &sl.Tier, &principal, &sl.Status, &sl.EvidenceRef,
		&accruals, &sl.LastAccrualDate, &openedAt, &closedAt, &sl.DecidedBy)
	if err != nil {
		return nil, err
	}
	if sl.Principal, err = decimal.NewFromString(principal); err != nil {
		return nil, fmt.Errorf("corrupt principal %q for slot %s: %w", principal, sl.ID, err)
	}
	if sl.TotalAccruals, err = decimal.NewFromString(accruals); err != nil {
		return nil, fmt.Errorf("corrupt total_accruals %q for slot %s: %w", accruals, sl.ID, err)
	}
	sl.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
	if closedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, closedAt.String)
		sl.ClosedAt = &t
	}
	return &sl, nil
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

func (q queries) CreateWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	var slotID any
	if w.SlotID != nil {
		slotID = string(*w.SlotID)
	}
	_, err := q.r.ExecContext(ctx, `
		INSERT INTO withdrawals (id, account_id, slot_id, gross, fee, net, wallet, phone,
			status, requested_at, processed_by, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(w.ID), string(w.AccountID), slotID,
		w.Gross.String(), w.Fee.String(), w.Net.String(),
		string(w.Wallet), w.Phone, string(w.Status),
		w.RequestedAt.UTC().Format(time.RFC3339Nano), w.ProcessedBy, w.Notes)
	return err
}

const withdrawalColumns = `id, account_id, slot_id, gross, fee, net, wallet, phone,
	status, requested_at, processed_at, processed_by, notes`

func (q queries) GetWithdrawal(ctx context.Context, id engine.RequestID) (*engine.WithdrawalRequest, error) {
	row := q.r.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = ?`, string(id))
	w, err := scanWithdrawal(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrRequestNotFound
	}
	return w, err
}

func (q queries) UpdateWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	var processedAt any
	if w.ProcessedAt != nil {
		processedAt = w.ProcessedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := q.r.ExecContext(ctx, `
		UPDATE withdrawals SET status = ?, processed_at = ?, processed_by = ?, notes = ?
		WHERE id = ?`,
		string(w.Status), processedAt, w.ProcessedBy, w.Notes, string(w.ID))
	if err != nil {
		return err
	}
	return requireOneRow(res, engine.ErrRequestNotFound)
}

func (q queries) WithdrawalsByStatus(ctx context.Context, status engine.WithdrawalStatus) ([]engine.WithdrawalRequest, error) {
	rows, err := q.r.QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = ? ORDER BY requested_at ASC, rowid ASC`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func scanWithdrawal(row rowScanner) (*engine.WithdrawalRequest, error) {
	var w engine.WithdrawalRequest
	var gross, fee, net, requestedAt string
	var slotID, processedAt sql.NullString
	err := row.Scan(&w.ID, &w.AccountID, &slotID, &gross, &fee, &net, &w.Wallet, &w.Phone,
		&w.Status, &requestedAt, &processedAt, &w.ProcessedBy, &w.Notes)
	if err != nil {
		return nil, err
	}
	if w.Gross, err = decimal.NewFromString(gross); err != nil {
		return nil, fmt.Errorf("corrupt gross %q for withdrawal %s: %w", gross, w.ID, err)
	}
	if w.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("corrupt fee %q for withdrawal %s: %w", fee, w.ID, err)
	}
	if w.Net, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("corrupt net %q for withdrawal %s: %w", net, w.ID, err)
	}
	if slotID.Valid {
		sid := engine.SlotID(slotID.String)
		w.SlotID = &sid
	}
	w.RequestedAt, _ = time.Parse(time.RFC3339Nano, requestedAt)
	if processedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, processedAt.String)
		w.ProcessedAt = &t
	}
	return &w, nil
}

func requireOneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// =============================================================================
// STORE METHODS - delegate to queries over the plain connection
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, a engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateAccount(ctx, a)
}

func (s *Store) GetAccount(ctx context.Context, id engine.AccountID) (*engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetAccount(ctx, id)
}

func (s *Store) UpdateAccount(ctx context.Context, a engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateAccount(ctx, a)
}

func (s *Store) DeleteAccountCascade(ctx context.Context, id engine.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteAccountCascade(ctx, id)
}

func (s *Store) AppendEntry(ctx context.Context, e engine.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.AppendEntry(ctx, e)
}

func (s *Store) EntryExists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.EntryExists(ctx, key)
}

func (s *Store) LoadEntries(ctx context.Context, id engine.AccountID) ([]engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.LoadEntries(ctx, id)
}

func (s *Store) LoadRecentEntries(ctx context.Context, id engine.AccountID, limit int) ([]engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.LoadRecentEntries(ctx, id, limit)
}

func (s *Store) CreateSlot(ctx context.Context, sl engine.InvestmentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateSlot(ctx, sl)
}

func (s *Store) GetSlot(ctx context.Context, id engine.SlotID) (*engine.InvestmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetSlot(ctx, id)
}

func (s *Store) UpdateSlot(ctx context.Context, sl engine.InvestmentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateSlot(ctx, sl)
}

func (s *Store) ActiveSlot(ctx context.Context, id engine.AccountID) (*engine.InvestmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ActiveSlot(ctx, id)
}

func (s *Store) ActiveSlots(ctx context.Context) ([]engine.InvestmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ActiveSlots(ctx)
}

func (s *Store) SlotsByStatus(ctx context.Context, status engine.SlotStatus) ([]engine.InvestmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.SlotsByStatus(ctx, status)
}

func (s *Store) CountActiveSlots(ctx context.Context, id engine.AccountID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.CountActiveSlots(ctx, id)
}

func (s *Store) CreateWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateWithdrawal(ctx, w)
}

func (s *Store) GetWithdrawal(ctx context.Context, id engine.RequestID) (*engine.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetWithdrawal(ctx, id)
}

func (s *Store) UpdateWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateWithdrawal(ctx, w)
}

func (s *Store) WithdrawalsByStatus(ctx context.Context, status engine.WithdrawalStatus) ([]engine.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.WithdrawalsByStatus(ctx, status)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction, holding the writer
// lock for the whole unit so a concurrent projection never observes a
// half-written multi-step operation.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&txView{queries{tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// txView adapts queries over *sql.Tx to engine.Store.
type txView struct {
	queries
}
