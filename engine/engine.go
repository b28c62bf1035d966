/*
engine.go - Engine facade and account operations

PURPOSE:

	Wires the catalog, store, per-account locks and notifier into the one
	object collaborators call. Every mutating operation follows the same
	shape:

	  unlock := e.locks.acquire(accountID)
	  defer unlock()
	  err := e.store.WithTx(func(s Store) error { read, validate, write })
	  e.notify(...)   // after commit only

	Configuration is explicit: fee rate, minimum withdrawal and the clock
	are fields, not package globals or environment reads.
*/
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config is the engine's explicit configuration.
type Config struct {
	// FeeRate is the withdrawal fee fraction (0.12 = 12%).
	FeeRate decimal.Decimal
	// MinWithdrawal is the smallest accepted gross withdrawal.
	MinWithdrawal decimal.Decimal
	// Now is the clock; defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FeeRate:       decimal.NewFromFloat(0.12),
		MinWithdrawal: decimal.NewFromInt(50),
	}
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	cfg      Config
	store    TxStore
	catalog  *Catalog
	notifier Notifier
	locks    *accountLocks
}

// New constructs the engine. The catalog is read-only after this point.
func New(cfg Config, store TxStore, catalog *Catalog, notifier Notifier) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FeeRate.IsZero() {
		cfg.FeeRate = decimal.NewFromFloat(0.12)
	}
	if cfg.MinWithdrawal.IsZero() {
		cfg.MinWithdrawal = decimal.NewFromInt(50)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		locks:    newAccountLocks(),
	}
}

// Catalog exposes the read-only tier table.
func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) now() time.Time { return e.cfg.Now().UTC() }

func (e *Engine) today() string { return DayStamp(e.cfg.Now()) }

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount registers a new account with no level and no history.
func (e *Engine) CreateAccount(ctx context.Context, id AccountID) (*Account, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty account id", ErrInvalidInput)
	}
	a := Account{ID: id, CreatedAt: e.now()}
	if err := e.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (e *Engine) GetAccount(ctx context.Context, id AccountID) (*Account, error) {
	return e.store.GetAccount(ctx, id)
}

// SetWithdrawalDestination configures where payouts go. Pending withdrawal
// requests keep their snapshot; this affects future requests only.
func (e *Engine) SetWithdrawalDestination(ctx context.Context, id AccountID, wallet WalletKind, phone string) error {
	switch wallet {
	case WalletMTN, WalletAirtel, WalletZamtel:
	default:
		return fmt.Errorf("%w: unknown wallet kind %q", ErrInvalidInput, wallet)
	}
	if phone == "" {
		return fmt.Errorf("%w: empty phone", ErrInvalidInput)
	}

	unlock := e.locks.acquire(id)
	defer unlock()

	return e.store.WithTx(ctx, func(s Store) error {
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		a.Wallet = wallet
		a.Phone = phone
		return s.UpdateAccount(ctx, *a)
	})
}

// DeleteAccount removes the account and everything hanging off it, in one
// transaction. Accounts with ledger history are never deleted implicitly;
// this explicit cascade is the only removal path and is operator-only at
// the API layer.
func (e *Engine) DeleteAccount(ctx context.Context, id AccountID) error {
	unlock := e.locks.acquire(id)
	defer unlock()

	return e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return err
		}
		return s.DeleteAccountCascade(ctx, id)
	})
}

// =============================================================================
// BALANCE & HISTORY
// =============================================================================

// GetBalance projects the account's balance from its full entry set.
func (e *Engine) GetBalance(ctx context.Context, id AccountID) (decimal.Decimal, error) {
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return decimal.Zero, err
	}
	return NewLedger(e.store).ProjectBalance(ctx, id)
}

// History returns the account's entries, newest first.
func (e *Engine) History(ctx context.Context, id AccountID, limit int) ([]LedgerEntry, error) {
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return NewLedger(e.store).History(ctx, id, limit)
}

// =============================================================================
// OPERATOR BONUS
// =============================================================================

// GrantBonus posts a bonus entry. Operator action; raises balance directly.
func (e *Engine) GrantBonus(ctx context.Context, id AccountID, amount decimal.Decimal, reason, operator string) (*LedgerEntry, error) {
	unlock := e.locks.acquire(id)
	defer unlock()

	var entry *LedgerEntry
	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return err
		}
		var err error
		entry, err = NewLedger(s).Append(ctx, LedgerEntry{
			AccountID: id,
			Kind:      KindBonus,
			Amount:    amount,
			Reason:    reason,
			CreatedBy: operator,
			CreatedAt: e.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, Event{Type: EventBonusGranted, AccountID: id, Amount: amount, Notes: reason})
	return entry, nil
}

// =============================================================================
// INVARIANT CHECK
// =============================================================================

// checkSingleActive verifies the single-active-slot invariant inside a
// transaction. A violation aborts the unit and is logged distinctly: it
// means a bug in the engine, not bad input.
func checkSingleActive(ctx context.Context, s Store, id AccountID) error {
	n, err := s.CountActiveSlots(ctx, id)
	if err != nil {
		return err
	}
	if n > 1 {
		observeInvariantViolation()
		iv := &InvariantViolationError{AccountID: id, Detail: fmt.Sprintf("%d active slots", n)}
		log.Printf("[Engine] FATAL %v", iv)
		return iv
	}
	return nil
}
