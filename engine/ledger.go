/*
ledger.go - Append-only ledger and balance projection

PURPOSE:

	The ledger is the immutable source of truth for all balance changes.
	Balance is always computed by folding entries - there is no stored
	"balance" column that can drift out of sync.

SIGN CONVENTION (the single definition, used everywhere):

	deposit, accrual, bonus  stored positive, added
	investment               stored negative, added (it is a debit)
	withdrawal               stored positive, subtracted

CRITICAL INVARIANTS:
 1. APPEND-ONLY: no update, no delete
 2. Every balance-affecting state change posts exactly one entry
 3. A caller that appends then projects observes its own write
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger validates and appends entries and projects balances over a Store.
// Construct one over the transactional view inside WithTx so projections
// observe uncommitted writes of the same unit.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// ValidateAmount enforces the sign convention for a kind.
func ValidateAmount(kind EntryKind, amount decimal.Decimal) error {
	switch kind {
	case KindInvestment:
		if !amount.IsNegative() {
			return fmt.Errorf("%w: %s amount must be negative, got %s", ErrInvalidAmount, kind, amount)
		}
	case KindDeposit, KindAccrual, KindBonus, KindWithdrawal:
		if !amount.IsPositive() {
			return fmt.Errorf("%w: %s amount must be positive, got %s", ErrInvalidAmount, kind, amount)
		}
	default:
		return fmt.Errorf("%w: unknown entry kind %q", ErrInvalidAmount, kind)
	}
	return nil
}

// Append validates and persists one entry. The entry is visible to
// subsequent projections as soon as Append returns.
func (l *Ledger) Append(ctx context.Context, e LedgerEntry) (*LedgerEntry, error) {
	if err := ValidateAmount(e.Kind, e.Amount); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = EntryID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.IdempotencyKey != "" {
		exists, err := l.store.EntryExists(ctx, e.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateIdempotencyKey
		}
	}
	if err := l.store.AppendEntry(ctx, e); err != nil {
		return nil, err
	}
	observeAppend(e.Kind)
	return &e, nil
}

// Contribution is the signed effect of an entry on the projected balance.
func Contribution(e LedgerEntry) decimal.Decimal {
	if e.Kind == KindWithdrawal {
		return e.Amount.Neg()
	}
	// Investment entries are stored negative, so plain addition debits.
	return e.Amount
}

// ProjectBalance is the pure fold over all of an account's entries:
//
//	sum(deposit) + sum(accrual) + sum(bonus) - sum(withdrawal) - sum(|investment|)
func (l *Ledger) ProjectBalance(ctx context.Context, id AccountID) (decimal.Decimal, error) {
	entries, err := l.store.LoadEntries(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(Contribution(e))
	}
	return balance, nil
}

// History returns up to limit entries, newest first.
func (l *Ledger) History(ctx context.Context, id AccountID, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.LoadRecentEntries(ctx, id, limit)
}
