/*
store.go - Persistence interfaces

PURPOSE:

	Defines the boundary between the engine and the database. The ledger
	side of the Store is APPEND-ONLY: there is no update or delete method
	for entries, and implementations must reject duplicate idempotency keys
	with ErrDuplicateIdempotencyKey.

ATOMICITY:

	TxStore.WithTx gives the engine all-or-nothing multi-step writes
	(terminate slot + debit + open slot, approve withdrawal + stamp the
	daily gate). A failed step rolls back every prior write in the unit.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engine/store:  in-memory store for tests/dev
*/
package engine

import "context"

// Store persists accounts, ledger entries, slots and withdrawal requests.
type Store interface {
	// Accounts.
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	UpdateAccount(ctx context.Context, a Account) error
	// DeleteAccountCascade removes the account and ALL dependent rows
	// (slots, withdrawal requests, ledger entries) in one unit. This is
	// the only path that ever removes ledger entries.
	DeleteAccountCascade(ctx context.Context, id AccountID) error

	// Ledger. Append-only: no update, no delete.
	AppendEntry(ctx context.Context, e LedgerEntry) error
	EntryExists(ctx context.Context, idempotencyKey string) (bool, error)
	// LoadEntries returns all entries for an account, oldest first.
	LoadEntries(ctx context.Context, id AccountID) ([]LedgerEntry, error)
	// LoadRecentEntries returns up to limit entries, newest first.
	LoadRecentEntries(ctx context.Context, id AccountID, limit int) ([]LedgerEntry, error)

	// Slots. CreateSlot must enforce the single-active-slot invariant at
	// the storage layer and return ErrConcurrentModification on violation.
	CreateSlot(ctx context.Context, s InvestmentSlot) error
	GetSlot(ctx context.Context, id SlotID) (*InvestmentSlot, error)
	UpdateSlot(ctx context.Context, s InvestmentSlot) error
	// ActiveSlot returns the account's active slot, nil if none.
	ActiveSlot(ctx context.Context, id AccountID) (*InvestmentSlot, error)
	// ActiveSlots returns every active slot across all accounts.
	ActiveSlots(ctx context.Context) ([]InvestmentSlot, error)
	SlotsByStatus(ctx context.Context, status SlotStatus) ([]InvestmentSlot, error)
	CountActiveSlots(ctx context.Context, id AccountID) (int, error)

	// Withdrawal requests.
	CreateWithdrawal(ctx context.Context, w WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id RequestID) (*WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, w WithdrawalRequest) error
	WithdrawalsByStatus(ctx context.Context, status WithdrawalStatus) ([]WithdrawalRequest, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
