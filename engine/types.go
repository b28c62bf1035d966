/*
Package engine is the ledger & lifecycle core of the investment platform.

PURPOSE:

	Tracks user funds moving through four operations - deposit, investment,
	accrual, withdrawal - and derives the live account balance from an
	append-only record of those operations. Enforces the approval lifecycle
	for deposits, investments and withdrawal requests, and the invariant
	that an account holds at most one active investment at a time.

KEY CONCEPTS IN THIS FILE (types.go):
  - LedgerEntry: an immutable, signed, dated monetary record
  - Account: per-user state (level, withdrawal destination, daily gate)
  - InvestmentSlot: a user's single enrollment in a tier
  - WithdrawalRequest: a pending payout with fee computed at creation

DESIGN PRINCIPLES:
 1. Immutability: ledger entries are never updated or deleted
 2. Precision: decimal.Decimal everywhere, no floating-point money
 3. Derivation: balance is always a fold over entries, never a stored field
 4. Serialization: all read-then-write operations lock per account

SEE ALSO:
  - ledger.go: the balance projection
  - investment.go, withdrawal.go: the two lifecycles
  - accrual.go: the idempotent daily job
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string
type SlotID string
type RequestID string

// =============================================================================
// LEDGER ENTRY - Atomic change to an account's funds
// =============================================================================

type EntryKind string

const (
	KindDeposit    EntryKind = "deposit"    // Operator-approved deposit (positive)
	KindInvestment EntryKind = "investment" // Debit for opening a tier (stored negative)
	KindAccrual    EntryKind = "accrual"    // Daily interest on an active slot (positive)
	KindBonus      EntryKind = "bonus"      // Manual operator credit (positive)
	KindWithdrawal EntryKind = "withdrawal" // Money leaving (stored positive, subtracted in projection)
)

// LedgerEntry is one immutable monetary record. Entries are append-only;
// there is no update or delete path anywhere in the engine.
type LedgerEntry struct {
	ID        EntryID
	AccountID AccountID
	Kind      EntryKind
	Amount    decimal.Decimal
	SlotID    *SlotID // set for investment and accrual entries
	Reason    string

	// IdempotencyKey prevents the same causing operation from posting twice.
	IdempotencyKey string

	CreatedBy string // operator id or "system"
	CreatedAt time.Time
}

// =============================================================================
// ACCOUNT
// =============================================================================

// WalletKind is the mobile-money network a payout is sent to.
type WalletKind string

const (
	WalletMTN    WalletKind = "mtn"
	WalletAirtel WalletKind = "airtel"
	WalletZamtel WalletKind = "zamtel"
)

// Account is the per-user state owned by this engine. Balance is NOT stored
// here: it is always projected from the account's ledger entries.
type Account struct {
	ID    AccountID
	Level string // current tier label, "" when not enrolled

	// Withdrawal destination. Both must be set before a withdrawal
	// request is accepted.
	Wallet WalletKind
	Phone  string

	// LastWithdrawalDate gates withdrawals to one per calendar day (UTC).
	// Day-stamp format ("2006-01-02"), empty when never withdrawn.
	LastWithdrawalDate string

	CreatedAt time.Time
}

// HasDestination reports whether the payout destination is configured.
func (a *Account) HasDestination() bool {
	return a.Wallet != "" && a.Phone != ""
}

// =============================================================================
// INVESTMENT SLOT - One enrollment, or one standalone deposit record
// =============================================================================

type SlotStatus string

const (
	SlotPendingDeposit  SlotStatus = "pending_deposit"  // deposit awaiting operator decision
	SlotDepositRecorded SlotStatus = "deposit_recorded" // deposit approved, ledger entry posted
	SlotDenied          SlotStatus = "denied"           // deposit denied, no ledger effect
	SlotActive          SlotStatus = "active"           // enrolled tier, accruing daily
	SlotTerminated      SlotStatus = "terminated"       // superseded by a switch or closed by an operator
)

// InvestmentSlot represents either a user's claim on a tier (Tier set,
// created by open/switch) or a standalone deposit record (Tier empty,
// created by a deposit request). Deposit records move
// pending_deposit -> deposit_recorded/denied and never become active.
//
// INVARIANT: at most one slot per account has status "active" at any time.
type InvestmentSlot struct {
	ID        SlotID
	AccountID AccountID
	Tier      string // "" for standalone deposit records
	Principal decimal.Decimal
	Status    SlotStatus

	// EvidenceRef is an opaque reference to proof of payment supplied with
	// a deposit request (upload handling is a collaborator concern).
	EvidenceRef string

	// Accrual bookkeeping.
	TotalAccruals   decimal.Decimal
	LastAccrualDate string // day-stamp of the last credited period, "" if never

	OpenedAt  time.Time
	ClosedAt  *time.Time
	DecidedBy string // operator who approved/denied/terminated
}

// SwitchResult is returned by OpenOrSwitchLevel.
type SwitchResult struct {
	Slot         *InvestmentSlot
	PreviousTier string // "" when the account had no active slot
}

// =============================================================================
// WITHDRAWAL REQUEST
// =============================================================================

type WithdrawalStatus string

const (
	WithdrawalPending WithdrawalStatus = "pending"
	WithdrawalPaid    WithdrawalStatus = "paid"
	WithdrawalDenied  WithdrawalStatus = "denied"
)

// WithdrawalRequest holds a payout moving through pending -> paid/denied.
// Fee and net are computed once at creation and never recomputed; the
// destination is snapshotted so later account edits don't redirect payouts.
type WithdrawalRequest struct {
	ID        RequestID
	AccountID AccountID
	SlotID    *SlotID // active slot at request time, if any

	Gross decimal.Decimal
	Fee   decimal.Decimal
	Net   decimal.Decimal

	Wallet WalletKind
	Phone  string

	Status      WithdrawalStatus
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy string
	Notes       string
}

// =============================================================================
// TIME
// =============================================================================

// DayStamp normalizes a time to its UTC calendar day. Used for the
// withdrawal gate and the accrual period marker.
func DayStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
