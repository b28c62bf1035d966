/*
investment.go - Deposit approval and the open/switch state machine

STATES (per InvestmentSlot):

	pending_deposit --approve--> deposit_recorded   (posts one deposit entry)
	pending_deposit --deny-----> denied             (no ledger effect)

	(none | active@A) --openOrSwitch(B)--> active@B  as ONE atomic unit:
	  a. project balance, fail if < B.amount
	  b. terminate the existing active slot, if any
	  c. append the investment debit of -B.amount
	  d. create the new slot as active
	  e. set Account.Level = B

	Two concurrent switches for one account are serialized by the
	per-account lock; the loser re-validates against fresh state. The
	storage layer's single-active uniqueness constraint backstops races
	from other processes sharing the database.

Deposits are never tied to a tier: approving one only raises balance.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DEPOSIT REQUESTS
// =============================================================================

// CreateDepositRequest records a pending deposit. No ledger effect until an
// operator approves it. evidenceRef is an opaque proof-of-payment pointer.
func (e *Engine) CreateDepositRequest(ctx context.Context, id AccountID, amount decimal.Decimal, evidenceRef string) (*InvestmentSlot, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive, got %s", ErrInvalidAmount, amount)
	}

	unlock := e.locks.acquire(id)
	defer unlock()

	slot := InvestmentSlot{
		ID:            SlotID(uuid.NewString()),
		AccountID:     id,
		Tier:          "", // standalone deposit record, never becomes active
		Principal:     amount,
		Status:        SlotPendingDeposit,
		EvidenceRef:   evidenceRef,
		TotalAccruals: decimal.Zero,
		OpenedAt:      e.now(),
	}

	err := e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return err
		}
		return s.CreateSlot(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// DecideDeposit approves or denies a pending deposit, exactly once.
// Approval posts one deposit entry; denial has no ledger effect.
// A second decision on the same request fails with ErrAlreadyProcessed.
func (e *Engine) DecideDeposit(ctx context.Context, slotID SlotID, approve bool, operator string) (SlotStatus, error) {
	// Resolve the account outside the lock, re-read inside it.
	peek, err := e.store.GetSlot(ctx, slotID)
	if err != nil {
		return "", err
	}

	unlock := e.locks.acquire(peek.AccountID)
	defer unlock()

	var status SlotStatus
	var amount decimal.Decimal
	err = e.store.WithTx(ctx, func(s Store) error {
		slot, err := s.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != SlotPendingDeposit {
			return fmt.Errorf("%w: deposit %s is %s", ErrAlreadyProcessed, slotID, slot.Status)
		}

		now := e.now()
		slot.ClosedAt = &now
		slot.DecidedBy = operator
		amount = slot.Principal

		if !approve {
			slot.Status = SlotDenied
			status = SlotDenied
			return s.UpdateSlot(ctx, *slot)
		}

		slot.Status = SlotDepositRecorded
		status = SlotDepositRecorded
		if err := s.UpdateSlot(ctx, *slot); err != nil {
			return err
		}
		_, err = NewLedger(s).Append(ctx, LedgerEntry{
			AccountID:      slot.AccountID,
			Kind:           KindDeposit,
			Amount:         slot.Principal,
			SlotID:         &slot.ID,
			Reason:         "deposit approved",
			IdempotencyKey: fmt.Sprintf("deposit:%s", slot.ID),
			CreatedBy:      operator,
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	if approve {
		observeDecision("deposit", "approved")
		e.notify(ctx, Event{Type: EventDepositApproved, AccountID: peek.AccountID, Amount: amount})
	} else {
		observeDecision("deposit", "denied")
		e.notify(ctx, Event{Type: EventDepositDenied, AccountID: peek.AccountID, Amount: amount})
	}
	return status, nil
}

// =============================================================================
// OPEN / SWITCH LEVEL
// =============================================================================

// OpenOrSwitchLevel enrolls the account in a tier, terminating any prior
// active slot, debiting the tier's principal and activating the new slot
// as one all-or-nothing unit.
func (e *Engine) OpenOrSwitchLevel(ctx context.Context, id AccountID, tierLabel string) (*SwitchResult, error) {
	tier, ok := e.catalog.Get(tierLabel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, tierLabel)
	}

	unlock := e.locks.acquire(id)
	defer unlock()

	var result SwitchResult
	err := e.store.WithTx(ctx, func(s Store) error {
		account, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}

		active, err := s.ActiveSlot(ctx, id)
		if err != nil {
			return err
		}
		if active != nil && active.Tier == tier.Label {
			return fmt.Errorf("%w: %s", ErrSameLevel, tier.Label)
		}

		ledger := NewLedger(s)
		balance, err := ledger.ProjectBalance(ctx, id)
		if err != nil {
			return err
		}
		if balance.LessThan(tier.Amount) {
			return &InsufficientBalanceError{AccountID: id, Available: balance, Requested: tier.Amount}
		}

		now := e.now()
		if active != nil {
			result.PreviousTier = active.Tier
			active.Status = SlotTerminated
			active.ClosedAt = &now
			if err := s.UpdateSlot(ctx, *active); err != nil {
				return err
			}
		}

		slot := InvestmentSlot{
			ID:            SlotID(uuid.NewString()),
			AccountID:     id,
			Tier:          tier.Label,
			Principal:     tier.Amount,
			Status:        SlotActive,
			TotalAccruals: decimal.Zero,
			OpenedAt:      now,
		}
		if _, err := ledger.Append(ctx, LedgerEntry{
			AccountID:      id,
			Kind:           KindInvestment,
			Amount:         tier.Amount.Neg(),
			SlotID:         &slot.ID,
			Reason:         fmt.Sprintf("open level %s", tier.Label),
			IdempotencyKey: fmt.Sprintf("invest:%s", slot.ID),
			CreatedBy:      string(id),
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		if err := s.CreateSlot(ctx, slot); err != nil {
			return err
		}

		account.Level = tier.Label
		if err := s.UpdateAccount(ctx, *account); err != nil {
			return err
		}
		result.Slot = &slot

		return checkSingleActive(ctx, s, id)
	})
	if err != nil {
		return nil, err
	}

	ev := Event{Type: EventLevelOpened, AccountID: id, Amount: tier.Amount, Tier: tier.Label}
	if result.PreviousTier != "" {
		ev.Type = EventLevelSwitched
		ev.Notes = "from " + result.PreviousTier
	}
	e.notify(ctx, ev)
	return &result, nil
}

// TerminateSlot closes an active slot without opening another. Operator
// action; the principal is not refunded (the debit stays in the ledger).
func (e *Engine) TerminateSlot(ctx context.Context, slotID SlotID, operator string) error {
	peek, err := e.store.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}

	unlock := e.locks.acquire(peek.AccountID)
	defer unlock()

	err = e.store.WithTx(ctx, func(s Store) error {
		slot, err := s.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != SlotActive {
			return fmt.Errorf("%w: slot %s is %s", ErrNotActive, slotID, slot.Status)
		}

		now := e.now()
		slot.Status = SlotTerminated
		slot.ClosedAt = &now
		slot.DecidedBy = operator
		if err := s.UpdateSlot(ctx, *slot); err != nil {
			return err
		}

		account, err := s.GetAccount(ctx, slot.AccountID)
		if err != nil {
			return err
		}
		account.Level = ""
		return s.UpdateAccount(ctx, *account)
	})
	if err != nil {
		return err
	}

	e.notify(ctx, Event{Type: EventSlotTerminated, AccountID: peek.AccountID, Tier: peek.Tier})
	return nil
}

// PendingDeposits returns the operator queue of undecided deposits.
func (e *Engine) PendingDeposits(ctx context.Context) ([]InvestmentSlot, error) {
	return e.store.SlotsByStatus(ctx, SlotPendingDeposit)
}
