/*
withdrawal.go - Withdrawal request lifecycle

FLOW:

	request:  validates minimum, destination, the one-per-day gate and the
	          projected balance; computes fee = round2(gross * rate) ONCE;
	          creates a pending request with a destination snapshot.
	          NO ledger entry yet.
	approve:  appends one withdrawal entry of the GROSS amount (the fee is
	          implicit in the debit), stamps the daily gate, marks paid.
	deny:     marks denied with notes; no ledger effect; the daily gate is
	          NOT consumed, the user may request again the same day.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComputeFee applies the fee law: fee = round2(gross * rate), net = gross - fee.
// Computed once at request creation and never recomputed.
func ComputeFee(gross, rate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = gross.Mul(rate).Round(2)
	net = gross.Sub(fee)
	return fee, net
}

// RequestWithdrawal validates and records a pending withdrawal.
func (e *Engine) RequestWithdrawal(ctx context.Context, id AccountID, gross decimal.Decimal) (*WithdrawalRequest, error) {
	if !gross.IsPositive() {
		return nil, fmt.Errorf("%w: gross must be positive, got %s", ErrInvalidAmount, gross)
	}

	unlock := e.locks.acquire(id)
	defer unlock()

	var req WithdrawalRequest
	err := e.store.WithTx(ctx, func(s Store) error {
		account, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if gross.LessThan(e.cfg.MinWithdrawal) {
			return fmt.Errorf("%w: minimum is %s, got %s", ErrBelowMinimum, e.cfg.MinWithdrawal, gross)
		}
		if !account.HasDestination() {
			return ErrDestinationNotConfigured
		}
		if account.LastWithdrawalDate == e.today() {
			return ErrAlreadyWithdrawnToday
		}

		balance, err := NewLedger(s).ProjectBalance(ctx, id)
		if err != nil {
			return err
		}
		if gross.GreaterThan(balance) {
			return &InsufficientBalanceError{AccountID: id, Available: balance, Requested: gross}
		}

		fee, net := ComputeFee(gross, e.cfg.FeeRate)

		var slotRef *SlotID
		if active, err := s.ActiveSlot(ctx, id); err != nil {
			return err
		} else if active != nil {
			slotRef = &active.ID
		}

		req = WithdrawalRequest{
			ID:          RequestID(uuid.NewString()),
			AccountID:   id,
			SlotID:      slotRef,
			Gross:       gross,
			Fee:         fee,
			Net:         net,
			Wallet:      account.Wallet,
			Phone:       account.Phone,
			Status:      WithdrawalPending,
			RequestedAt: e.now(),
		}
		return s.CreateWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// DecideWithdrawal approves or denies a pending request, exactly once.
func (e *Engine) DecideWithdrawal(ctx context.Context, requestID RequestID, approve bool, operator, notes string) (WithdrawalStatus, error) {
	peek, err := e.store.GetWithdrawal(ctx, requestID)
	if err != nil {
		return "", err
	}

	unlock := e.locks.acquire(peek.AccountID)
	defer unlock()

	var status WithdrawalStatus
	var net decimal.Decimal
	err = e.store.WithTx(ctx, func(s Store) error {
		req, err := s.GetWithdrawal(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %s is %s", ErrNotPending, requestID, req.Status)
		}

		now := e.now()
		req.ProcessedAt = &now
		req.ProcessedBy = operator
		req.Notes = notes
		net = req.Net

		if !approve {
			// Denial does not consume the daily gate.
			req.Status = WithdrawalDenied
			status = WithdrawalDenied
			return s.UpdateWithdrawal(ctx, *req)
		}

		ledger := NewLedger(s)

		// The balance may have dropped since the request was created
		// (e.g. a level switch in between). Never let the debit push the
		// projection negative.
		balance, err := ledger.ProjectBalance(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if req.Gross.GreaterThan(balance) {
			return &InsufficientBalanceError{AccountID: req.AccountID, Available: balance, Requested: req.Gross}
		}

		if _, err := ledger.Append(ctx, LedgerEntry{
			AccountID:      req.AccountID,
			Kind:           KindWithdrawal,
			Amount:         req.Gross,
			SlotID:         req.SlotID,
			Reason:         fmt.Sprintf("withdrawal paid: net %s to %s %s", req.Net.StringFixed(2), req.Wallet, req.Phone),
			IdempotencyKey: fmt.Sprintf("withdraw:%s", req.ID),
			CreatedBy:      operator,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		account, err := s.GetAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		account.LastWithdrawalDate = DayStamp(now)
		if err := s.UpdateAccount(ctx, *account); err != nil {
			return err
		}

		req.Status = WithdrawalPaid
		status = WithdrawalPaid
		return s.UpdateWithdrawal(ctx, *req)
	})
	if err != nil {
		return "", err
	}

	if approve {
		observeDecision("withdrawal", "paid")
		e.notify(ctx, Event{Type: EventWithdrawalPaid, AccountID: peek.AccountID, Amount: net, Notes: notes})
	} else {
		observeDecision("withdrawal", "denied")
		e.notify(ctx, Event{Type: EventWithdrawalDenied, AccountID: peek.AccountID, Amount: peek.Gross, Notes: notes})
	}
	return status, nil
}

// PendingWithdrawals returns the operator queue of undecided requests.
func (e *Engine) PendingWithdrawals(ctx context.Context) ([]WithdrawalRequest, error) {
	return e.store.WithdrawalsByStatus(ctx, WithdrawalPending)
}
