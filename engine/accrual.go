/*
accrual.go - Idempotent daily accrual job

For every active slot, posts one accrual entry of principal * dailyRate
and bumps the slot's accrual counter. Idempotent per (slot, day): the
slot's LastAccrualDate marks the period as credited, and the ledger
entry's idempotency key ("accrual:<slot>:<day>") catches anything that
slips past the marker. Re-running the job within one day is a no-op.

Slots never leave "active" because of elapsed time: accrual continues
until the user switches levels or an operator terminates the slot.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// RunDailyAccrual credits every active slot once for the current UTC day.
// Returns the number of slots credited. Safe to invoke any number of
// times per day; safe to run concurrently with user operations.
func (e *Engine) RunDailyAccrual(ctx context.Context) (int, error) {
	metricAccrualRuns.Inc()
	today := e.today()

	slots, err := e.store.ActiveSlots(ctx)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, candidate := range slots {
		ok, err := e.accrueSlot(ctx, candidate.ID, today)
		if err != nil {
			// One bad slot must not starve the rest of the run.
			log.Printf("[Accrual] slot %s: %v", candidate.ID, err)
			continue
		}
		if ok {
			credited++
			metricAccrualCredits.Inc()
		}
	}

	log.Printf("[Accrual] %s: credited %d of %d active slots", today, credited, len(slots))
	return credited, nil
}

// accrueSlot credits one slot for the period, under the account lock.
// Returns false when the slot was already credited or no longer active.
func (e *Engine) accrueSlot(ctx context.Context, slotID SlotID, today string) (bool, error) {
	peek, err := e.store.GetSlot(ctx, slotID)
	if err != nil {
		return false, err
	}

	unlock := e.locks.acquire(peek.AccountID)
	defer unlock()

	credited := false
	err = e.store.WithTx(ctx, func(s Store) error {
		slot, err := s.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		// Re-check under the lock: the slot may have been terminated or
		// credited since the candidate list was read.
		if slot.Status != SlotActive || slot.LastAccrualDate == today {
			return nil
		}

		tier, ok := e.catalog.Get(slot.Tier)
		if !ok {
			return fmt.Errorf("%w: slot %s references %q", ErrUnknownTier, slot.ID, slot.Tier)
		}
		amount := slot.Principal.Mul(tier.DailyRate).Round(2)

		if _, err := NewLedger(s).Append(ctx, LedgerEntry{
			AccountID:      slot.AccountID,
			Kind:           KindAccrual,
			Amount:         amount,
			SlotID:         &slot.ID,
			Reason:         fmt.Sprintf("daily accrual %s @ %s", slot.Tier, tier.DailyRate),
			IdempotencyKey: fmt.Sprintf("accrual:%s:%s", slot.ID, today),
			CreatedBy:      "system",
			CreatedAt:      e.now(),
		}); err != nil {
			if errors.Is(err, ErrDuplicateIdempotencyKey) {
				// Already credited for this period by another runner.
				return nil
			}
			return err
		}

		slot.TotalAccruals = slot.TotalAccruals.Add(amount)
		slot.LastAccrualDate = today
		if err := s.UpdateSlot(ctx, *slot); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}
