package engine

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NOTIFICATIONS - Fire-and-forget, never escalate to the caller
// =============================================================================

type EventType string

const (
	EventDepositApproved  EventType = "deposit_approved"
	EventDepositDenied    EventType = "deposit_denied"
	EventLevelOpened      EventType = "level_opened"
	EventLevelSwitched    EventType = "level_switched"
	EventSlotTerminated   EventType = "slot_terminated"
	EventWithdrawalPaid   EventType = "withdrawal_paid"
	EventWithdrawalDenied EventType = "withdrawal_denied"
	EventBonusGranted     EventType = "bonus_granted"
)

// Event describes a committed state transition worth telling the user about.
type Event struct {
	Type      EventType
	AccountID AccountID
	Amount    decimal.Decimal
	Tier      string
	Notes     string
}

// Notifier delivers events to the user (email, SMS, bot - a collaborator
// concern). Implementations may block briefly but must not be relied on:
// the engine calls Notify after commit and only logs failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// LogNotifier writes events to the process log. Default in dev.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	log.Printf("[Notify] %s account=%s amount=%s tier=%s", ev.Type, ev.AccountID, ev.Amount.StringFixed(2), ev.Tier)
	return nil
}

// notify dispatches fire-and-forget: a delivery failure is logged and
// never rolls back or fails the state change that caused it.
func (e *Engine) notify(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		log.Printf("[Notify] delivery failed for %s account=%s: %v", ev.Type, ev.AccountID, err)
	}
}
