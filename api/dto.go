/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication, decoupling the
	engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:

	All monetary values cross the wire as strings with two decimal places
	("350.00") to avoid float drift in clients. Request amounts are parsed
	with shopspring/decimal; unparseable amounts are a 400.

VALIDATION:

	Request bodies carry go-playground/validator tags; handlers run the
	shared validator before touching the engine.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/nkwazi/invest-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest registers a new account.
type CreateAccountRequest struct {
	ID string `json:"id" validate:"required"`
}

// SetDestinationRequest configures the payout destination.
type SetDestinationRequest struct {
	Wallet string `json:"wallet" validate:"required,oneof=mtn airtel zamtel"`
	Phone  string `json:"phone" validate:"required,min=9,max=15"`
}

// CreateDepositRequest records a claimed deposit awaiting review.
type CreateDepositRequest struct {
	Amount      string `json:"amount" validate:"required"`
	EvidenceRef string `json:"evidence_ref" validate:"max=512"`
}

// OpenLevelRequest opens or switches the account's investment level.
type OpenLevelRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// WithdrawalRequestBody asks for a payout of the given gross amount.
type WithdrawalRequestBody struct {
	Amount string `json:"amount" validate:"required"`
}

// DecisionRequest carries optional operator notes on approve/deny.
type DecisionRequest struct {
	Notes string `json:"notes" validate:"max=512"`
}

// BonusRequest credits an account outside the deposit flow.
type BonusRequest struct {
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason" validate:"required,max=512"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID                 string `json:"id"`
	Level              string `json:"level,omitempty"`
	Wallet             string `json:"wallet,omitempty"`
	Phone              string `json:"phone,omitempty"`
	LastWithdrawalDate string `json:"last_withdrawal_date,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// BalanceDTO is the projected balance for one account.
type BalanceDTO struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// EntryDTO represents one ledger entry.
type EntryDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	SlotID    string `json:"slot_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SlotDTO represents an investment slot (deposit record or active level).
type SlotDTO struct {
	ID              string `json:"id"`
	AccountID       string `json:"account_id"`
	Tier            string `json:"tier,omitempty"`
	Principal       string `json:"principal"`
	Status          string `json:"status"`
	EvidenceRef     string `json:"evidence_ref,omitempty"`
	TotalAccruals   string `json:"total_accruals"`
	LastAccrualDate string `json:"last_accrual_date,omitempty"`
	OpenedAt        string `json:"opened_at"`
	ClosedAt        string `json:"closed_at,omitempty"`
	DecidedBy       string `json:"decided_by,omitempty"`
}

// SwitchResultDTO reports a level change.
type SwitchResultDTO struct {
	Slot         SlotDTO `json:"slot"`
	PreviousTier string  `json:"previous_tier,omitempty"`
}

// WithdrawalDTO represents a withdrawal request.
type WithdrawalDTO struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Gross       string `json:"gross"`
	Fee         string `json:"fee"`
	Net         string `json:"net"`
	Wallet      string `json:"wallet"`
	Phone       string `json:"phone"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// TierDTO is one catalog row.
type TierDTO struct {
	Label        string `json:"label"`
	Amount       string `json:"amount"`
	DailyRate    string `json:"daily_rate"`
	DailyAccrual string `json:"daily_accrual"`
}

// DecisionDTO reports the lifecycle status after an operator decision.
type DecisionDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AccrualRunDTO reports one accrual job run.
type AccrualRunDTO struct {
	Credited int `json:"credited"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(a *engine.Account) AccountDTO {
	return AccountDTO{
		ID:                 string(a.ID),
		Level:              a.Level,
		Wallet:             string(a.Wallet),
		Phone:              a.Phone,
		LastWithdrawalDate: a.LastWithdrawalDate,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTO(e engine.LedgerEntry) EntryDTO {
	dto := EntryDTO{
		ID:        string(e.ID),
		Kind:      string(e.Kind),
		Amount:    e.Amount.StringFixed(2),
		Reason:    e.Reason,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.SlotID != nil {
		dto.SlotID = string(*e.SlotID)
	}
	return dto
}

func toSlotDTO(s *engine.InvestmentSlot) SlotDTO {
	dto := SlotDTO{
		ID:              string(s.ID),
		AccountID:       string(s.AccountID),
		Tier:            s.Tier,
		Principal:       s.Principal.StringFixed(2),
		Status:          string(s.Status),
		EvidenceRef:     s.EvidenceRef,
		TotalAccruals:   s.TotalAccruals.StringFixed(2),
		LastAccrualDate: s.LastAccrualDate,
		OpenedAt:        s.OpenedAt.Format(time.RFC3339),
		DecidedBy:       s.DecidedBy,
	}
	if s.ClosedAt != nil {
		dto.ClosedAt = s.ClosedAt.Format(time.RFC3339)
	}
	return dto
}

func toWithdrawalDTO(w *engine.WithdrawalRequest) WithdrawalDTO {
	dto := WithdrawalDTO{
		ID:          string(w.ID),
		AccountID:   string(w.AccountID),
		Gross:       w.Gross.StringFixed(2),
		Fee:         w.Fee.StringFixed(2),
		Net:         w.Net.StringFixed(2),
		Wallet:      string(w.Wallet),
		Phone:       w.Phone,
		Status:      string(w.Status),
		RequestedAt: w.RequestedAt.Format(time.RFC3339),
		ProcessedBy: w.ProcessedBy,
		Notes:       w.Notes,
	}
	if w.ProcessedAt != nil {
		dto.ProcessedAt = w.ProcessedAt.Format(time.RFC3339)
	}
	return dto
}

func toTierDTO(t engine.Tier) TierDTO {
	return TierDTO{
		Label:        t.Label,
		Amount:       t.Amount.StringFixed(2),
		DailyRate:    t.DailyRate.String(),
		DailyAccrual: t.DailyAccrual().StringFixed(2),
	}
}
