/*
handlers.go - HTTP API handlers for the investment engine

PURPOSE:

	Exposes the engine via REST. Handles HTTP request/response, JSON
	serialization and validation, and delegates all semantics to the
	engine. Handlers never touch the store directly.

REQUEST FLOW:
 1. Parse and validate the request body (go-playground/validator)
 2. Parse monetary amounts with shopspring/decimal
 3. Call the engine
 4. Map the engine error taxonomy to an HTTP status
 5. Serialize the response

ERROR MAPPING:

	400: validation errors, unparseable amounts
	404: account/slot/request/tier not found
	409: lifecycle conflicts (already processed, same level, daily gate,
	     concurrent modification)
	422: insufficient balance
	500: everything else

OPERATOR IDENTITY:

	Operator endpoints read the acting operator from the X-Operator-ID
	header. Authentication itself lives in front of this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nkwazi/invest-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *engine.Engine
	validate *validator.Validate
}

// NewHandler creates a handler around the given engine.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{
		Engine:   eng,
		validate: validator.New(),
	}
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// parseAmount parses a client-supplied monetary string.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func operatorID(r *http.Request) string {
	if op := r.Header.Get("X-Operator-ID"); op != "" {
		return op
	}
	return "operator"
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount registers a new account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Engine.CreateAccount(r.Context(), engine.AccountID(req.ID))
	if err != nil {
		writeEngineError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

// GetAccount returns one account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	a, err := h.Engine.GetAccount(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// DeleteAccount removes an account and its full history. Operator-only.
// DELETE /api/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	if err := h.Engine.DeleteAccount(r.Context(), id); err != nil {
		writeEngineError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDestination configures the payout wallet and phone.
// PUT /api/accounts/{id}/destination
func (h *Handler) SetDestination(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	var req SetDestinationRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Engine.SetWithdrawalDestination(r.Context(), id, engine.WalletKind(req.Wallet), req.Phone)
	if err != nil {
		writeEngineError(w, "Failed to set destination", err)
		return
	}

	a, err := h.Engine.GetAccount(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// GetBalance projects the account balance from the ledger.
// GET /api/accounts/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	balance, err := h.Engine.GetBalance(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to project balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID: string(id),
		Balance:   balance.StringFixed(2),
	})
}

// GetHistory returns the account's ledger entries, newest first.
// GET /api/accounts/{id}/history?limit=50
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Engine.History(r.Context(), id, limit)
	if err != nil {
		writeEngineError(w, "Failed to load history", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DEPOSIT HANDLERS
// =============================================================================

// SubmitDeposit records a claimed deposit awaiting operator review.
// POST /api/accounts/{id}/deposits
func (h *Handler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	var req CreateDepositRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	slot, err := h.Engine.CreateDepositRequest(r.Context(), id, amount, req.EvidenceRef)
	if err != nil {
		writeEngineError(w, "Failed to record deposit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotDTO(slot))
}

// ListPendingDeposits returns deposit requests awaiting review.
// GET /api/deposits/pending
func (h *Handler) ListPendingDeposits(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Engine.PendingDeposits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending deposits", err)
		return
	}

	dtos := make([]SlotDTO, len(slots))
	for i := range slots {
		dtos[i] = toSlotDTO(&slots[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveDeposit confirms the deposit and credits the ledger.
// POST /api/deposits/{id}/approve
func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	h.decideDeposit(w, r, true)
}

// DenyDeposit rejects the deposit; nothing is credited.
// POST /api/deposits/{id}/deny
func (h *Handler) DenyDeposit(w http.ResponseWriter, r *http.Request) {
	h.decideDeposit(w, r, false)
}

func (h *Handler) decideDeposit(w http.ResponseWriter, r *http.Request, approve bool) {
	slotID := engine.SlotID(chi.URLParam(r, "id"))

	status, err := h.Engine.DecideDeposit(r.Context(), slotID, approve, operatorID(r))
	if err != nil {
		writeEngineError(w, "Failed to decide deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{ID: string(slotID), Status: string(status)})
}

// =============================================================================
// LEVEL HANDLERS
// =============================================================================

// OpenLevel opens or switches the account's investment level.
// POST /api/accounts/{id}/levels
func (h *Handler) OpenLevel(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	var req OpenLevelRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.OpenOrSwitchLevel(r.Context(), id, req.Tier)
	if err != nil {
		writeEngineError(w, "Failed to open level", err)
		return
	}
	writeJSON(w, http.StatusCreated, SwitchResultDTO{
		Slot:         toSlotDTO(result.Slot),
		PreviousTier: result.PreviousTier,
	})
}

// TerminateSlot closes an active slot without opening a replacement.
// POST /api/slots/{id}/terminate
func (h *Handler) TerminateSlot(w http.ResponseWriter, r *http.Request) {
	slotID := engine.SlotID(chi.URLParam(r, "id"))

	if err := h.Engine.TerminateSlot(r.Context(), slotID, operatorID(r)); err != nil {
		writeEngineError(w, "Failed to terminate slot", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{ID: string(slotID), Status: string(engine.SlotTerminated)})
}

// =============================================================================
// WITHDRAWAL HANDLERS
// =============================================================================

// SubmitWithdrawal requests a payout of the given gross amount.
// POST /api/accounts/{id}/withdrawals
func (h *Handler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	var req WithdrawalRequestBody
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	gross, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	wr, err := h.Engine.RequestWithdrawal(r.Context(), id, gross)
	if err != nil {
		writeEngineError(w, "Failed to request withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWithdrawalDTO(wr))
}

// ListPendingWithdrawals returns withdrawal requests awaiting review.
// GET /api/withdrawals/pending
func (h *Handler) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Engine.PendingWithdrawals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending withdrawals", err)
		return
	}

	dtos := make([]WithdrawalDTO, len(reqs))
	for i := range reqs {
		dtos[i] = toWithdrawalDTO(&reqs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveWithdrawal marks the payout as made and debits the ledger.
// POST /api/withdrawals/{id}/approve
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decideWithdrawal(w, r, true)
}

// DenyWithdrawal rejects the request; the daily gate is not consumed.
// POST /api/withdrawals/{id}/deny
func (h *Handler) DenyWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decideWithdrawal(w, r, false)
}

func (h *Handler) decideWithdrawal(w http.ResponseWriter, r *http.Request, approve bool) {
	requestID := engine.RequestID(chi.URLParam(r, "id"))

	var req DecisionRequest
	if r.ContentLength > 0 {
		if err := h.decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	status, err := h.Engine.DecideWithdrawal(r.Context(), requestID, approve, operatorID(r), req.Notes)
	if err != nil {
		writeEngineError(w, "Failed to decide withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{ID: string(requestID), Status: string(status)})
}

// =============================================================================
// CATALOG & ADMIN HANDLERS
// =============================================================================

// ListCatalog returns the tier table ordered by principal.
// GET /api/catalog
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	tiers := h.Engine.Catalog().List()
	dtos := make([]TierDTO, len(tiers))
	for i, t := range tiers {
		dtos[i] = toTierDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GrantBonus credits an account outside the deposit flow. Operator-only.
// POST /api/admin/accounts/{id}/bonus
func (h *Handler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	id := engine.AccountID(chi.URLParam(r, "id"))

	var req BonusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	entry, err := h.Engine.GrantBonus(r.Context(), id, amount, req.Reason, operatorID(r))
	if err != nil {
		writeEngineError(w, "Failed to grant bonus", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// RunAccrual triggers a daily accrual run. Idempotent per UTC day.
// POST /api/admin/accrual/run
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	credited, err := h.Engine.RunDailyAccrual(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Accrual run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, AccrualRunDTO{Credited: credited})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps the engine's error taxonomy to an HTTP status.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case engine.IsClientError(err):
		status = http.StatusBadRequest
	case engine.IsNotFound(err):
		status = http.StatusNotFound
	case engine.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, message, err)
}
