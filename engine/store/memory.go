// Package store provides an in-memory engine.TxStore for tests and dev.
package store

import (
	"context"
	"sync"

	"github.com/nkwazi/invest-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	accounts    map[engine.AccountID]engine.Account
	entries     map[engine.AccountID][]engine.LedgerEntry
	idempotency map[string]bool
	slots       map[engine.SlotID]engine.InvestmentSlot
	slotOrder   []engine.SlotID
	withdrawals map[engine.RequestID]engine.WithdrawalRequest
	reqOrder    []engine.RequestID
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[engine.AccountID]engine.Account),
		entries:     make(map[engine.AccountID][]engine.LedgerEntry),
		idempotency: make(map[string]bool),
		slots:       make(map[engine.SlotID]engine.InvestmentSlot),
		withdrawals: make(map[engine.RequestID]engine.WithdrawalRequest),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(a)
}

func (m *Memory) createAccountLocked(a engine.Account) error {
	if _, exists := m.accounts[a.ID]; exists {
		return engine.ErrAccountExists
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id engine.AccountID) (*engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id engine.AccountID) (*engine.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, engine.ErrAccountNotFound
	}
	return &a, nil
}

func (m *Memory) UpdateAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccountLocked(a)
}

func (m *Memory) updateAccountLocked(a engine.Account) error {
	if _, ok := m.accounts[a.ID]; !ok {
		return engine.ErrAccountNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccountCascade(_ context.Context, id engine.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAccountCascadeLocked(id)
}

func (m *Memory) deleteAccountCascadeLocked(id engine.AccountID) error {
	if _, ok := m.accounts[id]; !ok {
		return engine.ErrAccountNotFound
	}
	for _, e := range m.entries[id] {
		if e.IdempotencyKey != "" {
			delete(m.idempotency, e.IdempotencyKey)
		}
	}
	delete(m.entries, id)
	for sid, s := range m.slots {
		if s.AccountID == id {
			delete(m.slots, sid)
		}
	}
	for rid, w := range m.withdrawals {
		if w.AccountID == id {
			delete(m.withdrawals, rid)
		}
	}
	delete(m.accounts, id)
	return nil
}

// =============================================================================
// LEDGER (append-only)
// =============================================================================

func (m *Memory) AppendEntry(_ context.Context, e engine.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntryLocked(e)
}

func (m *Memory) appendEntryLocked(e engine.LedgerEntry) error {
	if e.IdempotencyKey != "" {
		if m.idempotency[e.IdempotencyKey] {
			return engine.ErrDuplicateIdempotencyKey
		}
		m.idempotency[e.IdempotencyKey] = true
	}
	m.entries[e.AccountID] = append(m.entries[e.AccountID], e)
	return nil
}

func (m *Memory) EntryExists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[key], nil
}

func (m *Memory) LoadEntries(_ context.Context, id engine.AccountID) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadEntriesLocked(id)
}

func (m *Memory) loadEntriesLocked(id engine.AccountID) ([]engine.LedgerEntry, error) {
	out := make([]engine.LedgerEntry, len(m.entries[id]))
	copy(out, m.entries[id])
	return out, nil
}

func (m *Memory) LoadRecentEntries(_ context.Context, id engine.AccountID, limit int) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadRecentLocked(id, limit)
}

func (m *Memory) loadRecentLocked(id engine.AccountID, limit int) ([]engine.LedgerEntry, error) {
	all := m.entries[id]
	n := len(all)
	if limit > n {
		limit = n
	}
	out := make([]engine.LedgerEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// =============================================================================
// SLOTS
// =============================================================================

func (m *Memory) CreateSlot(_ context.Context, s engine.InvestmentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSlotLocked(s)
}

func (m *Memory) createSlotLocked(s engine.InvestmentSlot) error {
	// Storage-level single-active enforcement, mirroring the SQLite
	// partial unique index.
	if s.Status == engine.SlotActive {
		for _, other := range m.slots {
			if other.AccountID == s.AccountID && other.Status == engine.SlotActive {
				return engine.ErrConcurrentModification
			}
		}
	}
	m.slots[s.ID] = s
	m.slotOrder = append(m.slotOrder, s.ID)
	return nil
}

func (m *Memory) GetSlot(_ context.Context, id engine.SlotID) (*engine.InvestmentSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSlotLocked(id)
}

func (m *Memory) getSlotLocked(id engine.SlotID) (*engine.InvestmentSlot, error) {
	s, ok := m.slots[id]
	if !ok {
		return nil, engine.ErrSlotNotFound
	}
	return &s, nil
}

func (m *Memory) UpdateSlot(_ context.Context, s engine.InvestmentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSlotLocked(s)
}

func (m *Memory) updateSlotLocked(s engine.InvestmentSlot) error {
	if _, ok := m.slots[s.ID]; !ok {
		return engine.ErrSlotNotFound
	}
	if s.Status == engine.SlotActive {
		for _, other := range m.slots {
			if other.ID != s.ID && other.AccountID == s.AccountID && other.Status == engine.SlotActive {
				return engine.ErrConcurrentModification
			}
		}
	}
	m.slots[s.ID] = s
	return nil
}

func (m *Memory) ActiveSlot(_ context.Context, id engine.AccountID) (*engine.InvestmentSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeSlotLocked(id)
}

func (m *Memory) activeSlotLocked(id engine.AccountID) (*engine.InvestmentSlot, error) {
	for _, sid := range m.slotOrder {
		s, ok := m.slots[sid]
		if ok && s.AccountID == id && s.Status == engine.SlotActive {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) ActiveSlots(_ context.Context) ([]engine.InvestmentSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slotsByStatusLocked(engine.SlotActive)
}

func (m *Memory) SlotsByStatus(_ context.Context, status engine.SlotStatus) ([]engine.InvestmentSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slotsByStatusLocked(status)
}

func (m *Memory) slotsByStatusLocked(status engine.SlotStatus) ([]engine.InvestmentSlot, error) {
	var out []engine.InvestmentSlot
	for _, sid := range m.slotOrder {
		if s, ok := m.slots[sid]; ok && s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) CountActiveSlots(_ context.Context, id engine.AccountID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countActiveLocked(id)
}

func (m *Memory) countActiveLocked(id engine.AccountID) (int, error) {
	n := 0
	for _, s := range m.slots {
		if s.AccountID == id && s.Status == engine.SlotActive {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

func (m *Memory) CreateWithdrawal(_ context.Context, w engine.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createWithdrawalLocked(w)
}

func (m *Memory) createWithdrawalLocked(w engine.WithdrawalRequest) error {
	m.withdrawals[w.ID] = w
	m.reqOrder = append(m.reqOrder, w.ID)
	return nil
}

func (m *Memory) GetWithdrawal(_ context.Context, id engine.RequestID) (*engine.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getWithdrawalLocked(id)
}

func (m *Memory) getWithdrawalLocked(id engine.RequestID) (*engine.WithdrawalRequest, error) {
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, engine.ErrRequestNotFound
	}
	return &w, nil
}

func (m *Memory) UpdateWithdrawal(_ context.Context, w engine.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateWithdrawalLocked(w)
}

func (m *Memory) updateWithdrawalLocked(w engine.WithdrawalRequest) error {
	if _, ok := m.withdrawals[w.ID]; !ok {
		return engine.ErrRequestNotFound
	}
	m.withdrawals[w.ID] = w
	return nil
}

func (m *Memory) WithdrawalsByStatus(_ context.Context, status engine.WithdrawalStatus) ([]engine.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.withdrawalsByStatusLocked(status)
}

func (m *Memory) withdrawalsByStatusLocked(status engine.WithdrawalStatus) ([]engine.WithdrawalRequest, error) {
	var out []engine.WithdrawalRequest
	for _, rid := range m.reqOrder {
		if w, ok := m.withdrawals[rid]; ok && w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// WithTx executes fn atomically. The whole store is locked for the
// duration; on error the pre-transaction snapshot is restored.
func (m *Memory) WithTx(_ context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &memView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts    map[engine.AccountID]engine.Account
	entries     map[engine.AccountID][]engine.LedgerEntry
	idempotency map[string]bool
	slots       map[engine.SlotID]engine.InvestmentSlot
	slotOrder   []engine.SlotID
	withdrawals map[engine.RequestID]engine.WithdrawalRequest
	reqOrder    []engine.RequestID
}

func (m *Memory) snapshot() memSnapshot {
	s := memSnapshot{
		accounts:    make(map[engine.AccountID]engine.Account, len(m.accounts)),
		entries:     make(map[engine.AccountID][]engine.LedgerEntry, len(m.entries)),
		idempotency: make(map[string]bool, len(m.idempotency)),
		slots:       make(map[engine.SlotID]engine.InvestmentSlot, len(m.slots)),
		slotOrder:   append([]engine.SlotID{}, m.slotOrder...),
		withdrawals: make(map[engine.RequestID]engine.WithdrawalRequest, len(m.withdrawals)),
		reqOrder:    append([]engine.RequestID{}, m.reqOrder...),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = append([]engine.LedgerEntry{}, v...)
	}
	for k, v := range m.idempotency {
		s.idempotency[k] = v
	}
	for k, v := range m.slots {
		s.slots[k] = v
	}
	for k, v := range m.withdrawals {
		s.withdrawals[k] = v
	}
	return s
}

func (m *Memory) restore(s memSnapshot) {
	m.accounts = s.accounts
	m.entries = s.entries
	m.idempotency = s.idempotency
	m.slots = s.slots
	m.slotOrder = s.slotOrder
	m.withdrawals = s.withdrawals
	m.reqOrder = s.reqOrder
}

// memView runs inside an already-locked WithTx and calls the parent's
// locked helpers directly.
type memView struct {
	parent *Memory
}

func (v *memView) CreateAccount(_ context.Context, a engine.Account) error {
	return v.parent.createAccountLocked(a)
}
func (v *memView) GetAccount(_ context.Context, id engine.AccountID) (*engine.Account, error) {
	return v.parent.getAccountLocked(id)
}
func (v *memView) UpdateAccount(_ context.Context, a engine.Account) error {
	return v.parent.updateAccountLocked(a)
}
func (v *memView) DeleteAccountCascade(_ context.Context, id engine.AccountID) error {
	return v.parent.deleteAccountCascadeLocked(id)
}
func (v *memView) AppendEntry(_ context.Context, e engine.LedgerEntry) error {
	return v.parent.appendEntryLocked(e)
}
func (v *memView) EntryExists(_ context.Context, key string) (bool, error) {
	return v.parent.idempotency[key], nil
}
func (v *memView) LoadEntries(_ context.Context, id engine.AccountID) ([]engine.LedgerEntry, error) {
	return v.parent.loadEntriesLocked(id)
}
func (v *memView) LoadRecentEntries(_ context.Context, id engine.AccountID, limit int) ([]engine.LedgerEntry, error) {
	return v.parent.loadRecentLocked(id, limit)
}
func (v *memView) CreateSlot(_ context.Context, s engine.InvestmentSlot) error {
	return v.parent.createSlotLocked(s)
}
func (v *memView) GetSlot(_ context.Context, id engine.SlotID) (*engine.InvestmentSlot, error) {
	return v.parent.getSlotLocked(id)
}
func (v *memView) UpdateSlot(_ context.Context, s engine.InvestmentSlot) error {
	return v.parent.updateSlotLocked(s)
}
func (v *memView) ActiveSlot(_ context.Context, id engine.AccountID) (*engine.InvestmentSlot, error) {
	return v.parent.activeSlotLocked(id)
}
func (v *memView) ActiveSlots(_ context.Context) ([]engine.InvestmentSlot, error) {
	return v.parent.slotsByStatusLocked(engine.SlotActive)
}
func (v *memView) SlotsByStatus(_ context.Context, status engine.SlotStatus) ([]engine.InvestmentSlot, error) {
	return v.parent.slotsByStatusLocked(status)
}
func (v *memView) CountActiveSlots(_ context.Context, id engine.AccountID) (int, error) {
	return v.parent.countActiveLocked(id)
}
func (v *memView) CreateWithdrawal(_ context.Context, w engine.WithdrawalRequest) error {
	return v.parent.createWithdrawalLocked(w)
}
func (v *memView) GetWithdrawal(_ context.Context, id engine.RequestID) (*engine.WithdrawalRequest, error) {
	return v.parent.getWithdrawalLocked(id)
}
func (v *memView) UpdateWithdrawal(_ context.Context, w engine.WithdrawalRequest) error {
	return v.parent.updateWithdrawalLocked(w)
}
func (v *memView) WithdrawalsByStatus(_ context.Context, status engine.WithdrawalStatus) ([]engine.WithdrawalRequest, error) {
	return v.parent.withdrawalsByStatusLocked(status)
}
