/*
ledger_test.go - Ledger invariants and balance projection

ORGANIZATION:
 1. Sign convention - each kind's allowed sign
 2. Idempotency - duplicate keys rejected
 3. Projection - balance is a fold over all entries
 4. History - newest first, limit honored
*/
package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkwazi/invest-engine/engine"
	"github.com/nkwazi/invest-engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger() (*engine.Ledger, *store.Memory) {
	m := store.NewMemory()
	return engine.NewLedger(m), m
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func entry(account string, kind engine.EntryKind, amount string) engine.LedgerEntry {
	return engine.LedgerEntry{
		AccountID: engine.AccountID(account),
		Kind:      kind,
		Amount:    dec(amount),
		CreatedAt: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// SIGN CONVENTION
// =============================================================================

func TestValidateAmount_SignConvention(t *testing.T) {
	// GIVEN: the sign convention for each entry kind
	// THEN: credits must be positive, investment debits negative

	cases := []struct {
		kind   engine.EntryKind
		amount string
		ok     bool
	}{
		{engine.KindDeposit, "100", true},
		{engine.KindDeposit, "-100", false},
		{engine.KindAccrual, "10", true},
		{engine.KindAccrual, "0", false},
		{engine.KindBonus, "5", true},
		{engine.KindBonus, "-5", false},
		{engine.KindWithdrawal, "50", true},
		{engine.KindWithdrawal, "-50", false},
		{engine.KindInvestment, "-350", true},
		{engine.KindInvestment, "350", false},
		{engine.EntryKind("refund"), "10", false},
	}

	for _, tc := range cases {
		err := engine.ValidateAmount(tc.kind, dec(tc.amount))
		if tc.ok {
			assert.NoError(t, err, "%s %s should be valid", tc.kind, tc.amount)
		} else {
			assert.ErrorIs(t, err, engine.ErrInvalidAmount, "%s %s should be rejected", tc.kind, tc.amount)
		}
	}
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestLedger_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	// GIVEN: an entry appended with key "deposit:slot-1"
	// WHEN: appending a second entry with the same key
	// THEN: the second append fails and the balance counts the entry once

	ledger, _ := newTestLedger()
	ctx := context.Background()

	e := entry("acc-1", engine.KindDeposit, "350")
	e.IdempotencyKey = "deposit:slot-1"

	_, err := ledger.Append(ctx, e)
	require.NoError(t, err)

	_, err = ledger.Append(ctx, e)
	require.ErrorIs(t, err, engine.ErrDuplicateIdempotencyKey)

	balance, err := ledger.ProjectBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("350")), "got %s", balance)
}

func TestLedger_EmptyIdempotencyKey_NotDeduplicated(t *testing.T) {
	// GIVEN: two bonus entries without idempotency keys
	// THEN: both are appended

	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Append(ctx, entry("acc-1", engine.KindBonus, "10"))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, entry("acc-1", engine.KindBonus, "10"))
	require.NoError(t, err)

	balance, err := ledger.ProjectBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("20")), "got %s", balance)
}

// =============================================================================
// PROJECTION
// =============================================================================

func TestProjectBalance_FoldsAllKinds(t *testing.T) {
	// GIVEN: 500 deposit, -350 investment, 21 accrual, 10 bonus, 100 withdrawal
	// THEN: balance = 500 - 350 + 21 + 10 - 100 = 81

	ledger, _ := newTestLedger()
	ctx := context.Background()

	for _, e := range []engine.LedgerEntry{
		entry("acc-1", engine.KindDeposit, "500"),
		entry("acc-1", engine.KindInvestment, "-350"),
		entry("acc-1", engine.KindAccrual, "21"),
		entry("acc-1", engine.KindBonus, "10"),
		entry("acc-1", engine.KindWithdrawal, "100"),
	} {
		_, err := ledger.Append(ctx, e)
		require.NoError(t, err)
	}

	balance, err := ledger.ProjectBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("81")), "got %s", balance)
}

func TestProjectBalance_EmptyAccount_IsZero(t *testing.T) {
	ledger, _ := newTestLedger()

	balance, err := ledger.ProjectBalance(context.Background(), "ghost")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestProjectBalance_IsolatedPerAccount(t *testing.T) {
	// GIVEN: entries for two accounts
	// THEN: each projection only sees its own entries

	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Append(ctx, entry("acc-1", engine.KindDeposit, "200"))
	require.NoError(t, err)
	_, err = ledger.Append(ctx, entry("acc-2", engine.KindDeposit, "999"))
	require.NoError(t, err)

	b1, err := ledger.ProjectBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, b1.Equal(dec("200")), "got %s", b1)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_NewestFirst_LimitHonored(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := engine.LedgerEntry{
			AccountID: "acc-1",
			Kind:      engine.KindBonus,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Reason:    fmt.Sprintf("bonus %d", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		_, err := ledger.Append(ctx, e)
		require.NoError(t, err)
	}

	entries, err := ledger.History(ctx, "acc-1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "bonus 5", entries[0].Reason)
	assert.Equal(t, "bonus 3", entries[2].Reason)
}
