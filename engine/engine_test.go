/*
engine_test.go - End-to-end engine scenarios

PURPOSE:

	Exercises the full user journey against the in-memory store with a
	pinned clock: register, deposit, enroll, accrue, switch, withdraw.
	Each scenario asserts the projected balance after every step; there is
	no stored balance to compare against, the fold IS the balance.
*/
package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkwazi/invest-engine/engine"
	"github.com/nkwazi/invest-engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// clock is a mutable test clock; advance it to cross day boundaries.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T) (*engine.Engine, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)}
	catalog, err := engine.NewCatalog(engine.DefaultTiers())
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Now = c.now
	return engine.New(cfg, store.NewMemory(), catalog, engine.NopNotifier{}), c
}

// fund registers an account and pushes an approved deposit through the
// full request/approve flow.
func fund(t *testing.T, eng *engine.Engine, id engine.AccountID, amount string) {
	t.Helper()
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, id)
	require.NoError(t, err)

	slot, err := eng.CreateDepositRequest(ctx, id, dec(amount), "receipt.jpg")
	require.NoError(t, err)
	_, err = eng.DecideDeposit(ctx, slot.ID, true, "op-1")
	require.NoError(t, err)
}

func requireBalance(t *testing.T, eng *engine.Engine, id engine.AccountID, want string) {
	t.Helper()
	balance, err := eng.GetBalance(context.Background(), id)
	require.NoError(t, err)
	require.True(t, balance.Equal(dec(want)), "balance: want %s, got %s", want, balance)
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

func TestCreateAccount_DuplicateRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	_, err = eng.CreateAccount(ctx, "user-1")
	assert.ErrorIs(t, err, engine.ErrAccountExists)
}

func TestCreateAccount_EmptyID_Rejected(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.CreateAccount(context.Background(), "")
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestSetWithdrawalDestination(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	err = eng.SetWithdrawalDestination(ctx, "user-1", engine.WalletMTN, "260971234567")
	require.NoError(t, err)

	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, engine.WalletMTN, a.Wallet)
	assert.True(t, a.HasDestination())

	err = eng.SetWithdrawalDestination(ctx, "user-1", "paypal", "260971234567")
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestDeleteAccount_CascadesEverything(t *testing.T) {
	// GIVEN: an account with ledger history and an active slot
	// WHEN: the account is deleted
	// THEN: the account and all dependent records are gone

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "500")
	_, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L2")
	require.NoError(t, err)

	require.NoError(t, eng.DeleteAccount(ctx, "user-1"))

	_, err = eng.GetAccount(ctx, "user-1")
	assert.ErrorIs(t, err, engine.ErrAccountNotFound)
	_, err = eng.GetBalance(ctx, "user-1")
	assert.ErrorIs(t, err, engine.ErrAccountNotFound)
}

// =============================================================================
// DEPOSIT LIFECYCLE
// =============================================================================

func TestDeposit_NoCreditUntilApproval(t *testing.T) {
	// GIVEN: a submitted deposit claim
	// THEN: balance stays zero until an operator approves it

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	slot, err := eng.CreateDepositRequest(ctx, "user-1", dec("350"), "ref-1")
	require.NoError(t, err)
	requireBalance(t, eng, "user-1", "0")

	status, err := eng.DecideDeposit(ctx, slot.ID, true, "op-1")
	require.NoError(t, err)
	assert.Equal(t, engine.SlotDepositRecorded, status)
	requireBalance(t, eng, "user-1", "350")
}

func TestDeposit_DenialHasNoLedgerEffect(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	slot, err := eng.CreateDepositRequest(ctx, "user-1", dec("350"), "")
	require.NoError(t, err)

	status, err := eng.DecideDeposit(ctx, slot.ID, false, "op-1")
	require.NoError(t, err)
	assert.Equal(t, engine.SlotDenied, status)
	requireBalance(t, eng, "user-1", "0")
}

func TestDeposit_DecidedExactlyOnce(t *testing.T) {
	// GIVEN: an approved deposit
	// WHEN: any second decision arrives (double-click, retry)
	// THEN: it fails and the ledger still holds exactly one entry

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	slot, err := eng.CreateDepositRequest(ctx, "user-1", dec("350"), "")
	require.NoError(t, err)

	_, err = eng.DecideDeposit(ctx, slot.ID, true, "op-1")
	require.NoError(t, err)

	_, err = eng.DecideDeposit(ctx, slot.ID, true, "op-2")
	assert.ErrorIs(t, err, engine.ErrAlreadyProcessed)
	_, err = eng.DecideDeposit(ctx, slot.ID, false, "op-2")
	assert.ErrorIs(t, err, engine.ErrAlreadyProcessed)

	requireBalance(t, eng, "user-1", "350")
}

func TestDeposit_NonPositiveAmount_Rejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	_, err = eng.CreateDepositRequest(ctx, "user-1", dec("0"), "")
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
	_, err = eng.CreateDepositRequest(ctx, "user-1", dec("-10"), "")
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
}

// =============================================================================
// OPEN / SWITCH LEVEL
// =============================================================================

func TestOpenLevel_DebitsPrincipal(t *testing.T) {
	// GIVEN: a funded account (500)
	// WHEN: opening L2 (350)
	// THEN: balance drops to 150 and the account is enrolled

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "500")

	result, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L2")
	require.NoError(t, err)
	assert.Equal(t, "L2", result.Slot.Tier)
	assert.Equal(t, engine.SlotActive, result.Slot.Status)
	assert.Empty(t, result.PreviousTier)

	requireBalance(t, eng, "user-1", "150")

	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "L2", a.Level)
}

func TestOpenLevel_InsufficientBalance_NothingChanges(t *testing.T) {
	// GIVEN: 150 in the account, L2 costs 350
	// WHEN: the open fails
	// THEN: no slot, no debit, no level - the whole unit rolled back

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "150")

	_, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L2")
	require.ErrorIs(t, err, engine.ErrInsufficientBalance)

	var ib *engine.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.True(t, ib.Available.Equal(dec("150")))
	assert.True(t, ib.Requested.Equal(dec("350")))

	requireBalance(t, eng, "user-1", "150")
	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, a.Level)
}

func TestSwitchLevel_TerminatesOldDebitsNew(t *testing.T) {
	// GIVEN: active L1 (200) with 800 deposited
	// WHEN: switching to L3 (500)
	// THEN: old slot terminated, new debit posted, exactly one active slot

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "800")

	first, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L1")
	require.NoError(t, err)
	requireBalance(t, eng, "user-1", "600")

	result, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L3")
	require.NoError(t, err)
	assert.Equal(t, "L1", result.PreviousTier)
	requireBalance(t, eng, "user-1", "100")

	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "L3", a.Level)
	_ = first
}

func TestSwitchLevel_SameLevel_Rejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "800")
	_, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L1")
	require.NoError(t, err)

	_, err = eng.OpenOrSwitchLevel(ctx, "user-1", "L1")
	assert.ErrorIs(t, err, engine.ErrSameLevel)
	requireBalance(t, eng, "user-1", "600")
}

func TestOpenLevel_UnknownTier_Rejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	fund(t, eng, "user-1", "800")

	_, err := eng.OpenOrSwitchLevel(context.Background(), "user-1", "L99")
	assert.ErrorIs(t, err, engine.ErrUnknownTier)
}

func TestConcurrentSwitches_ExactlyOneActiveSlot(t *testing.T) {
	// GIVEN: a funded account and two goroutines switching concurrently
	// THEN: operations serialize; whatever the interleaving, at most one
	//       slot ends active and the ledger never double-debits a tier

	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "2000")

	var wg sync.WaitGroup
	for _, tier := range []string{"L1", "L2"} {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			// Either outcome is legal; ErrSameLevel/insufficient are fine.
			_, _ = eng.OpenOrSwitchLevel(ctx, "user-1", label)
		}(tier)
	}
	wg.Wait()

	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, a.Level, "one switch must have won")

	// Balance must equal 2000 minus the principals actually debited.
	entries, err := eng.History(ctx, "user-1", 50)
	require.NoError(t, err)
	expected := dec("2000")
	for _, e := range entries {
		if e.Kind == engine.KindInvestment {
			expected = expected.Add(e.Amount)
		}
	}
	requireBalance(t, eng, "user-1", expected.String())
}

// =============================================================================
// TERMINATE
// =============================================================================

func TestTerminateSlot_StopsEnrollment_NoRefund(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "500")
	result, err := eng.OpenOrSwitchLevel(ctx, "user-1", "L2")
	require.NoError(t, err)

	require.NoError(t, eng.TerminateSlot(ctx, result.Slot.ID, "op-1"))

	a, err := eng.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, a.Level)
	requireBalance(t, eng, "user-1", "150") // principal stays debited

	err = eng.TerminateSlot(ctx, result.Slot.ID, "op-1")
	assert.ErrorIs(t, err, engine.ErrNotActive)
}

// =============================================================================
// BONUS
// =============================================================================

func TestGrantBonus_RaisesBalance(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	entry, err := eng.GrantBonus(ctx, "user-1", dec("25"), "referral", "op-1")
	require.NoError(t, err)
	assert.Equal(t, engine.KindBonus, entry.Kind)

	requireBalance(t, eng, "user-1", "25")
}

func TestGrantBonus_NegativeAmount_Rejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateAccount(ctx, "user-1")
	require.NoError(t, err)

	_, err = eng.GrantBonus(ctx, "user-1", dec("-25"), "clawback", "op-1")
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
}

// =============================================================================
// PENDING QUEUES
// =============================================================================

func TestPendingQueues(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	fund(t, eng, "user-1", "500")
	_, err := eng.CreateDepositRequest(ctx, "user-1", dec("200"), "")
	require.NoError(t, err)

	deposits, err := eng.PendingDeposits(ctx)
	require.NoError(t, err)
	assert.Len(t, deposits, 1)

	require.NoError(t, eng.SetWithdrawalDestination(ctx, "user-1", engine.WalletAirtel, "260979999999"))
	_, err = eng.RequestWithdrawal(ctx, "user-1", dec("100"))
	require.NoError(t, err)

	withdrawals, err := eng.PendingWithdrawals(ctx)
	require.NoError(t, err)
	assert.Len(t, withdrawals, 1)
}
