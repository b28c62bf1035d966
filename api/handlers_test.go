/*
handlers_test.go - HTTP layer tests

Drives the full router with httptest against the in-memory store: happy
paths for the main journey plus the error-to-status mapping the clients
depend on (400/404/409/422).
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkwazi/invest-engine/api"
	"github.com/nkwazi/invest-engine/engine"
	"github.com/nkwazi/invest-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalog, err := engine.NewCatalog(engine.DefaultTiers())
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	eng := engine.New(cfg, store.NewMemory(), catalog, engine.NopNotifier{})

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(eng), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator-ID", "op-test")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func doJSONList(t *testing.T, url string) (*http.Response, []map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var parsed []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

// createFundedAccount drives the deposit flow over HTTP.
func createFundedAccount(t *testing.T, base, id, amount string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{"id": id})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, slot := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/accounts/%s/deposits", base, id),
		map[string]string{"amount": amount, "evidence_ref": "receipt.jpg"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/deposits/%s/approve", base, slot["id"]), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestAPI_FullJourney(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	createFundedAccount(t, base, "user-1", "500")

	// Balance reflects the approved deposit.
	resp, body := doJSON(t, http.MethodGet, base+"/api/accounts/user-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "500.00", body["balance"])

	// Open L2.
	resp, body = doJSON(t, http.MethodPost, base+"/api/accounts/user-1/levels",
		map[string]string{"tier": "L2"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slot := body["slot"].(map[string]any)
	assert.Equal(t, "active", slot["status"])

	resp, body = doJSON(t, http.MethodGet, base+"/api/accounts/user-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "150.00", body["balance"])

	// Accrue one day.
	resp, body = doJSON(t, http.MethodPost, base+"/api/admin/accrual/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["credited"])

	// Configure destination, request and approve a withdrawal.
	resp, _ = doJSON(t, http.MethodPut, base+"/api/accounts/user-1/destination",
		map[string]string{"wallet": "mtn", "phone": "260971234567"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/api/accounts/user-1/withdrawals",
		map[string]string{"amount": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "12.00", body["fee"])
	assert.Equal(t, "88.00", body["net"])
	reqID := body["id"].(string)

	resp, body = doJSON(t, http.MethodPost, base+"/api/withdrawals/"+reqID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", body["status"])

	// 150 + 21 accrual - 100 gross = 71.
	resp, body = doJSON(t, http.MethodGet, base+"/api/accounts/user-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "71.00", body["balance"])

	// History shows all four kinds.
	resp, list := doJSONList(t, base+"/api/accounts/user-1/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 4)
}

func TestAPI_Catalog(t *testing.T) {
	srv := newTestServer(t)

	resp, tiers := doJSONList(t, srv.URL+"/api/catalog")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, tiers, 5)
	assert.Equal(t, "L1", tiers[0]["label"])
	assert.Equal(t, "10.00", tiers[0]["daily_accrual"])
	assert.Equal(t, "L5", tiers[4]["label"])
}

func TestAPI_PendingQueues(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	resp, _ := doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{"id": "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, base+"/api/accounts/user-1/deposits",
		map[string]string{"amount": "350"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, pending := doJSONList(t, base+"/api/deposits/pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, pending, 1)
	assert.Equal(t, "pending_deposit", pending[0]["status"])
}

func TestAPI_GrantBonus(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	resp, _ := doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{"id": "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, base+"/api/admin/accounts/user-1/bonus",
		map[string]string{"amount": "25", "reason": "referral"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bonus", body["kind"])
	assert.Equal(t, "op-test", body["created_by"])
}

func TestAPI_DeleteAccount(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	createFundedAccount(t, base, "user-1", "500")

	resp, _ := doJSON(t, http.MethodDelete, base+"/api/accounts/user-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base+"/api/accounts/user-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_ErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	createFundedAccount(t, base, "user-1", "150")

	// 400: validation failure (missing required field).
	resp, _ := doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 400: unparseable amount.
	resp, _ = doJSON(t, http.MethodPost, base+"/api/accounts/user-1/deposits",
		map[string]string{"amount": "lots"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 400: bad wallet kind fails validation.
	resp, _ = doJSON(t, http.MethodPut, base+"/api/accounts/user-1/destination",
		map[string]string{"wallet": "paypal", "phone": "260971234567"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 404: unknown account.
	resp, _ = doJSON(t, http.MethodGet, base+"/api/accounts/ghost/balance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 404: unknown tier.
	resp, _ = doJSON(t, http.MethodPost, base+"/api/accounts/user-1/levels",
		map[string]string{"tier": "L99"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 409: duplicate account id.
	resp, _ = doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{"id": "user-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// 422: L2 costs 350, only 150 available.
	resp, body := doJSON(t, http.MethodPost, base+"/api/accounts/user-1/levels",
		map[string]string{"tier": "L2"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, body["details"])
}

func TestAPI_DoubleDecision_Conflicts(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	resp, _ := doJSON(t, http.MethodPost, base+"/api/accounts", map[string]string{"id": "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, slot := doJSON(t, http.MethodPost, base+"/api/accounts/user-1/deposits",
		map[string]string{"amount": "350"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	slotURL := fmt.Sprintf("%s/api/deposits/%s/approve", base, slot["id"])
	resp, _ = doJSON(t, http.MethodPost, slotURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, slotURL, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
