package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bgtwallet/bgtwallet/internal/api/handler"
	"github.com/bgtwallet/bgtwallet/internal/api/middleware"
	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"github.com/bgtwallet/bgtwallet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "bgtwallet"
	testAudience = "bgtwallet-api"
	testOperator = "operator-1"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	middleware.SetJWTSecret(testSecret)
	middleware.SetJWTValidation(testIssuer, testAudience)

	dir := t.TempDir()
	store := ledger.NewStore(ledger.NewFileSnapshotter(filepath.Join(dir, "ledger.json")))
	settings := policy.NewSettingsStore(filepath.Join(dir, "settings.json"))
	cat := catalog.New(filepath.Join(dir, "countries.json"))
	cat.Upsert(catalog.Country{Name: "USA", SellPriceMicros: 1_300_000, BuyPriceMicros: 1_500_000})
	queue := notify.NewMemoryQueue()

	sales := service.NewSaleService(store, cat, settings, queue, testOperator)
	withdrawals := service.NewWithdrawalService(store, policy.NewEngine(settings), settings, queue, testOperator)
	referrals := service.NewReferralService(store, queue)
	admin := service.NewAdminService(testOperator, sales, store, settings, cat, queue)

	router := NewRouter(Handlers{
		Auth:       handler.NewAuthHandler(testIssuer, testAudience, testOperator),
		Account:    handler.NewAccountHandler(referrals, store, cat),
		Sale:       handler.NewSaleHandler(sales),
		Withdrawal: handler.NewWithdrawalHandler(withdrawals),
		Admin:      handler.NewAdminHandler(admin),
		Health:     handler.NewHealthHandler(),
	}, RateLimits{PublicRPS: 100, AuthRPS: 100})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func mintToken(t *testing.T, server *httptest.Server, accountID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"account_id": accountID})
	resp, err := http.Post(server.URL+"/v1/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAPI_HealthAndAuth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Authenticated routes reject missing and malformed tokens.
	resp = doJSON(t, http.MethodGet, server.URL+"/v1/balance", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/v1/balance", "not-a-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_BalanceAndStart(t *testing.T) {
	server := newTestServer(t)
	token := mintToken(t, server, "user-1")

	resp := doJSON(t, http.MethodPost, server.URL+"/v1/start", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance struct {
		AccountID string `json:"account_id"`
		Main      string `json:"main"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&balance))
	assert.Equal(t, "user-1", balance.AccountID)
	assert.Equal(t, "0.00", balance.Main)
}

func TestAPI_SaleFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)
	userToken := mintToken(t, server, "user-1")
	operatorToken := mintToken(t, server, testOperator)

	resp := doJSON(t, http.MethodPost, server.URL+"/v1/sales/country", userToken,
		map[string]string{"country": "USA"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/v1/sales/number", userToken,
		map[string]string{"number": "5551234567"})
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Operator approves, user submits the code, operator confirms and
	// settles.
	resp = doJSON(t, http.MethodPost, server.URL+"/v1/admin/decisions", operatorToken,
		map[string]string{"kind": "approve_sale", "account_id": "user-1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/v1/sales/code", userToken,
		map[string]string{"code": "482913"})
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/v1/admin/decisions", operatorToken,
		map[string]string{"kind": "confirm_code", "account_id": "user-1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/v1/admin/decisions", operatorToken,
		map[string]string{"kind": "final_approve", "account_id": "user-1", "number": "5551234567"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/v1/balance", userToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance struct {
		Main string `json:"main"`
		Hold string `json:"hold"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&balance))
	assert.Equal(t, "1.30", balance.Main)
	assert.Equal(t, "0.00", balance.Hold)
}

func TestAPI_AdminRequiresOperatorRole(t *testing.T) {
	server := newTestServer(t)
	userToken := mintToken(t, server, "user-1")

	resp := doJSON(t, http.MethodPost, server.URL+"/v1/admin/decisions", userToken,
		map[string]string{"kind": "approve_sale", "account_id": "user-1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/v1/admin/broadcast", userToken,
		map[string]string{"text": "hi"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ProblemDetailsShape(t *testing.T) {
	server := newTestServer(t)
	token := mintToken(t, server, "user-1")

	resp := doJSON(t, http.MethodPost, server.URL+"/v1/sales/country", token,
		map[string]string{"country": "Atlantis"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	var details struct {
		Type   string `json:"type"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	assert.Equal(t, http.StatusNotFound, details.Status)
	assert.Contains(t, details.Detail, "Atlantis")
}
