package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Urkki/issuer-exercise/internal/adapter/handler"
	"github.com/Urkki/issuer-exercise/internal/adapter/storage/memory"
	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

func newTestApp(t *testing.T) (*fiber.App, *ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := ledger.NewService(store, ledger.Config{})

	webhookHandler := &handler.WebhookHandler{Ledger: svc}
	accountHandler := &handler.AccountHandler{Ledger: svc}

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/authorization", webhookHandler.Authorization)
	api.Post("/presentment", webhookHandler.Presentment)
	api.Get("/accounts/:cardholder/balances", accountHandler.Balances)
	api.Get("/accounts/:cardholder/transactions", accountHandler.Transactions)
	return app, svc, store
}

// loadMoney funds a cardholder from the issuer, the same way the CLI does.
func loadMoney(t *testing.T, svc *ledger.Service, cardholder, amount string) {
	t.Helper()
	ctx := context.Background()
	issuer, err := svc.GetOrCreateAccount(ctx, "issuer")
	require.NoError(t, err)
	account, err := svc.GetOrCreateAccount(ctx, cardholder)
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, ledger.CreateTransactionParams{
		DebitAccount:  issuer,
		CreditAccount: account,
		Type:          domain.Authorization,
		Currency:      "EUR",
		Amount:        decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestAuthorizationWebhookApproved(t *testing.T) {
	app, svc, _ := newTestApp(t)
	loadMoney(t, svc, "card-123", "100")

	resp := postJSON(t, app, "/api/authorization", `{
		"card_id": "card-123",
		"transaction_id": "txn-1",
		"billing_amount": "60.00",
		"billing_currency": "EUR",
		"merchant_name": "Corner Store",
		"merchant_city": "Helsinki",
		"merchant_country": "FI"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "40.00", body["available_balance"])
}

func TestAuthorizationWebhookDeclined(t *testing.T) {
	app, svc, store := newTestApp(t)
	loadMoney(t, svc, "card-123", "50")
	_, transfersBefore, txnsBefore := store.Counts()

	resp := postJSON(t, app, "/api/authorization", `{
		"card_id": "card-123",
		"transaction_id": "txn-1",
		"billing_amount": "50.01",
		"billing_currency": "EUR"
	}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "The payment is declined.", body["message"])

	// A declined authorization leaves the ledger untouched.
	_, transfersAfter, txnsAfter := store.Counts()
	assert.Equal(t, transfersBefore, transfersAfter)
	assert.Equal(t, txnsBefore, txnsAfter)
}

func TestAuthorizationWebhookBadRequests(t *testing.T) {
	app, svc, _ := newTestApp(t)
	loadMoney(t, svc, "card-123", "100")

	cases := []struct {
		name string
		body string
	}{
		{"not json", `this is not json`},
		{"missing card id", `{"transaction_id": "txn-1", "billing_amount": "10", "billing_currency": "EUR"}`},
		{"missing amount", `{"card_id": "card-123", "transaction_id": "txn-1", "billing_currency": "EUR"}`},
		{"bad amount", `{"card_id": "card-123", "transaction_id": "txn-1", "billing_amount": "ten", "billing_currency": "EUR"}`},
		{"bad currency", `{"card_id": "card-123", "transaction_id": "txn-1", "billing_amount": "10", "billing_currency": "EURO"}`},
		{"unknown cardholder", `{"card_id": "who-dis", "transaction_id": "txn-1", "billing_amount": "10", "billing_currency": "EUR"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, "/api/authorization", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPresentmentWebhookFlow(t *testing.T) {
	app, svc, _ := newTestApp(t)
	loadMoney(t, svc, "card-123", "100")

	resp := postJSON(t, app, "/api/authorization", `{
		"card_id": "card-123",
		"transaction_id": "txn-1",
		"billing_amount": "60.00",
		"billing_currency": "EUR"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/api/presentment", `{
		"transaction_id": "txn-1",
		"settlement_currency": "EUR",
		"settlement_amount": "60.00"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "presented", body["status"])

	// The finalized hold now shows up in the ledger balance.
	req := httptest.NewRequest(http.MethodGet, "/api/accounts/card-123/balances", nil)
	getResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	balances := decodeBody(t, getResp)
	assert.Equal(t, "-60.00", balances["ledger_balance"])
	assert.Equal(t, "40.00", balances["available_balance"])
}

func TestPresentmentWebhookUnknownTransaction(t *testing.T) {
	app, _, store := newTestApp(t)
	_, transfersBefore, txnsBefore := store.Counts()

	resp := postJSON(t, app, "/api/presentment", `{
		"transaction_id": "no-such-txn",
		"settlement_currency": "EUR",
		"settlement_amount": "10.00"
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, transfersAfter, txnsAfter := store.Counts()
	assert.Equal(t, transfersBefore, transfersAfter)
	assert.Equal(t, txnsBefore, txnsAfter)
}

func TestBalancesEndpointUnknownAccount(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/ghost/balances", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransactionsEndpoint(t *testing.T) {
	app, svc, _ := newTestApp(t)
	loadMoney(t, svc, "card-123", "100")

	resp := postJSON(t, app, "/api/authorization", `{
		"card_id": "card-123",
		"transaction_id": "txn-1",
		"billing_amount": "60.00",
		"billing_currency": "EUR"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, app, "/api/presentment", `{
		"transaction_id": "txn-1",
		"settlement_currency": "EUR",
		"settlement_amount": "60.00"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet,
		"/api/accounts/card-123/transactions?start=2000-01-01T00:00:00Z&end=2100-01-01T00:00:00Z", nil)
	getResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	body := decodeBody(t, getResp)
	txns, ok := body["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, txns, 1)

	t.Run("bad bounds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/accounts/card-123/transactions?start=yesterday&end=2100-01-01T00:00:00Z", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("inverted range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/accounts/card-123/transactions?start=2100-01-01T00:00:00Z&end=2000-01-01T00:00:00Z", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
