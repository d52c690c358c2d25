package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

// WebhookHandler receives the card network's authorization and presentment
// callbacks. Error detail stays server-side: the network only sees 200,
// 403 (declined) or 400.
type WebhookHandler struct {
	Ledger *ledger.Service
}

type AuthorizationRequest struct {
	CardID          string `json:"card_id"`
	TransactionID   string `json:"transaction_id"`
	BillingAmount   string `json:"billing_amount"`
	BillingCurrency string `json:"billing_currency"`
	// Informational merchant fields, ignored by the ledger.
	MerchantName    string `json:"merchant_name"`
	MerchantCity    string `json:"merchant_city"`
	MerchantCountry string `json:"merchant_country"`
}

type PresentmentRequest struct {
	TransactionID      string `json:"transaction_id"`
	SettlementCurrency string `json:"settlement_currency"`
	SettlementAmount   string `json:"settlement_amount"`
}

// Authorization checks the cardholder's available balance and places a
// hold when it covers the billing amount.
func (h *WebhookHandler) Authorization(c *fiber.Ctx) error {
	var req AuthorizationRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("invalid authorization body", "error", err)
		return badRequest(c)
	}
	if req.CardID == "" || req.TransactionID == "" || req.BillingAmount == "" || req.BillingCurrency == "" {
		return badRequest(c)
	}
	currency, err := domain.ParseCurrency(req.BillingCurrency)
	if err != nil {
		slog.Warn("authorization with bad currency", "currency", req.BillingCurrency)
		return badRequest(c)
	}
	amount, err := decimal.NewFromString(req.BillingAmount)
	if err != nil {
		slog.Warn("authorization with bad amount", "amount", req.BillingAmount)
		return badRequest(c)
	}

	balance, err := h.Ledger.Authorize(c.Context(), req.CardID, req.TransactionID, amount, currency)
	if errors.Is(err, domain.ErrInsufficientFunds) {
		slog.Info("authorization declined", "card_id", req.CardID, "amount", req.BillingAmount)
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "The payment is declined."})
	}
	if err != nil {
		slog.Warn("authorization failed", "card_id", req.CardID, "error", err)
		return badRequest(c)
	}

	slog.Info("authorization approved", "card_id", req.CardID, "transaction_id", req.TransactionID, "amount", req.BillingAmount)
	return c.JSON(fiber.Map{"available_balance": balance})
}

// Presentment finalizes a prior authorization and records the settlement
// leg toward the scheme.
func (h *WebhookHandler) Presentment(c *fiber.Ctx) error {
	var req PresentmentRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("invalid presentment body", "error", err)
		return badRequest(c)
	}
	if req.TransactionID == "" || req.SettlementCurrency == "" || req.SettlementAmount == "" {
		return badRequest(c)
	}
	currency, err := domain.ParseCurrency(req.SettlementCurrency)
	if err != nil {
		slog.Warn("presentment with bad currency", "currency", req.SettlementCurrency)
		return badRequest(c)
	}
	amount, err := decimal.NewFromString(req.SettlementAmount)
	if err != nil {
		slog.Warn("presentment with bad amount", "amount", req.SettlementAmount)
		return badRequest(c)
	}

	settlement, err := h.Ledger.Present(c.Context(), req.TransactionID, amount, currency)
	if err != nil {
		slog.Warn("presentment failed", "transaction_id", req.TransactionID, "error", err)
		return badRequest(c)
	}

	slog.Info("presentment recorded", "transaction_id", req.TransactionID, "settlement_id", settlement.ID)
	return c.JSON(fiber.Map{
		"status":        "presented",
		"settlement_id": settlement.ID,
	})
}

// badRequest is the coarse failure answer at the webhook boundary. The
// card network does not get told what exactly was wrong.
func badRequest(c *fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
}
