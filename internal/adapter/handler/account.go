package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

// AccountHandler serves the account-facing read endpoints: balances and
// the time-ranged transaction query.
type AccountHandler struct {
	Ledger *ledger.Service
}

// Balances returns the ledger and available balance for one cardholder.
func (h *AccountHandler) Balances(c *fiber.Ctx) error {
	cardholder := c.Params("cardholder")

	balances, err := h.Ledger.ShowBalances(c.Context(), cardholder)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown account"})
	}
	if err != nil {
		slog.Error("show balances failed", "cardholder", cardholder, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not compute balances"})
	}
	return c.JSON(balances)
}

// Transactions lists presentment transactions touching the account inside
// an inclusive [start, end] window. Bounds are RFC 3339 timestamps.
func (h *AccountHandler) Transactions(c *fiber.Ctx) error {
	cardholder := c.Params("cardholder")

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "start is not a valid RFC 3339 timestamp"})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "end is not a valid RFC 3339 timestamp"})
	}

	txns, err := h.Ledger.Transactions(c.Context(), cardholder, start, end)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown account"})
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		slog.Error("transaction query failed", "cardholder", cardholder, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not query transactions"})
	}
	return c.JSON(fiber.Map{"transactions": txns})
}
