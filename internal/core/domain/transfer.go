package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType marks one leg of a double entry.
type TransferType string

const (
	Debit  TransferType = "debit"
	Credit TransferType = "credit"
)

// minTransferAmount is the smallest unit of money the ledger moves.
var minTransferAmount = decimal.New(1, -2) // 0.01

// Transfer is a single debit or credit movement on one account. Transfers
// are immutable once persisted; the only delete path is the coordinator's
// compensating rollback.
type Transfer struct {
	ID         uuid.UUID       `json:"id"`
	Type       TransferType    `json:"transfer_type"`
	Currency   Currency        `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Cardholder string          `json:"cardholder"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewTransfer validates and builds one leg. Amounts are fixed point with
// two fractional digits; anything below 0.01 or with finer precision is
// rejected before persistence.
func NewTransfer(t TransferType, currency Currency, amount decimal.Decimal, account Account) (Transfer, error) {
	if account.IsZero() {
		return Transfer{}, fmt.Errorf("%w: transfer needs an account reference", ErrInvalidArgument)
	}
	if t != Debit && t != Credit {
		return Transfer{}, fmt.Errorf("%w: unknown transfer type %q", ErrValidation, t)
	}
	if !currency.Valid() {
		return Transfer{}, fmt.Errorf("%w: unknown currency code %q", ErrValidation, currency)
	}
	if amount.LessThan(minTransferAmount) {
		return Transfer{}, fmt.Errorf("%w: amount %s is below the minimum %s", ErrValidation, amount, minTransferAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return Transfer{}, fmt.Errorf("%w: amount %s has more than two decimal places", ErrValidation, amount)
	}
	return Transfer{
		ID:         uuid.New(),
		Type:       t,
		Currency:   currency,
		Amount:     amount,
		Cardholder: account.Cardholder,
		CreatedAt:  time.Now(),
	}, nil
}
