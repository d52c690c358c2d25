package domain

import "time"

// Account holds monetary value for one cardholder. The cardholder key is
// the primary identifier; there is at most one account per key and accounts
// are never deleted in normal operation.
type Account struct {
	Cardholder   string    `json:"cardholder"`
	MainCurrency Currency  `json:"main_currency"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAccount builds an account with the given main currency.
func NewAccount(cardholder string, currency Currency) (Account, error) {
	if cardholder == "" {
		return Account{}, ErrInvalidArgument
	}
	if !currency.Valid() {
		return Account{}, ErrValidation
	}
	return Account{
		Cardholder:   cardholder,
		MainCurrency: currency,
		CreatedAt:    time.Now(),
	}, nil
}

// IsZero reports whether the account is an empty reference, e.g. a struct
// that was never loaded from the store.
func (a Account) IsZero() bool { return a.Cardholder == "" }
