package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType tags the lifecycle stage a transaction belongs to.
type TransactionType string

const (
	// Authorization is a provisional hold against available balance.
	Authorization TransactionType = "authorization"
	// Presentment finalizes a prior authorization into the ledger balance.
	Presentment TransactionType = "presentment"
	// Settlement is issuer-to-scheme clearing, invisible to cardholder
	// balance views.
	Settlement TransactionType = "settlement"
)

// ParseTransactionType validates a transaction type tag.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrValidation, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Authorization, Presentment, Settlement:
		return true
	}
	return false
}

// Transaction bundles exactly one debit and one credit transfer to
// represent movement of value between two accounts. Both legs carry the
// same currency and amount by construction. The only mutation after
// creation is re-tagging an authorization as a presentment.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	DebitTransferID  uuid.UUID       `json:"debit_transfer_id"`
	CreditTransferID uuid.UUID       `json:"credit_transfer_id"`
	Type             TransactionType `json:"transaction_type"`
	// ExternalID correlates the authorization -> presentment lifecycle
	// with the card network's transaction id. Optional.
	ExternalID string    `json:"external_id,omitempty"`
	Created    time.Time `json:"created"`
}
