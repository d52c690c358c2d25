package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
)

// Store is the persistence port for the ledger engine. It is implemented
// by the in-memory adapter (tests, local runs) and the Postgres adapter.
//
// Writes are single-row operations; the coordinator in this package drives
// the multi-row create sequence and its compensation on top of them.
type Store interface {
	GetAccount(ctx context.Context, cardholder string) (domain.Account, error)
	CreateAccount(ctx context.Context, account domain.Account) error

	CreateTransfer(ctx context.Context, transfer domain.Transfer) error
	// DeleteTransfer removes a transfer row. Deleting a transfer that was
	// never persisted, or was already deleted, is a no-op so compensation
	// can retry safely.
	DeleteTransfer(ctx context.Context, id uuid.UUID) error

	CreateTransaction(ctx context.Context, txn domain.Transaction) error
	GetTransactionByExternalID(ctx context.Context, externalID string) (domain.Transaction, error)
	UpdateTransactionType(ctx context.Context, id uuid.UUID, t domain.TransactionType) error

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionRecord, error)
}

// TransactionFilter narrows ListTransactions results. Zero times mean
// unbounded; both bounds are inclusive.
type TransactionFilter struct {
	// Cardholder restricts to transactions where the account appears on
	// either leg. Empty means all accounts.
	Cardholder string
	// Types restricts to the given transaction types. Empty means all.
	Types []domain.TransactionType
	Since time.Time
	Until time.Time
}

// TransactionRecord is a transaction with both legs loaded.
type TransactionRecord struct {
	Transaction domain.Transaction
	Debit       domain.Transfer
	Credit      domain.Transfer
}

// WantsType reports whether the filter accepts the given type.
func (f TransactionFilter) WantsType(t domain.TransactionType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

// InRange reports whether a creation time falls inside the filter window.
func (f TransactionFilter) InRange(created time.Time) bool {
	if !f.Since.IsZero() && created.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && created.After(f.Until) {
		return false
	}
	return true
}
