// Package memory is an in-memory ledger store guarded by a RWMutex. It
// backs the test suite and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

type Store struct {
	mu        sync.RWMutex
	accounts  map[string]domain.Account
	transfers map[uuid.UUID]domain.Transfer
	txns      map[uuid.UUID]domain.Transaction
	// txnOrder keeps insertion order so listings are deterministic.
	txnOrder []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]domain.Account),
		transfers: make(map[uuid.UUID]domain.Transfer),
		txns:      make(map[uuid.UUID]domain.Transaction),
	}
}

func (s *Store) GetAccount(ctx context.Context, cardholder string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[cardholder]
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: account %q", domain.ErrNotFound, cardholder)
	}
	return account, nil
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Cardholder]; ok {
		return fmt.Errorf("account %q already exists", account.Cardholder)
	}
	s.accounts[account.Cardholder] = account
	return nil
}

func (s *Store) CreateTransfer(ctx context.Context, transfer domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[transfer.ID]; ok {
		return fmt.Errorf("transfer %s already exists", transfer.ID)
	}
	s.transfers[transfer.ID] = transfer
	return nil
}

// DeleteTransfer is a no-op for unknown ids so the coordinator's
// compensation path can call it without checking what was persisted.
func (s *Store) DeleteTransfer(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transfers, id)
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[txn.ID]; ok {
		return fmt.Errorf("transaction %s already exists", txn.ID)
	}
	if _, ok := s.transfers[txn.DebitTransferID]; !ok {
		return fmt.Errorf("transaction %s references missing debit transfer %s", txn.ID, txn.DebitTransferID)
	}
	if _, ok := s.transfers[txn.CreditTransferID]; !ok {
		return fmt.Errorf("transaction %s references missing credit transfer %s", txn.ID, txn.CreditTransferID)
	}
	s.txns[txn.ID] = txn
	s.txnOrder = append(s.txnOrder, txn.ID)
	return nil
}

func (s *Store) GetTransactionByExternalID(ctx context.Context, externalID string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.txnOrder {
		if txn := s.txns[id]; txn.ExternalID == externalID {
			return txn, nil
		}
	}
	return domain.Transaction{}, fmt.Errorf("%w: transaction with external id %q", domain.ErrNotFound, externalID)
}

func (s *Store) UpdateTransactionType(ctx context.Context, id uuid.UUID, t domain.TransactionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	txn.Type = t
	s.txns[id] = txn
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []ledger.TransactionRecord
	for _, id := range s.txnOrder {
		txn := s.txns[id]
		if !filter.WantsType(txn.Type) || !filter.InRange(txn.Created) {
			continue
		}
		debit, ok := s.transfers[txn.DebitTransferID]
		if !ok {
			return nil, fmt.Errorf("transaction %s references missing debit transfer %s", txn.ID, txn.DebitTransferID)
		}
		credit, ok := s.transfers[txn.CreditTransferID]
		if !ok {
			return nil, fmt.Errorf("transaction %s references missing credit transfer %s", txn.ID, txn.CreditTransferID)
		}
		if filter.Cardholder != "" && debit.Cardholder != filter.Cardholder && credit.Cardholder != filter.Cardholder {
			continue
		}
		records = append(records, ledger.TransactionRecord{Transaction: txn, Debit: debit, Credit: credit})
	}
	return records, nil
}

// Counts reports how many rows of each kind the store holds. Tests use it
// to assert that failed creations leave nothing behind.
func (s *Store) Counts() (accounts, transfers, transactions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), len(s.transfers), len(s.txns)
}

var _ ledger.Store = (*Store)(nil)
