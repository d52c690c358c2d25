package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

// Store implements the ledger store port on top of PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetAccount(ctx context.Context, cardholder string) (domain.Account, error) {
	var account domain.Account
	err := s.db.QueryRow(ctx,
		`SELECT cardholder, main_currency, created_at FROM accounts WHERE cardholder = $1`,
		cardholder,
	).Scan(&account.Cardholder, &account.MainCurrency, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("%w: account %q", domain.ErrNotFound, cardholder)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO accounts (cardholder, main_currency, created_at) VALUES ($1, $2, $3)`,
		account.Cardholder, account.MainCurrency, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Store) CreateTransfer(ctx context.Context, transfer domain.Transfer) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO transfers (id, transfer_type, currency, amount, cardholder, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		transfer.ID, transfer.Type, transfer.Currency, transfer.Amount.StringFixed(2),
		transfer.Cardholder, transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransfer(ctx context.Context, id uuid.UUID) error {
	// Deleting an unknown id affects zero rows, which is fine: the
	// coordinator calls this blindly while rolling back.
	if _, err := s.db.Exec(ctx, `DELETE FROM transfers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn domain.Transaction) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO transactions (id, debit_transfer_id, credit_transfer_id, transaction_type, external_id, created)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		txn.ID, txn.DebitTransferID, txn.CreditTransferID, txn.Type, txn.ExternalID, txn.Created,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransactionByExternalID(ctx context.Context, externalID string) (domain.Transaction, error) {
	var txn domain.Transaction
	err := s.db.QueryRow(ctx,
		`SELECT id, debit_transfer_id, credit_transfer_id, transaction_type, external_id, created
		 FROM transactions WHERE external_id = $1 ORDER BY created ASC LIMIT 1`,
		externalID,
	).Scan(&txn.ID, &txn.DebitTransferID, &txn.CreditTransferID, &txn.Type, &txn.ExternalID, &txn.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("%w: transaction with external id %q", domain.ErrNotFound, externalID)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction by external id: %w", err)
	}
	return txn, nil
}

func (s *Store) UpdateTransactionType(ctx context.Context, id uuid.UUID, t domain.TransactionType) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE transactions SET transaction_type = $2 WHERE id = $1`, id, t)
	if err != nil {
		return fmt.Errorf("update transaction type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.TransactionRecord, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT t.id, t.debit_transfer_id, t.credit_transfer_id, t.transaction_type, t.external_id, t.created,
		       d.id, d.transfer_type, d.currency, d.amount::text, d.cardholder, d.created_at,
		       c.id, c.transfer_type, c.currency, c.amount::text, c.cardholder, c.created_at
		FROM transactions t
		JOIN transfers d ON d.id = t.debit_transfer_id
		JOIN transfers c ON c.id = t.credit_transfer_id`)

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Cardholder != "" {
		p := arg(filter.Cardholder)
		conds = append(conds, fmt.Sprintf("(d.cardholder = %s OR c.cardholder = %s)", p, p))
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		conds = append(conds, fmt.Sprintf("t.transaction_type = ANY(%s)", arg(types)))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, fmt.Sprintf("t.created >= %s", arg(filter.Since)))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, fmt.Sprintf("t.created <= %s", arg(filter.Until)))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY t.created ASC")

	rows, err := s.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var records []ledger.TransactionRecord
	for rows.Next() {
		var (
			r                   ledger.TransactionRecord
			debitAmt, creditAmt string
		)
		err := rows.Scan(
			&r.Transaction.ID, &r.Transaction.DebitTransferID, &r.Transaction.CreditTransferID,
			&r.Transaction.Type, &r.Transaction.ExternalID, &r.Transaction.Created,
			&r.Debit.ID, &r.Debit.Type, &r.Debit.Currency, &debitAmt, &r.Debit.Cardholder, &r.Debit.CreatedAt,
			&r.Credit.ID, &r.Credit.Type, &r.Credit.Currency, &creditAmt, &r.Credit.Cardholder, &r.Credit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if r.Debit.Amount, err = decimal.NewFromString(debitAmt); err != nil {
			return nil, fmt.Errorf("parse debit amount %q: %w", debitAmt, err)
		}
		if r.Credit.Amount, err = decimal.NewFromString(creditAmt); err != nil {
			return nil, fmt.Errorf("parse credit amount %q: %w", creditAmt, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

var _ ledger.Store = (*Store)(nil)
