package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Amounts are numeric with two fractional
// digits to match the ledger's fixed-point money model.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	cardholder    text PRIMARY KEY,
	main_currency text NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transfers (
	id            uuid PRIMARY KEY,
	transfer_type text NOT NULL CHECK (transfer_type IN ('debit', 'credit')),
	currency      text NOT NULL,
	amount        numeric(20, 2) NOT NULL CHECK (amount > 0),
	cardholder    text NOT NULL REFERENCES accounts (cardholder),
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id                 uuid PRIMARY KEY,
	debit_transfer_id  uuid NOT NULL REFERENCES transfers (id),
	credit_transfer_id uuid NOT NULL REFERENCES transfers (id),
	transaction_type   text NOT NULL CHECK (transaction_type IN ('authorization', 'presentment', 'settlement')),
	external_id        text NOT NULL DEFAULT '',
	created            timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_external_id_idx ON transactions (external_id) WHERE external_id <> '';
CREATE INDEX IF NOT EXISTS transfers_cardholder_idx ON transfers (cardholder);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key_id          text PRIMARY KEY,
	response_status int NOT NULL,
	response_body   bytea NOT NULL,
	created_at      timestamptz NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the ledger tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
