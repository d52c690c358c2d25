package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
)

// Transaction types that count toward each balance figure. Settlement is
// issuer-to-scheme clearing and stays out of both cardholder views.
var (
	ledgerTypes    = []domain.TransactionType{domain.Presentment}
	availableTypes = []domain.TransactionType{domain.Presentment, domain.Authorization}
)

// Balances bundles both balance figures for one account.
type Balances struct {
	LedgerBalance    string `json:"ledger_balance"`
	AvailableBalance string `json:"available_balance"`
}

// LedgerBalance is the settled position: credits minus debits over
// presentment transactions created at or before the threshold. Only
// transfers in the account's main currency are counted.
func (s *Service) LedgerBalance(ctx context.Context, cardholder string, threshold time.Time) (string, error) {
	if threshold.IsZero() {
		return "", fmt.Errorf("%w: time threshold is not a valid timestamp", domain.ErrValidation)
	}
	account, err := s.store.GetAccount(ctx, cardholder)
	if err != nil {
		return "", err
	}
	total, legs, err := s.balance(ctx, account, ledgerTypes, threshold)
	if err != nil {
		return "", err
	}
	return formatBalance(total, legs), nil
}

// AvailableBalance is the spendable position as of now: the same
// aggregation as the ledger balance, but pending authorizations count too.
func (s *Service) AvailableBalance(ctx context.Context, cardholder string) (string, error) {
	account, err := s.store.GetAccount(ctx, cardholder)
	if err != nil {
		return "", err
	}
	total, legs, err := s.balance(ctx, account, availableTypes, time.Time{})
	if err != nil {
		return "", err
	}
	return formatBalance(total, legs), nil
}

// ShowBalances merges both figures for one account.
func (s *Service) ShowBalances(ctx context.Context, cardholder string) (Balances, error) {
	ledger, err := s.LedgerBalance(ctx, cardholder, time.Now())
	if err != nil {
		return Balances{}, err
	}
	available, err := s.AvailableBalance(ctx, cardholder)
	if err != nil {
		return Balances{}, err
	}
	return Balances{LedgerBalance: ledger, AvailableBalance: available}, nil
}

// Transactions returns the presentment transactions touching the account
// with creation time in [start, end]. Both boundaries are inclusive.
func (s *Service) Transactions(ctx context.Context, cardholder string, start, end time.Time) ([]domain.Transaction, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end must be valid timestamps", domain.ErrValidation)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidArgument, start, end)
	}
	account, err := s.store.GetAccount(ctx, cardholder)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListTransactions(ctx, TransactionFilter{
		Cardholder: account.Cardholder,
		Types:      ledgerTypes,
		Since:      start,
		Until:      end,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	txns := make([]domain.Transaction, 0, len(records))
	for _, r := range records {
		txns = append(txns, r.Transaction)
	}
	return txns, nil
}

// balance sums credit legs minus debit legs owned by the account,
// restricted to the account's main currency and the given transaction
// types. It also reports how many legs matched so callers can distinguish
// "no rows" from "rows summing to zero".
func (s *Service) balance(ctx context.Context, account domain.Account, types []domain.TransactionType, until time.Time) (decimal.Decimal, int, error) {
	records, err := s.store.ListTransactions(ctx, TransactionFilter{
		Cardholder: account.Cardholder,
		Types:      types,
		Until:      until,
	})
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("list transactions: %w", err)
	}
	total := decimal.Zero
	legs := 0
	for _, r := range records {
		if r.Debit.Cardholder == account.Cardholder && r.Debit.Currency == account.MainCurrency {
			total = total.Sub(r.Debit.Amount)
			legs++
		}
		if r.Credit.Cardholder == account.Cardholder && r.Credit.Currency == account.MainCurrency {
			total = total.Add(r.Credit.Amount)
			legs++
		}
	}
	return total, legs, nil
}

// formatBalance renders a balance with two fractional digits. An account
// with no matching transfers at all renders as plain "0" rather than
// "0.00", mirroring how an empty aggregation reads.
func formatBalance(total decimal.Decimal, legs int) string {
	if legs == 0 {
		return "0"
	}
	return total.StringFixed(2)
}
