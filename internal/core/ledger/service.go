package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Urkki/issuer-exercise/internal/core/domain"
)

// Config carries the well-known system account keys. They are injected at
// startup instead of being hard-coded at the call sites that move money
// against them.
type Config struct {
	IssuerAccount   string
	SchemeAccount   string
	DefaultCurrency domain.Currency
}

// Service is the ledger engine: it coordinates atomic double-entry
// creation, computes balances and answers transaction queries. All writes
// to one account are serialized through per-account locks, which closes
// the check-then-act race between concurrent authorizations.
type Service struct {
	store           Store
	issuer          string
	scheme          string
	defaultCurrency domain.Currency
	locks           *accountLocks
}

func NewService(store Store, cfg Config) *Service {
	if cfg.IssuerAccount == "" {
		cfg.IssuerAccount = "issuer"
	}
	if cfg.SchemeAccount == "" {
		cfg.SchemeAccount = "scheme"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = domain.DefaultCurrency
	}
	return &Service{
		store:           store,
		issuer:          cfg.IssuerAccount,
		scheme:          cfg.SchemeAccount,
		defaultCurrency: cfg.DefaultCurrency,
		locks:           newAccountLocks(),
	}
}

// GetAccount looks up an account and fails with domain.ErrNotFound when
// the cardholder is unknown.
func (s *Service) GetAccount(ctx context.Context, cardholder string) (domain.Account, error) {
	if cardholder == "" {
		return domain.Account{}, fmt.Errorf("%w: empty cardholder key", domain.ErrInvalidArgument)
	}
	return s.store.GetAccount(ctx, cardholder)
}

// GetOrCreateAccount returns the existing account for the cardholder or
// lazily creates one with the default currency. Idempotent on the key.
func (s *Service) GetOrCreateAccount(ctx context.Context, cardholder string) (domain.Account, error) {
	if cardholder == "" {
		return domain.Account{}, fmt.Errorf("%w: empty cardholder key", domain.ErrInvalidArgument)
	}
	unlock := s.locks.lock(cardholder)
	defer unlock()

	account, err := s.store.GetAccount(ctx, cardholder)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, err
	}
	account, err = domain.NewAccount(cardholder, s.defaultCurrency)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("create account %q: %w", cardholder, err)
	}
	return account, nil
}

// CreateTransactionParams describes one movement of value. CreatedAt may
// be set to backdate the transaction; the zero value means "now".
type CreateTransactionParams struct {
	DebitAccount  domain.Account
	CreditAccount domain.Account
	Type          domain.TransactionType
	Currency      domain.Currency
	Amount        decimal.Decimal
	ExternalID    string
	CreatedAt     time.Time
}

func (p CreateTransactionParams) validate() error {
	if p.DebitAccount.IsZero() {
		return fmt.Errorf("%w: debit account is not a valid account reference", domain.ErrInvalidArgument)
	}
	if p.CreditAccount.IsZero() {
		return fmt.Errorf("%w: credit account is not a valid account reference", domain.ErrInvalidArgument)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrValidation, p.Type)
	}
	return nil
}

// CreateTransaction atomically records a debit transfer, a credit transfer
// and the transaction linking them. On success exactly three rows exist and
// reference each other; on failure the already-written rows are deleted
// again, so no unpaired transfer ever survives. A compensating delete that
// itself fails is surfaced as domain.ErrRollbackFailed.
func (s *Service) CreateTransaction(ctx context.Context, p CreateTransactionParams) (domain.Transaction, error) {
	if err := p.validate(); err != nil {
		return domain.Transaction{}, err
	}
	unlock := s.locks.lock(p.DebitAccount.Cardholder, p.CreditAccount.Cardholder)
	defer unlock()
	return s.createTransactionLocked(ctx, p)
}

// createTransactionLocked runs the two-phase create with compensation.
// Callers must hold the locks for both account keys.
func (s *Service) createTransactionLocked(ctx context.Context, p CreateTransactionParams) (domain.Transaction, error) {
	debit, err := domain.NewTransfer(domain.Debit, p.Currency, p.Amount, p.DebitAccount)
	if err != nil {
		return domain.Transaction{}, err
	}
	credit, err := domain.NewTransfer(domain.Credit, p.Currency, p.Amount, p.CreditAccount)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := s.store.CreateTransfer(ctx, debit); err != nil {
		// Nothing persisted yet, nothing to roll back.
		return domain.Transaction{}, fmt.Errorf("create debit transfer: %w", err)
	}
	if err := s.store.CreateTransfer(ctx, credit); err != nil {
		if rbErr := s.rollbackTransfers(ctx, debit.ID); rbErr != nil {
			return domain.Transaction{}, rbErr
		}
		return domain.Transaction{}, fmt.Errorf("create credit transfer: %w", err)
	}

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	txn := domain.Transaction{
		ID:               uuid.New(),
		DebitTransferID:  debit.ID,
		CreditTransferID: credit.ID,
		Type:             p.Type,
		ExternalID:       p.ExternalID,
		Created:          created,
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		if rbErr := s.rollbackTransfers(ctx, credit.ID, debit.ID); rbErr != nil {
			return domain.Transaction{}, rbErr
		}
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return txn, nil
}

// rollbackTransfers deletes partially written legs. Failures here leave
// residual rows behind, so they are logged loudly and reported as
// unrecoverable instead of being swallowed.
func (s *Service) rollbackTransfers(ctx context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		if err := s.store.DeleteTransfer(ctx, id); err != nil {
			slog.Error("compensating transfer delete failed, ledger holds a residual row",
				"transfer_id", id, "error", err)
			return fmt.Errorf("%w: deleting transfer %s: %v", domain.ErrRollbackFailed, id, err)
		}
	}
	return nil
}

// Authorize places a hold against the cardholder's available balance: if
// the balance covers the amount, an authorization transaction debiting the
// cardholder and crediting the issuer is created and the remaining
// available balance is returned. The balance check and the write happen
// under the same account locks, so two concurrent authorizations cannot
// jointly overspend the account.
func (s *Service) Authorize(ctx context.Context, cardholder, externalID string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	issuer, err := s.GetOrCreateAccount(ctx, s.issuer)
	if err != nil {
		return "", err
	}
	account, err := s.store.GetAccount(ctx, cardholder)
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(account.Cardholder, issuer.Cardholder)
	defer unlock()

	available, _, err := s.balance(ctx, account, availableTypes, time.Time{})
	if err != nil {
		return "", err
	}
	if available.LessThan(amount) {
		return "", fmt.Errorf("%w: available balance %s does not cover %s", domain.ErrInsufficientFunds, available.StringFixed(2), amount)
	}

	_, err = s.createTransactionLocked(ctx, CreateTransactionParams{
		DebitAccount:  account,
		CreditAccount: issuer,
		Type:          domain.Authorization,
		Currency:      currency,
		Amount:        amount,
		ExternalID:    externalID,
	})
	if err != nil {
		return "", err
	}
	return available.Sub(amount).StringFixed(2), nil
}

// Present finalizes a prior authorization: the transaction found by its
// external id is re-tagged from authorization to presentment (a metadata
// update, no new transfers), and a settlement transaction moving the funds
// from the issuer to the scheme is recorded.
func (s *Service) Present(ctx context.Context, externalID string, amount decimal.Decimal, currency domain.Currency) (domain.Transaction, error) {
	if externalID == "" {
		return domain.Transaction{}, fmt.Errorf("%w: empty transaction id", domain.ErrInvalidArgument)
	}
	auth, err := s.store.GetTransactionByExternalID(ctx, externalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if auth.Type != domain.Authorization {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %q is %s, not an authorization", domain.ErrValidation, externalID, auth.Type)
	}

	issuer, err := s.GetOrCreateAccount(ctx, s.issuer)
	if err != nil {
		return domain.Transaction{}, err
	}
	scheme, err := s.GetOrCreateAccount(ctx, s.scheme)
	if err != nil {
		return domain.Transaction{}, err
	}

	// The re-tag happens only once everything else is in place, so a
	// failed account lookup leaves the authorization untouched. The only
	// step left to fail after it is the settlement write below, whose
	// error path reverts the re-tag.
	if err := s.store.UpdateTransactionType(ctx, auth.ID, domain.Presentment); err != nil {
		return domain.Transaction{}, fmt.Errorf("re-tag transaction %s: %w", auth.ID, err)
	}

	settlement, err := s.CreateTransaction(ctx, CreateTransactionParams{
		DebitAccount:  issuer,
		CreditAccount: scheme,
		Type:          domain.Settlement,
		Currency:      currency,
		Amount:        amount,
	})
	if err != nil {
		// Undo the re-tag so a failed presentment leaves the ledger as it
		// was. If even that fails the authorization stays presented with
		// no settlement leg, which needs operator attention.
		if revErr := s.store.UpdateTransactionType(ctx, auth.ID, domain.Authorization); revErr != nil {
			slog.Error("reverting presentment re-tag failed", "transaction_id", auth.ID, "error", revErr)
			return domain.Transaction{}, fmt.Errorf("%w: reverting re-tag of %s: %v", domain.ErrRollbackFailed, auth.ID, revErr)
		}
		return domain.Transaction{}, err
	}
	return settlement, nil
}
