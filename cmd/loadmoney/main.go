// Command loadmoney moves money from the issuer account into a
// cardholder's account, creating both accounts when needed:
//
//	loadmoney <cardholder> <amount> <currency>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Urkki/issuer-exercise/internal/adapter/storage/postgres"
	"github.com/Urkki/issuer-exercise/internal/core/config"
	"github.com/Urkki/issuer-exercise/internal/core/domain"
	"github.com/Urkki/issuer-exercise/internal/core/ledger"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: loadmoney <cardholder> <amount> <currency>")
		os.Exit(2)
	}
	cardholder := os.Args[1]

	amount, err := decimal.NewFromString(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %q is not a valid amount.\n", os.Args[2])
		os.Exit(1)
	}
	currency, err := domain.ParseCurrency(os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}

	defaultCurrency, err := domain.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}
	svc := ledger.NewService(postgres.NewStore(pool), ledger.Config{
		IssuerAccount:   cfg.IssuerAccount,
		SchemeAccount:   cfg.SchemeAccount,
		DefaultCurrency: defaultCurrency,
	})

	issuer, err := svc.GetOrCreateAccount(ctx, cfg.IssuerAccount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}
	account, err := svc.GetOrCreateAccount(ctx, cardholder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}

	_, err = svc.CreateTransaction(ctx, ledger.CreateTransactionParams{
		DebitAccount:  issuer,
		CreditAccount: account,
		Type:          domain.Authorization,
		Currency:      currency,
		Amount:        amount,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer FAILED! Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully transferred %s %s to %s.\n", amount, currency, account.Cardholder)
}
