package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	// Well-known system account keys. The issuer account is the
	// counterparty of cardholder authorizations; the scheme account is
	// settled against during presentment.
	IssuerAccount string
	SchemeAccount string

	// DefaultCurrency is assigned to lazily created accounts.
	DefaultCurrency string
}

// LoadConfig reads .env when present and falls back to system env vars.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on system env variables")
	}

	return &Config{
		Port:            getEnv("PORT", "3000"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Env:             getEnv("ENV", "development"),
		IssuerAccount:   getEnv("ISSUER_ACCOUNT", "issuer"),
		SchemeAccount:   getEnv("SCHEME_ACCOUNT", "scheme"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
