package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"os"
	"time"

	"github.com/Nastunika/ZenPlugins/src/bankapi"
	"github.com/Nastunika/ZenPlugins/src/config"
	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/Nastunika/ZenPlugins/src/scraper"
	"github.com/Nastunika/ZenPlugins/src/storage"
	"github.com/shopspring/decimal"
)

// envCredentials reads the login preferences the way the host application
// would supply them.
type envCredentials struct{}

func (envCredentials) Credentials() (models.Credentials, error) {
	return models.Credentials{
		Login: getenvDefault("BANK_LOGIN", "demo"),
		PIN:   getenvDefault("BANK_PIN", "12345"),
	}, nil
}

// noSkips keeps every account; the demo has no per-account preferences.
type noSkips struct{}

func (noSkips) IsAccountSkipped(string) bool { return false }

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Bank connector demo starting...")

	store, err := storage.OpenSQLiteStore(config.Cfg.StateDBPath)
	if err != nil {
		logger.L.Error("Failed to open state store", "error", err)
		stdlog.Fatalf("Failed to open state store: %v", err)
	}
	defer store.Close()

	api := bankapi.NewResilient(demoSandbox(), bankapi.ResilientConfig{
		RateEvery:          config.Cfg.APIRateEvery,
		Burst:              config.Cfg.APIBurst,
		BreakerMaxRequests: config.Cfg.BreakerMaxRequests,
		BreakerInterval:    config.Cfg.BreakerInterval,
		BreakerTimeout:     config.Cfg.BreakerTimeout,
		AccountsCacheTTL:   config.Cfg.AccountsCacheTTL,
	})

	creds := envCredentials{}
	service := scraper.NewService(api, store, noSkips{}, creds, config.Cfg.LookbackDays)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	credentials, _ := creds.Credentials()
	result, err := service.Scrape(ctx, scraper.ScrapeOptions{Credentials: credentials})
	if err != nil {
		logger.L.Error("Scrape failed", "error", err)
		stdlog.Fatalf("Scrape failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.L.Error("Failed to encode scrape result", "error", err)
		os.Exit(1)
	}
}

// demoSandbox builds a fixture bank: a checking account with a transaction
// that also surfaces as a payment order (exercising the dedup path), a loan
// and one brokerage holding.
func demoSandbox() *bankapi.Sandbox {
	now := time.Now()
	sandbox := bankapi.NewSandbox()
	sandbox.Accounts = []models.RawAccount{
		{
			ID:         "acc-checking",
			Title:      "Everyday account",
			Type:       models.ProductChecking,
			Instrument: "RUB",
			Balance:    decimal.NewFromInt(15230),
			Available:  decimal.NewFromInt(15230),
			SyncIDs:    []string{"40817810000000001234"},
			Products:   []models.Product{{ID: "prod-checking", Type: models.ProductChecking, AccountID: "acc-checking"}},
		},
		{
			ID:         "acc-loan",
			Title:      "Consumer loan",
			Type:       models.ProductLoan,
			Instrument: "RUB",
			Balance:    decimal.NewFromInt(-120000),
			SyncIDs:    []string{"45507810000000005678"},
			Products:   []models.Product{{ID: "prod-loan", Type: models.ProductLoan, AccountID: "acc-loan"}},
		},
	}
	sandbox.Transactions["prod-checking"] = []models.RawTransaction{
		{ID: "t1", Date: now.Add(-48 * time.Hour), Sum: decimal.NewFromInt(-1200), Instrument: "RUB", Description: "Grocery store"},
		{ID: "t2", Date: now.Add(-24 * time.Hour), Sum: decimal.NewFromInt(50000), Instrument: "RUB", Description: "Salary"},
	}
	sandbox.Payments["prod-checking"] = []models.RawPayment{
		{ID: "t1", Date: now.Add(-48 * time.Hour), Sum: decimal.NewFromInt(-1200), Instrument: "RUB", Description: "Grocery store"},
	}
	sandbox.Transactions["prod-loan"] = []models.RawTransaction{
		{ID: "l1", Date: now.Add(-72 * time.Hour), Sum: decimal.NewFromInt(-8300), Instrument: "RUB", Description: "Loan repayment"},
	}
	sandbox.Broker = []models.RawBrokerHolding{
		{ID: "ima-1", Title: "Brokerage portfolio", Instrument: "RUB", Value: decimal.NewFromInt(250000)},
	}
	return sandbox
}
