package bankapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ResilientConfig tunes the client-side protections around the bank API.
type ResilientConfig struct {
	RateEvery          time.Duration
	Burst              int
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	AccountsCacheTTL   time.Duration
}

var _ API = (*Resilient)(nil)

// Resilient wraps an API with a client-side rate limiter, a circuit breaker
// and a short-TTL cache for the accounts response. The bank throttles and
// temporarily bans chatty clients; all calls from the connector go through
// this wrapper.
//
// The accounts cache is scoped to one session: it is keyed by the API
// token and flushed on login, so it only absorbs repeated FetchAccounts
// calls made on the same handle. Balances are never served across logins.
type Resilient struct {
	api      API
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker
	accounts *cache.Cache
}

func NewResilient(api API, cfg ResilientConfig) *Resilient {
	settings := gobreaker.Settings{
		Name:        "bankapi",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.L.Warn("Bank API circuit breaker state changed",
				"from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Bad credentials are the user's problem, not the bank's.
			return err == nil || errors.Is(err, ErrInvalidCredentials)
		},
	}

	return &Resilient{
		api:      api,
		limiter:  rate.NewLimiter(rate.Every(cfg.RateEvery), cfg.Burst),
		cb:       gobreaker.NewCircuitBreaker(settings),
		accounts: cache.New(cfg.AccountsCacheTTL, 2*cfg.AccountsCacheTTL),
	}
}

func (r *Resilient) execute(ctx context.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", op, err)
	}
	result, err := r.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: bank API circuit open: %w", op, err)
	}
	return result, err
}

func (r *Resilient) Login(ctx context.Context, login, pin string, prior *models.AuthSession, device models.DeviceIdentity) (*models.AuthSession, error) {
	result, err := r.execute(ctx, "login", func() (interface{}, error) {
		return r.api.Login(ctx, login, pin, prior, device)
	})
	if err != nil {
		return nil, err
	}
	// A fresh session invalidates anything cached under the old one.
	r.accounts.Flush()
	return result.(*models.AuthSession), nil
}

func (r *Resilient) FetchAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawAccount, error) {
	key := ""
	if session.Authenticated() {
		key = session.API.Token
	}
	if key != "" {
		if cached, found := r.accounts.Get(key); found {
			logger.L.Debug("Serving accounts response from cache")
			return cached.([]models.RawAccount), nil
		}
	}
	result, err := r.execute(ctx, "fetchAccounts", func() (interface{}, error) {
		return r.api.FetchAccounts(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	accounts := result.([]models.RawAccount)
	if key != "" {
		r.accounts.Set(key, accounts, cache.DefaultExpiration)
	}
	return accounts, nil
}

func (r *Resilient) FetchTransactions(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) (TransactionsResult, error) {
	result, err := r.execute(ctx, "fetchTransactions", func() (interface{}, error) {
		return r.api.FetchTransactions(ctx, session, product, fromDate, toDate)
	})
	if err != nil {
		return TransactionsResult{}, err
	}
	return result.(TransactionsResult), nil
}

func (r *Resilient) FetchPayments(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) ([]models.RawPayment, error) {
	result, err := r.execute(ctx, "fetchPayments", func() (interface{}, error) {
		return r.api.FetchPayments(ctx, session, product, fromDate, toDate)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.RawPayment), nil
}

func (r *Resilient) FetchBrokerAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawBrokerHolding, error) {
	result, err := r.execute(ctx, "fetchBrokerAccounts", func() (interface{}, error) {
		return r.api.FetchBrokerAccounts(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.RawBrokerHolding), nil
}

func (r *Resilient) MakeTransfer(ctx context.Context, login string, session *models.AuthSession, device models.DeviceIdentity, order models.TransferOrder) error {
	_, err := r.execute(ctx, "makeTransfer", func() (interface{}, error) {
		return nil, r.api.MakeTransfer(ctx, login, session, device, order)
	})
	return err
}
