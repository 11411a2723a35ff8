// Package scraper drives a full scrape across all of the user's accounts
// and products, and exposes the transfer operation that shares its session
// machinery.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/Nastunika/ZenPlugins/src/bankapi"
	"github.com/Nastunika/ZenPlugins/src/convert"
	"github.com/Nastunika/ZenPlugins/src/identity"
	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/Nastunika/ZenPlugins/src/reconcile"
	"github.com/Nastunika/ZenPlugins/src/session"
	"github.com/Nastunika/ZenPlugins/src/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const keyLastSuccessDate = "scrape/lastSuccessDate"

// CredentialsSource is the host's credentials/preferences accessor.
type CredentialsSource interface {
	Credentials() (models.Credentials, error)
}

// AccountFilter is the host's per-account skip predicate.
type AccountFilter interface {
	IsAccountSkipped(accountID string) bool
}

// ScrapeOptions are the host-supplied parameters for one scrape call.
type ScrapeOptions struct {
	Credentials  models.Credentials
	FromDate     time.Time
	ToDate       time.Time
	InBackground bool
}

// ScrapeResult is the aggregated output of one scrape call.
type ScrapeResult struct {
	Accounts     []*models.CanonicalAccount    `json:"accounts"`
	Transactions []models.CanonicalTransaction `json:"transactions"`
}

type Service struct {
	api      bankapi.API
	store    storage.PersistentStore
	sessions *session.Provider
	engine   *reconcile.Engine
	filter   AccountFilter
	creds    CredentialsSource
	lookback time.Duration

	now func() time.Time
}

func NewService(api bankapi.API, store storage.PersistentStore, filter AccountFilter, creds CredentialsSource, lookbackDays int) *Service {
	return &Service{
		api:      api,
		store:    store,
		sessions: session.NewProvider(store, api),
		engine:   reconcile.NewEngine(),
		filter:   filter,
		creds:    creds,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		now:      time.Now,
	}
}

// productTask is one unit of the concurrent fan-out: one product of one
// account.
type productTask struct {
	account *models.CanonicalAccount
	product models.Product
}

// Scrape authenticates, fetches every non-skipped account's products
// concurrently, reconciles and normalizes the results and returns the full
// aggregated account/transaction set. Any hard error aborts the whole call;
// there are no partial results.
func (s *Service) Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error) {
	startTime := s.now()
	if err := opts.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", bankapi.ErrInvalidCredentials, err)
	}
	logger.L.Info("Scrape START", "login", opts.Credentials.Login, "inBackground", opts.InBackground)

	_, firstRun, err := s.lastSuccessDate()
	if err != nil {
		return nil, err
	}

	fromDate, toDate, err := s.effectiveWindow(opts, firstRun)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Effective scrape window", "fromDate", fromDate, "toDate", toDate, "firstRun", firstRun)

	device, err := identity.ResolveDevice(s.store, opts.Credentials.Login)
	if err != nil {
		return nil, err
	}

	auth, err := s.sessions.GetSession(ctx, opts.Credentials, device)
	if err != nil {
		return nil, err
	}

	rawAccounts, err := s.api.FetchAccounts(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("error fetching accounts: %w", err)
	}
	accountData, accountsByID := convert.ConvertAccounts(rawAccounts)

	// Account discovery may have refreshed the session; keep the persisted
	// copy at least as fresh as the last successful exchange.
	if err := identity.SaveSession(s.store, auth); err != nil {
		return nil, err
	}

	accounts := make([]*models.CanonicalAccount, 0, len(accountData))
	var tasks []productTask
	for _, data := range accountData {
		accounts = append(accounts, data.ZenAccount)
		if s.filter != nil && s.filter.IsAccountSkipped(data.ZenAccount.ID) {
			logger.L.Debug("Account skipped by user", "accountID", data.ZenAccount.ID)
			continue
		}
		for _, product := range data.Products {
			tasks = append(tasks, productTask{account: data.ZenAccount, product: product})
		}
	}

	results := make([]reconcile.Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			result, err := s.processProduct(gctx, auth, task.product, fromDate, toDate)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// All shared aggregation happens here, after the join: movement-id
	// dedup and balance nulling are a single sequential reduction.
	transactions := s.reduce(tasks, results, accountsByID, firstRun)

	holdings, err := s.api.FetchBrokerAccounts(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("error fetching broker accounts: %w", err)
	}
	for _, holding := range holdings {
		if data := convert.ConvertBrokerAccount(holding); data != nil {
			accounts = append(accounts, data.ZenAccount)
		}
	}

	if err := identity.SaveSession(s.store, auth); err != nil {
		return nil, err
	}
	if err := s.markSuccess(); err != nil {
		return nil, err
	}
	if err := s.store.Flush(); err != nil {
		return nil, err
	}

	logger.L.Info("Scrape END",
		"accounts", len(accounts), "transactions", len(transactions), "duration", time.Since(startTime))
	return &ScrapeResult{
		Accounts:     convert.SanitizeSyncIDs(accounts),
		Transactions: convert.AdjustTransactionGroups(transactions),
	}, nil
}

// processProduct is one fan-out task: fetch the product's feeds and
// reconcile them. Only a transient transaction-feed outage is absorbed
// (inside the adapter result); everything else propagates and cancels the
// group.
func (s *Service) processProduct(ctx context.Context, auth *models.AuthSession, product models.Product, fromDate, toDate time.Time) (reconcile.Result, error) {
	txResult, err := s.api.FetchTransactions(ctx, auth, product, fromDate, toDate)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("error fetching transactions for product %s: %w", product.ID, err)
	}

	var payments []models.RawPayment
	if product.Type.UsesPaymentOrders() {
		payments, err = s.api.FetchPayments(ctx, auth, product, fromDate, toDate)
		if err != nil {
			return reconcile.Result{}, fmt.Errorf("error fetching payments for product %s: %w", product.ID, err)
		}
	}

	return s.engine.Reconcile(txResult, payments, product.Type), nil
}

// reduce converts every product's reconciled records, claiming movement ids
// across the whole call (first occurrence wins) and withholding balances
// reported ambiguous on anything but the installation's first run.
func (s *Service) reduce(tasks []productTask, results []reconcile.Result, accountsByID map[string]*models.CanonicalAccount, firstRun bool) []models.CanonicalTransaction {
	ids := reconcile.NewIDSet()
	var transactions []models.CanonicalTransaction
	for i, task := range tasks {
		result := results[i]
		for _, raw := range result.Transactions {
			var tx *models.CanonicalTransaction
			switch task.product.Type {
			case models.ProductLoan:
				tx = convert.ConvertLoanTransaction(raw, task.account)
			default:
				tx = convert.ConvertTransaction(raw, task.account, accountsByID)
				if tx != nil {
					id1, id2 := tx.MovementIDs()
					if !ids.Claim(id1, id2) {
						logger.L.Debug("Dropping transaction with already-claimed movement id", "id", id1)
						continue
					}
				}
			}
			if tx != nil {
				transactions = append(transactions, *tx)
			}
		}
		if result.BalanceAmbiguous && !firstRun {
			logger.L.Warn("Withholding ambiguous balance", "accountID", task.account.ID)
			task.account.Balance = nil
			task.account.Available = nil
		}
	}
	return transactions
}

// MakeTransfer moves money between two of the user's accounts. The transfer
// path always performs a fresh login; adapter failures propagate unchanged.
func (s *Service) MakeTransfer(ctx context.Context, fromAccount, toAccount string, sum decimal.Decimal) error {
	creds, err := s.creds.Credentials()
	if err != nil {
		return fmt.Errorf("error reading credentials: %w", err)
	}

	device, err := identity.ResolveDevice(s.store, creds.Login)
	if err != nil {
		return err
	}
	auth, err := s.sessions.GetSession(ctx, creds, device)
	if err != nil {
		return err
	}

	order := models.TransferOrder{FromAccount: fromAccount, ToAccount: toAccount, Sum: sum}
	if err := s.api.MakeTransfer(ctx, creds.Login, auth, device, order); err != nil {
		return err
	}

	if err := identity.SaveSession(s.store, auth); err != nil {
		return err
	}
	if err := s.store.Flush(); err != nil {
		return err
	}
	logger.L.Info("Transfer completed", "fromAccount", fromAccount, "toAccount", toAccount, "sum", sum.String())
	return nil
}

// effectiveWindow computes the fetch window. On the installation's first
// run while the oldest legacy device marker is still present, the window is
// forced to seven days back regardless of the caller's fromDate; the marker
// must be read before device resolution clears it.
func (s *Service) effectiveWindow(opts ScrapeOptions, firstRun bool) (time.Time, time.Time, error) {
	fromDate := opts.FromDate
	toDate := opts.ToDate
	if toDate.IsZero() {
		toDate = s.now()
	}
	if fromDate.IsZero() {
		fromDate = s.now().Add(-s.lookback)
	}
	if firstRun {
		legacy, err := identity.HasLegacyDeviceMarker(s.store)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if legacy {
			fromDate = s.now().Add(-7 * 24 * time.Hour)
		}
	}
	return fromDate, toDate, nil
}

func (s *Service) lastSuccessDate() (time.Time, bool, error) {
	var stored string
	ok, err := storage.GetJSON(s.store, keyLastSuccessDate, &stored)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ok || stored == "" {
		return time.Time{}, true, nil
	}
	t, err := time.Parse(time.RFC3339, stored)
	if err != nil {
		// A corrupt marker is treated as a first run rather than failing
		// the scrape.
		logger.L.Warn("Unparseable last-success marker, treating as first run", "value", stored)
		return time.Time{}, true, nil
	}
	return t, false, nil
}

func (s *Service) markSuccess() error {
	return storage.SetJSON(s.store, keyLastSuccessDate, s.now().Format(time.RFC3339))
}
