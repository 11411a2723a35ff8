package bankapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/google/uuid"
)

var _ API = (*Sandbox)(nil)

// Sandbox is a fixture-backed API implementation. The demo binary runs
// against it, and the orchestration tests use it as the collaborator
// double: fixtures in, recorded calls out.
type Sandbox struct {
	mu sync.Mutex

	Accounts []models.RawAccount
	// Keyed by product id.
	Transactions map[string][]models.RawTransaction
	Payments     map[string][]models.RawPayment
	Broker       []models.RawBrokerHolding

	// Per-product overrides of the transaction fetch outcome.
	UnavailableProducts map[string]bool
	FailTransactions    map[string]error

	// Set to have Login fail.
	LoginErr error
	// Set to have MakeTransfer fail.
	TransferErr error

	LoginCalls    int
	AccountCalls  int
	TransferCalls int
	LastFromDate  time.Time
	LastToDate    time.Time
	LastTransfer  models.TransferOrder
	LastGUID      string
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		Transactions:        make(map[string][]models.RawTransaction),
		Payments:            make(map[string][]models.RawPayment),
		UnavailableProducts: make(map[string]bool),
		FailTransactions:    make(map[string]error),
	}
}

func (s *Sandbox) Login(ctx context.Context, login, pin string, prior *models.AuthSession, device models.DeviceIdentity) (*models.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoginCalls++
	if s.LoginErr != nil {
		return nil, s.LoginErr
	}
	if device.ID == "" {
		return nil, fmt.Errorf("login: device identity required")
	}
	guid := uuid.NewString()
	if prior != nil && prior.GUID != "" {
		guid = prior.GUID
	}
	s.LastGUID = guid
	return &models.AuthSession{
		GUID: guid,
		API:  &models.APISession{Token: uuid.NewString()},
	}, nil
}

func (s *Sandbox) FetchAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccountCalls++
	if !session.Authenticated() {
		return nil, fmt.Errorf("fetchAccounts: session not authenticated")
	}
	return s.Accounts, nil
}

func (s *Sandbox) FetchTransactions(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) (TransactionsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !session.Authenticated() {
		return TransactionsResult{}, fmt.Errorf("fetchTransactions: session not authenticated")
	}
	s.LastFromDate = fromDate
	s.LastToDate = toDate
	if err := s.FailTransactions[product.ID]; err != nil {
		return TransactionsResult{}, err
	}
	if s.UnavailableProducts[product.ID] {
		return TransactionsResult{Unavailable: true}, nil
	}
	var within []models.RawTransaction
	for _, tx := range s.Transactions[product.ID] {
		if !tx.Date.Before(fromDate) && !tx.Date.After(toDate) {
			within = append(within, tx)
		}
	}
	return TransactionsResult{Transactions: within}, nil
}

func (s *Sandbox) FetchPayments(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) ([]models.RawPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !session.Authenticated() {
		return nil, fmt.Errorf("fetchPayments: session not authenticated")
	}
	var within []models.RawPayment
	for _, p := range s.Payments[product.ID] {
		if !p.Date.Before(fromDate) && !p.Date.After(toDate) {
			within = append(within, p)
		}
	}
	return within, nil
}

func (s *Sandbox) FetchBrokerAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawBrokerHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !session.Authenticated() {
		return nil, fmt.Errorf("fetchBrokerAccounts: session not authenticated")
	}
	return s.Broker, nil
}

func (s *Sandbox) MakeTransfer(ctx context.Context, login string, session *models.AuthSession, device models.DeviceIdentity, order models.TransferOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TransferCalls++
	if !session.Authenticated() {
		return fmt.Errorf("makeTransfer: session not authenticated")
	}
	if s.TransferErr != nil {
		return s.TransferErr
	}
	s.LastTransfer = order
	return nil
}

// Calls returns how many times the sandbox was asked to log in; used to
// assert "no collaborator invoked" scenarios.
func (s *Sandbox) Calls() (logins, accounts, transfers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LoginCalls, s.AccountCalls, s.TransferCalls
}
