// Package bankapi defines the boundary to the bank's private API. The
// connector core treats everything behind the API interface as opaque:
// wire formats, crypto handshake and endpoint details belong to the
// implementation, not to this contract.
package bankapi

import (
	"context"
	"errors"
	"time"

	"github.com/Nastunika/ZenPlugins/src/models"
)

var (
	// ErrInvalidCredentials means the login or PIN is malformed or
	// rejected. Not retriable without user correction.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTemporaryUnavailable means the bank reported a transient outage
	// for one product's transaction feed. Implementations surface it via
	// TransactionsResult.Unavailable; it never aborts a scrape.
	ErrTemporaryUnavailable = errors.New("temporarily unavailable")
)

// TransactionsResult is the outcome of one product's transaction fetch.
// Unavailable distinguishes the bank's transient-outage answer from a hard
// failure, which is returned as an error instead.
type TransactionsResult struct {
	Transactions []models.RawTransaction
	Unavailable  bool
}

// API is the narrow contract the orchestration core consumes.
type API interface {
	// Login authenticates with the bank, reusing the prior session's GUID
	// when one exists. Returns a session with a fresh API handle.
	Login(ctx context.Context, login, pin string, prior *models.AuthSession, device models.DeviceIdentity) (*models.AuthSession, error)

	// FetchAccounts returns all accounts visible to the session.
	FetchAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawAccount, error)

	// FetchTransactions returns the ledger records for one product within
	// the window. A transient outage is reported in the result, any other
	// failure as an error.
	FetchTransactions(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) (TransactionsResult, error)

	// FetchPayments returns the payment-order records for one product
	// within the window.
	FetchPayments(ctx context.Context, session *models.AuthSession, product models.Product, fromDate, toDate time.Time) ([]models.RawPayment, error)

	// FetchBrokerAccounts returns the session's brokerage holdings.
	FetchBrokerAccounts(ctx context.Context, session *models.AuthSession) ([]models.RawBrokerHolding, error)

	// MakeTransfer moves money between two of the user's accounts.
	MakeTransfer(ctx context.Context, login string, session *models.AuthSession, device models.DeviceIdentity, order models.TransferOrder) error
}
