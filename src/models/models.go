package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeviceIdentity is the per-installation fingerprint the bank requires from
// the client application. Created once, immutable and persisted thereafter.
type DeviceIdentity struct {
	ID    string `json:"id"`
	IDOld string `json:"idOld"`
	Model string `json:"model"`
}

// APISession is the short-lived authenticated handle returned by login.
// Its contents are opaque to everything but the fetch adapter.
type APISession struct {
	Token string `json:"token"`
	Host  string `json:"host,omitempty"`
}

// AuthSession pairs the long-lived GUID with the short-lived API handle.
// A session without an API handle is unauthenticated.
type AuthSession struct {
	GUID string      `json:"guid,omitempty"`
	API  *APISession `json:"api,omitempty"`
}

// Authenticated reports whether the session carries a usable API handle.
func (s *AuthSession) Authenticated() bool {
	return s != nil && s.API != nil && s.API.Token != ""
}

// ProductType is the closed set of product kinds the connector understands.
type ProductType int

const (
	ProductChecking ProductType = iota
	ProductCard
	ProductDeposit
	ProductLoan
	ProductIma
	ProductIis
)

var productTypeNames = map[ProductType]string{
	ProductChecking: "checking",
	ProductCard:     "card",
	ProductDeposit:  "deposit",
	ProductLoan:     "loan",
	ProductIma:      "ima",
	ProductIis:      "iis",
}

func (t ProductType) String() string {
	if name, ok := productTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("product(%d)", int(t))
}

// ParseProductType maps an upstream type string onto the closed enum.
func ParseProductType(s string) (ProductType, error) {
	for t, name := range productTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown product type %q", s)
}

// UsesPaymentOrders reports whether transactions for this product type must
// be cross-checked against the payment-order feed. Loan and investment
// products have no payment feed; their ledger is authoritative.
func (t ProductType) UsesPaymentOrders() bool {
	switch t {
	case ProductLoan, ProductIma, ProductIis:
		return false
	case ProductChecking, ProductCard, ProductDeposit:
		return true
	}
	return true
}

// Product is one financial instrument under an account; the unit of fetching.
type Product struct {
	ID        string
	Type      ProductType
	AccountID string
}

// Credentials are the host-supplied login preferences.
type Credentials struct {
	Login string
	PIN   string
}

// Validate checks credential shape without touching the network.
// The bank only issues 5-digit PINs.
func (c Credentials) Validate() error {
	if c.Login == "" {
		return fmt.Errorf("login must not be empty")
	}
	if len(c.PIN) != 5 {
		return fmt.Errorf("pin must be exactly 5 digits")
	}
	for _, r := range c.PIN {
		if r < '0' || r > '9' {
			return fmt.Errorf("pin must be exactly 5 digits")
		}
	}
	return nil
}

// RawAccount is one account as reported by the bank, with the products that
// transactions are fetched for.
type RawAccount struct {
	ID         string
	Title      string
	Type       ProductType
	Instrument string
	Balance    decimal.Decimal
	Available  decimal.Decimal
	SyncIDs    []string
	Products   []Product
}

// RawTransaction is one ledger record from the transaction feed.
type RawTransaction struct {
	ID            string
	Date          time.Time
	Sum           decimal.Decimal
	Instrument    string
	Description   string
	CounterpartID string // account id of the other leg when the bank reports it
	Hold          bool
}

// RawPayment is one record from the payment-order feed. The same economic
// event may surface both here and in the transaction feed.
type RawPayment struct {
	ID            string
	Date          time.Time
	Sum           decimal.Decimal
	Instrument    string
	Description   string
	CounterpartID string
}

// RawBrokerHolding is one brokerage position; converted to an account-only
// entity, never to transactions.
type RawBrokerHolding struct {
	ID         string
	Title      string
	Instrument string
	Value      decimal.Decimal
}

// Movement is one leg of a canonical transaction.
type Movement struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account"`
	Sum       decimal.Decimal  `json:"sum"`
	Fee       *decimal.Decimal `json:"fee,omitempty"`
}

// CanonicalTransaction is the aggregator-facing transaction entity: one
// movement for a plain debit/credit, two for a transfer between the user's
// own accounts.
type CanonicalTransaction struct {
	Date      time.Time  `json:"date"`
	Hold      bool       `json:"hold"`
	Movements []Movement `json:"movements"`
	Comment   string     `json:"comment,omitempty"`
}

// MovementIDs returns the transaction's one or two movement ids. When the
// second movement has no id of its own the first id stands in for it.
func (t *CanonicalTransaction) MovementIDs() (string, string) {
	id1 := t.Movements[0].ID
	id2 := id1
	if len(t.Movements) > 1 && t.Movements[1].ID != "" {
		id2 = t.Movements[1].ID
	}
	return id1, id2
}

// CanonicalAccount is the aggregator-facing account entity. Balance is a
// pointer so an ambiguous balance serializes as an explicit null; Available
// is omitted entirely when withheld.
type CanonicalAccount struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Type       string           `json:"type"`
	Instrument string           `json:"instrument"`
	SyncIDs    []string         `json:"syncID"`
	Balance    *decimal.Decimal `json:"balance"`
	Available  *decimal.Decimal `json:"available,omitempty"`
}

// TransferOrder describes a money movement between two of the user's
// accounts within one session.
type TransferOrder struct {
	FromAccount string
	ToAccount   string
	Sum         decimal.Decimal
}
