// Package convert turns raw bank records into the canonical account and
// transaction entities the aggregator consumes.
package convert

import (
	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/shopspring/decimal"
)

// AccountData pairs a converted account with the products transactions are
// fetched for.
type AccountData struct {
	ZenAccount *models.CanonicalAccount
	Products   []models.Product
}

// ConvertAccounts converts the raw accounts response and builds the lookup
// used for resolving transfer counterparts.
func ConvertAccounts(raw []models.RawAccount) ([]AccountData, map[string]*models.CanonicalAccount) {
	accountData := make([]AccountData, 0, len(raw))
	accountsByID := make(map[string]*models.CanonicalAccount, len(raw))
	for _, r := range raw {
		balance := r.Balance
		available := r.Available
		account := &models.CanonicalAccount{
			ID:         r.ID,
			Title:      r.Title,
			Type:       r.Type.String(),
			Instrument: r.Instrument,
			SyncIDs:    append([]string(nil), r.SyncIDs...),
			Balance:    &balance,
			Available:  &available,
		}
		accountsByID[r.ID] = account
		accountData = append(accountData, AccountData{
			ZenAccount: account,
			Products:   append([]models.Product(nil), r.Products...),
		})
	}
	return accountData, accountsByID
}

// ConvertBrokerAccount converts one brokerage holding into an account-only
// entity. Returns nil when the holding cannot be represented; callers drop
// such holdings instead of aborting the batch.
func ConvertBrokerAccount(h models.RawBrokerHolding) *AccountData {
	if h.ID == "" || h.Title == "" {
		logger.L.Debug("Skipping broker holding without id or title", "id", h.ID)
		return nil
	}
	if h.Value.LessThan(decimal.Zero) {
		logger.L.Debug("Skipping broker holding with negative value", "id", h.ID)
		return nil
	}
	value := h.Value
	instrument := h.Instrument
	if instrument == "" {
		instrument = "RUB"
	}
	return &AccountData{
		ZenAccount: &models.CanonicalAccount{
			ID:         h.ID,
			Title:      h.Title,
			Type:       models.ProductIma.String(),
			Instrument: instrument,
			SyncIDs:    []string{h.ID},
			Balance:    &value,
		},
	}
}
