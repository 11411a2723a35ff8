package convert

import (
	"github.com/Nastunika/ZenPlugins/src/models"
)

// ConvertTransaction converts one ledger record tied to account. Records
// whose counterpart is another of the user's own accounts become a
// two-movement transfer; the second movement carries no id of its own and
// is keyed through the first. Returns nil for records that cannot be
// represented.
func ConvertTransaction(raw models.RawTransaction, account *models.CanonicalAccount, accountsByID map[string]*models.CanonicalAccount) *models.CanonicalTransaction {
	if raw.ID == "" || raw.Sum.IsZero() {
		return nil
	}
	tx := &models.CanonicalTransaction{
		Date:    raw.Date,
		Hold:    raw.Hold,
		Comment: raw.Description,
		Movements: []models.Movement{{
			ID:        raw.ID,
			AccountID: account.ID,
			Sum:       raw.Sum,
		}},
	}
	if raw.CounterpartID != "" && raw.CounterpartID != account.ID {
		if counterpart, ok := accountsByID[raw.CounterpartID]; ok {
			tx.Movements = append(tx.Movements, models.Movement{
				AccountID: counterpart.ID,
				Sum:       raw.Sum.Neg(),
			})
		}
	}
	return tx
}

// ConvertLoanTransaction converts one loan ledger record. The loan feed has
// no payment-order counterpart and its records carry no globally unique
// ids, so loan transactions bypass the movement-id collision filter.
func ConvertLoanTransaction(raw models.RawTransaction, account *models.CanonicalAccount) *models.CanonicalTransaction {
	if raw.Sum.IsZero() {
		return nil
	}
	return &models.CanonicalTransaction{
		Date:    raw.Date,
		Comment: raw.Description,
		Movements: []models.Movement{{
			ID:        raw.ID,
			AccountID: account.ID,
			Sum:       raw.Sum,
		}},
	}
}
