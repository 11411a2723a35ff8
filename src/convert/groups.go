package convert

import (
	"fmt"

	"github.com/Nastunika/ZenPlugins/src/models"
)

// AdjustTransactionGroups makes paired movements mutually consistent across
// the whole scrape result. A transfer between two of the user's accounts is
// fetched from both sides, each side producing a transaction whose second
// movement mirrors the other account; the two halves are merged into one
// transaction carrying both real movements. Second movements with no sum of
// their own are filled with the negation of the first.
func AdjustTransactionGroups(transactions []models.CanonicalTransaction) []models.CanonicalTransaction {
	for i := range transactions {
		tx := &transactions[i]
		if len(tx.Movements) == 2 && tx.Movements[1].Sum.IsZero() {
			tx.Movements[1].Sum = tx.Movements[0].Sum.Neg()
		}
	}

	// Index transfer halves by (day, account pair, magnitude). The two
	// halves of one transfer agree on all three.
	byKey := make(map[string]int)
	merged := make([]bool, len(transactions))
	for i := range transactions {
		tx := &transactions[i]
		if len(tx.Movements) != 2 {
			continue
		}
		if j, ok := byKey[transferKey(tx, true)]; ok && !merged[i] && !merged[j] {
			other := &transactions[j]
			// Keep each side's own ledger record as its leg.
			other.Movements[1] = tx.Movements[0]
			merged[i] = true
			continue
		}
		byKey[transferKey(tx, false)] = i
	}

	out := make([]models.CanonicalTransaction, 0, len(transactions))
	for i, tx := range transactions {
		if !merged[i] {
			out = append(out, tx)
		}
	}
	return out
}

// transferKey identifies one half of an own-account transfer. The mirrored
// flag builds the key as the opposite side would have written it.
func transferKey(tx *models.CanonicalTransaction, mirrored bool) string {
	from, to := tx.Movements[0].AccountID, tx.Movements[1].AccountID
	if mirrored {
		from, to = to, from
	}
	return fmt.Sprintf("%s|%s|%s|%s", tx.Date.Format("2006-01-02"), from, to, tx.Movements[0].Sum.Abs().String())
}
