package convert

import (
	"fmt"
	"strings"

	"github.com/Nastunika/ZenPlugins/src/models"
)

// SanitizeSyncIDs normalizes every account's sync ids and guarantees no two
// accounts end up sharing one. Ids that stay unique in their short form
// (last four characters, the form users recognize from card numbers) are
// shortened; colliding ids keep their full sanitized form, and ids whose
// full form is carried by more than one account get a per-occurrence
// numeric suffix. Sanitized ids never contain an underscore, so the suffix
// space cannot collide with a real id.
func SanitizeSyncIDs(accounts []*models.CanonicalAccount) []*models.CanonicalAccount {
	shortCounts := make(map[string]int)
	fullCounts := make(map[string]int)
	for _, account := range accounts {
		seen := make(map[string]bool, len(account.SyncIDs))
		for _, id := range account.SyncIDs {
			full := sanitizeSyncID(id)
			if full == "" || seen[full] {
				continue
			}
			seen[full] = true
			shortCounts[shortForm(full)]++
			fullCounts[full]++
		}
	}

	suffixSeq := make(map[string]int)
	for _, account := range accounts {
		seen := make(map[string]bool, len(account.SyncIDs))
		out := make([]string, 0, len(account.SyncIDs))
		for _, id := range account.SyncIDs {
			full := sanitizeSyncID(id)
			if full == "" || seen[full] {
				continue
			}
			seen[full] = true
			candidate := shortForm(full)
			if shortCounts[candidate] > 1 {
				candidate = full
			}
			if fullCounts[full] > 1 && candidate == full {
				n := suffixSeq[full]
				suffixSeq[full] = n + 1
				candidate = fmt.Sprintf("%s_%d", full, n)
			}
			out = append(out, candidate)
		}
		account.SyncIDs = out
	}
	return accounts
}

// sanitizeSyncID keeps only the characters the aggregator accepts in a
// sync id.
func sanitizeSyncID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shortForm(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
