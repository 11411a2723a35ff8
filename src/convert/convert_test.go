package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/Nastunika/ZenPlugins/src/models"
	"github.com/shopspring/decimal"
)

var testDate = time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

func TestConvertAccounts(t *testing.T) {
	raw := []models.RawAccount{
		{
			ID:         "acc1",
			Title:      "Everyday",
			Type:       models.ProductChecking,
			Instrument: "RUB",
			Balance:    decimal.NewFromInt(100),
			Available:  decimal.NewFromInt(90),
			SyncIDs:    []string{"40817810000000001234"},
			Products:   []models.Product{{ID: "p1", Type: models.ProductChecking, AccountID: "acc1"}},
		},
		{ID: "acc2", Title: "Loan", Type: models.ProductLoan, Balance: decimal.NewFromInt(-500)},
	}

	data, byID := ConvertAccounts(raw)
	if len(data) != 2 || len(byID) != 2 {
		t.Fatalf("got %d account data, %d in lookup, want 2/2", len(data), len(byID))
	}
	if data[0].ZenAccount != byID["acc1"] {
		t.Error("lookup must point at the same account instance")
	}
	if data[0].ZenAccount.Balance == nil || !data[0].ZenAccount.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %v, want 100", data[0].ZenAccount.Balance)
	}
	if data[0].ZenAccount.Type != "checking" {
		t.Errorf("type = %q, want checking", data[0].ZenAccount.Type)
	}
	if len(data[0].Products) != 1 || data[0].Products[0].ID != "p1" {
		t.Errorf("products = %+v, want p1", data[0].Products)
	}
}

func TestConvertTransaction(t *testing.T) {
	account := &models.CanonicalAccount{ID: "acc1"}
	other := &models.CanonicalAccount{ID: "acc2"}
	byID := map[string]*models.CanonicalAccount{"acc1": account, "acc2": other}

	t.Run("plain debit", func(t *testing.T) {
		tx := ConvertTransaction(models.RawTransaction{ID: "t1", Date: testDate, Sum: decimal.NewFromInt(-100), Description: "Shop"}, account, byID)
		if tx == nil {
			t.Fatal("got nil, want transaction")
		}
		if len(tx.Movements) != 1 {
			t.Fatalf("got %d movements, want 1", len(tx.Movements))
		}
		if tx.Movements[0].ID != "t1" || tx.Movements[0].AccountID != "acc1" {
			t.Errorf("movement = %+v", tx.Movements[0])
		}
		id1, id2 := tx.MovementIDs()
		if id1 != "t1" || id2 != "t1" {
			t.Errorf("MovementIDs = %q,%q, want t1,t1", id1, id2)
		}
	})

	t.Run("own-account transfer grows second movement", func(t *testing.T) {
		tx := ConvertTransaction(models.RawTransaction{ID: "t2", Date: testDate, Sum: decimal.NewFromInt(-300), CounterpartID: "acc2"}, account, byID)
		if tx == nil || len(tx.Movements) != 2 {
			t.Fatalf("got %+v, want two movements", tx)
		}
		if tx.Movements[1].AccountID != "acc2" {
			t.Errorf("second movement account = %q, want acc2", tx.Movements[1].AccountID)
		}
		if !tx.Movements[1].Sum.Equal(decimal.NewFromInt(300)) {
			t.Errorf("second movement sum = %s, want 300", tx.Movements[1].Sum)
		}
		id1, id2 := tx.MovementIDs()
		if id1 != "t2" || id2 != "t2" {
			t.Errorf("MovementIDs = %q,%q: id-less second movement keys through the first", id1, id2)
		}
	})

	t.Run("unknown counterpart stays single movement", func(t *testing.T) {
		tx := ConvertTransaction(models.RawTransaction{ID: "t3", Date: testDate, Sum: decimal.NewFromInt(-50), CounterpartID: "stranger"}, account, byID)
		if tx == nil || len(tx.Movements) != 1 {
			t.Fatalf("got %+v, want single movement", tx)
		}
	})

	t.Run("unrepresentable records are skipped", func(t *testing.T) {
		if tx := ConvertTransaction(models.RawTransaction{Date: testDate, Sum: decimal.NewFromInt(-50)}, account, byID); tx != nil {
			t.Errorf("id-less record converted: %+v", tx)
		}
		if tx := ConvertTransaction(models.RawTransaction{ID: "t4", Date: testDate}, account, byID); tx != nil {
			t.Errorf("zero-sum record converted: %+v", tx)
		}
	})
}

func TestConvertLoanTransaction(t *testing.T) {
	account := &models.CanonicalAccount{ID: "loan1"}

	tx := ConvertLoanTransaction(models.RawTransaction{ID: "l1", Date: testDate, Sum: decimal.NewFromInt(-8300), Description: "Repayment"}, account)
	if tx == nil || len(tx.Movements) != 1 {
		t.Fatalf("got %+v, want single movement", tx)
	}
	if tx.Movements[0].AccountID != "loan1" {
		t.Errorf("account = %q, want loan1", tx.Movements[0].AccountID)
	}

	if tx := ConvertLoanTransaction(models.RawTransaction{ID: "l2", Date: testDate}, account); tx != nil {
		t.Errorf("zero-sum loan record converted: %+v", tx)
	}
}

func TestConvertBrokerAccount(t *testing.T) {
	tests := []struct {
		name    string
		holding models.RawBrokerHolding
		wantNil bool
	}{
		{
			name:    "valid holding",
			holding: models.RawBrokerHolding{ID: "ima1", Title: "Portfolio", Instrument: "USD", Value: decimal.NewFromInt(1000)},
		},
		{
			name:    "missing id",
			holding: models.RawBrokerHolding{Title: "Portfolio", Value: decimal.NewFromInt(1)},
			wantNil: true,
		},
		{
			name:    "missing title",
			holding: models.RawBrokerHolding{ID: "ima2", Value: decimal.NewFromInt(1)},
			wantNil: true,
		},
		{
			name:    "negative value",
			holding: models.RawBrokerHolding{ID: "ima3", Title: "Bad", Value: decimal.NewFromInt(-1)},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ConvertBrokerAccount(tt.holding)
			if tt.wantNil {
				if data != nil {
					t.Errorf("got %+v, want nil", data)
				}
				return
			}
			if data == nil {
				t.Fatal("got nil, want account data")
			}
			if data.ZenAccount.Type != "ima" {
				t.Errorf("type = %q, want ima", data.ZenAccount.Type)
			}
			if len(data.Products) != 0 {
				t.Errorf("broker accounts must carry no products, got %+v", data.Products)
			}
		})
	}

	t.Run("instrument defaults", func(t *testing.T) {
		data := ConvertBrokerAccount(models.RawBrokerHolding{ID: "ima4", Title: "P", Value: decimal.NewFromInt(1)})
		if data == nil || data.ZenAccount.Instrument != "RUB" {
			t.Errorf("instrument = %+v, want RUB default", data)
		}
	})
}

func TestSanitizeSyncIDs(t *testing.T) {
	accounts := []*models.CanonicalAccount{
		{ID: "a1", SyncIDs: []string{"4081 7810 0000 1234"}},
		{ID: "a2", SyncIDs: []string{"5469••••••••1234"}},
		{ID: "a3", SyncIDs: []string{"40817810999905678"}},
	}

	SanitizeSyncIDs(accounts)

	// a1 and a2 collide on the short form, so both keep their full
	// sanitized ids; a3 is unique and is shortened.
	if got := accounts[0].SyncIDs[0]; got != "4081781000001234" {
		t.Errorf("a1 sync id = %q, want full sanitized form", got)
	}
	if got := accounts[1].SyncIDs[0]; got != "54691234" {
		t.Errorf("a2 sync id = %q, want full sanitized form", got)
	}
	if got := accounts[2].SyncIDs[0]; got != "5678" {
		t.Errorf("a3 sync id = %q, want short form 5678", got)
	}

	seen := make(map[string]bool)
	for _, account := range accounts {
		for _, id := range account.SyncIDs {
			if seen[id] {
				t.Errorf("duplicate sync id %q across accounts", id)
			}
			seen[id] = true
		}
	}
}

func TestSanitizeSyncIDsSameIDOnTwoAccounts(t *testing.T) {
	accounts := []*models.CanonicalAccount{
		{ID: "a1", SyncIDs: []string{"40817810000000001234"}},
		{ID: "a2", SyncIDs: []string{"40817810000000001234"}},
		{ID: "a3", SyncIDs: []string{"40817810000000001234", "4081 7810 0000 0000 1234"}},
	}

	SanitizeSyncIDs(accounts)

	if got := accounts[2].SyncIDs; len(got) != 1 {
		t.Errorf("a3 sync ids = %v, want the repeated id collapsed to one", got)
	}

	seen := make(map[string]bool)
	for _, account := range accounts {
		if len(account.SyncIDs) != 1 {
			t.Fatalf("%s sync ids = %v, want exactly one", account.ID, account.SyncIDs)
		}
		id := account.SyncIDs[0]
		if !strings.HasPrefix(id, "40817810000000001234_") {
			t.Errorf("%s sync id = %q, want full form with a suffix", account.ID, id)
		}
		if seen[id] {
			t.Errorf("duplicate sync id %q across accounts", id)
		}
		seen[id] = true
	}
}

func TestAdjustTransactionGroupsFillsSecondMovement(t *testing.T) {
	txs := []models.CanonicalTransaction{{
		Date: testDate,
		Movements: []models.Movement{
			{ID: "m1", AccountID: "a1", Sum: decimal.NewFromInt(-500)},
			{AccountID: "a2"},
		},
	}}

	out := AdjustTransactionGroups(txs)
	if len(out) != 1 {
		t.Fatalf("got %d transactions, want 1", len(out))
	}
	if !out[0].Movements[1].Sum.Equal(decimal.NewFromInt(500)) {
		t.Errorf("second movement sum = %s, want 500", out[0].Movements[1].Sum)
	}
}

func TestAdjustTransactionGroupsMergesTransferHalves(t *testing.T) {
	half := func(id, from, to string, sum int64) models.CanonicalTransaction {
		return models.CanonicalTransaction{
			Date: testDate,
			Movements: []models.Movement{
				{ID: id, AccountID: from, Sum: decimal.NewFromInt(sum)},
				{AccountID: to, Sum: decimal.NewFromInt(-sum)},
			},
		}
	}

	out := AdjustTransactionGroups([]models.CanonicalTransaction{
		half("out1", "a1", "a2", -700),
		half("in1", "a2", "a1", 700),
		half("solo", "a1", "a3", -20),
	})

	if len(out) != 2 {
		t.Fatalf("got %d transactions, want merged pair plus solo", len(out))
	}
	merged := out[0]
	if merged.Movements[0].ID != "out1" || merged.Movements[1].ID != "in1" {
		t.Errorf("merged movements = %+v, want both real ledger records", merged.Movements)
	}
	if !merged.Movements[0].Sum.Equal(decimal.NewFromInt(-700)) || !merged.Movements[1].Sum.Equal(decimal.NewFromInt(700)) {
		t.Errorf("merged sums inconsistent: %+v", merged.Movements)
	}
}
