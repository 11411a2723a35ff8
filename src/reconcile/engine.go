// Package reconcile merges a product's heterogeneous upstream feeds into a
// single transaction list and decides whether the reported balance can be
// trusted.
package reconcile

import (
	"github.com/Nastunika/ZenPlugins/src/bankapi"
	"github.com/Nastunika/ZenPlugins/src/logger"
	"github.com/Nastunika/ZenPlugins/src/models"
)

// Result is the engine's verdict for one product.
type Result struct {
	Transactions     []models.RawTransaction
	BalanceAmbiguous bool
}

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Reconcile combines the transaction feed outcome with the payment-order
// feed for one product. Loan and investment products never consult
// payments; for everything else the two feeds are merged and cross-checked.
// A transient transaction-feed outage downgrades to payments-only data with
// the balance marked ambiguous.
func (e *Engine) Reconcile(txResult bankapi.TransactionsResult, payments []models.RawPayment, productType models.ProductType) Result {
	if !productType.UsesPaymentOrders() {
		return Result{
			Transactions:     txResult.Transactions,
			BalanceAmbiguous: txResult.Unavailable,
		}
	}

	if txResult.Unavailable {
		logger.L.Warn("Transaction feed unavailable, falling back to payment orders",
			"productType", productType.String(), "payments", len(payments))
		return Result{
			Transactions:     paymentsAsTransactions(payments),
			BalanceAmbiguous: true,
		}
	}

	merged, ambiguous := AdjustAndCheckBalance(txResult.Transactions, payments)
	return Result{Transactions: merged, BalanceAmbiguous: ambiguous}
}

// AdjustAndCheckBalance merges the payment-order feed into the transaction
// feed. Payments the ledger already reports (same record id) are the same
// economic event; their sums must agree, and a mismatch marks the balance
// ambiguous. Payments the ledger does not know yet are appended.
func AdjustAndCheckBalance(transactions []models.RawTransaction, payments []models.RawPayment) ([]models.RawTransaction, bool) {
	byID := make(map[string]models.RawTransaction, len(transactions))
	for _, tx := range transactions {
		byID[tx.ID] = tx
	}

	ambiguous := false
	merged := transactions
	for _, p := range payments {
		tx, ok := byID[p.ID]
		if !ok {
			merged = append(merged, paymentAsTransaction(p))
			continue
		}
		if !tx.Sum.Equal(p.Sum) {
			logger.L.Warn("Transaction and payment feeds disagree on sum",
				"id", p.ID, "transactionSum", tx.Sum.String(), "paymentSum", p.Sum.String())
			ambiguous = true
		}
	}
	return merged, ambiguous
}

func paymentsAsTransactions(payments []models.RawPayment) []models.RawTransaction {
	if len(payments) == 0 {
		return nil
	}
	out := make([]models.RawTransaction, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentAsTransaction(p))
	}
	return out
}

func paymentAsTransaction(p models.RawPayment) models.RawTransaction {
	return models.RawTransaction{
		ID:            p.ID,
		Date:          p.Date,
		Sum:           p.Sum,
		Instrument:    p.Instrument,
		Description:   p.Description,
		CounterpartID: p.CounterpartID,
	}
}
