package display

import (
	"sort"

	"budgetly/internal/core"
)

// RecentLimit caps the merged transaction feed.
const RecentLimit = 8

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Transaction is one row of the merged feed.
type Transaction struct {
	Kind     TransactionKind
	ID       int64
	Date     core.Date
	Amount   core.Amount
	Label    string
	Category string
}

// RecentTransactions merges incomes and expenses, newest first, and keeps at
// most limit rows (RecentLimit when limit <= 0). Rows on the same date keep
// their input order with incomes ahead of expenses.
func RecentTransactions(rt *core.RecentTransactions, limit int) []Transaction {
	if rt == nil {
		return nil
	}
	if limit <= 0 {
		limit = RecentLimit
	}

	out := make([]Transaction, 0, len(rt.Incomes)+len(rt.Expenses))
	for _, in := range rt.Incomes {
		out = append(out, Transaction{Kind: KindIncome, ID: in.ID, Date: in.Date, Amount: in.Amount, Label: in.Source})
	}
	for _, e := range rt.Expenses {
		tx := Transaction{Kind: KindExpense, ID: e.ID, Date: e.Date, Amount: e.Amount, Label: e.Merchant}
		if e.Category != nil {
			tx.Category = e.Category.Name
			if tx.Label == "" {
				tx.Label = e.Category.Name
			}
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
