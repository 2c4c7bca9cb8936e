package budgets

import (
	"context"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

// LoadBudgets replaces the budget list and its summary. List budgets carry
// no nested collections.
func (s *Store) LoadBudgets(ctx context.Context) error {
	s.pending()
	list, err := s.api.Budgets(ctx)
	if err != nil {
		return s.reject(ctx, log.OpList, nil, err)
	}
	s.fulfil(func(st *State) {
		st.Budgets = list.Budgets
		st.Summary = list.Summary
	})
	s.logger.DebugContext(ctx, "Budgets loaded", log.FieldCount, len(list.Budgets))
	return nil
}

// LoadBudgetsByMonth replaces the budget list only; month is "2006-01" or a date.
func (s *Store) LoadBudgetsByMonth(ctx context.Context, month string) error {
	m, err := core.ParseMonth(month)
	if err != nil {
		return s.reject(ctx, log.OpList, log.NewFields(), err)
	}
	s.pending()
	list, err := s.api.BudgetsByMonth(ctx, m.MonthKey())
	if err != nil {
		return s.reject(ctx, log.OpList, log.LogFields{log.FieldMonth: m.MonthKey()}, err)
	}
	s.fulfil(func(st *State) { st.Budgets = list })
	return nil
}

// LoadBudgetByID replaces the current budget, its summary and item health,
// and copies the nested collections into the flat ones. Items are only
// replaced when the payload carries them; incomes and expenses default to
// empty.
func (s *Store) LoadBudgetByID(ctx context.Context, id int64) error {
	s.pending()
	detail, err := s.api.Budget(ctx, id)
	if err != nil {
		return s.reject(ctx, log.OpRead, log.NewFields().WithBudget(id), err)
	}

	b := detail.Budget
	health := detail.ItemsHealth
	if health == nil {
		health = []core.BudgetItemHealth{}
	}
	incomes := b.Incomes
	if incomes == nil {
		incomes = []core.Income{}
	}
	expenses := b.Expenses
	if expenses == nil {
		expenses = []core.Expense{}
	}

	s.fulfil(func(st *State) {
		st.Current = &b
		st.CurrentSummary = detail.Summary
		st.ItemsHealth = health
		if b.Items != nil {
			st.Items = b.Items
		}
		st.Incomes = incomes
		st.Expenses = expenses
	})
	s.logger.DebugContext(ctx, "Budget detail loaded", log.FieldBudgetID, id, "items", len(b.Items))
	return nil
}
