package budgets

import (
	"context"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

// CreateBudget validates the input and appends the created budget to the list.
func (s *Store) CreateBudget(ctx context.Context, in core.BudgetInput) (*core.Budget, error) {
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpCreate, nil, err)
	}
	s.pending()
	b, err := s.api.CreateBudget(ctx, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpCreate, log.LogFields{log.FieldMonth: in.Month.MonthKey()}, err)
	}
	s.fulfil(func(st *State) { st.Budgets = appendCopy(st.Budgets, *b) })
	s.logger.InfoContext(ctx, "Budget created", log.FieldBudgetID, b.ID, log.FieldMonth, b.Month.MonthKey())
	return b, nil
}

// UpdateBudget replaces the budget in the list and, when it is the one being
// viewed, the current budget.
func (s *Store) UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (*core.Budget, error) {
	fields := log.NewFields().WithBudget(id)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.pending()
	b, err := s.api.UpdateBudget(ctx, id, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.fulfil(func(st *State) {
		st.Budgets = replaceByID(st.Budgets, *b, budgetID)
		if st.Current != nil && st.Current.ID == b.ID {
			st.Current = b
		}
	})
	s.logger.InfoContext(ctx, "Budget updated", log.FieldBudgetID, b.ID)
	return b, nil
}

// DeleteBudget drops the budget from the list. When it is the current budget
// the current budget and the flat items are cleared; cached incomes and
// expenses are left for the next detail load to replace.
func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	s.pending()
	if err := s.api.DeleteBudget(ctx, id); err != nil {
		return s.reject(ctx, log.OpDelete, log.NewFields().WithBudget(id), err)
	}
	s.fulfil(func(st *State) {
		st.Budgets = removeByID(st.Budgets, id, budgetID)
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
			st.Items = []core.BudgetItem{}
		}
	})
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldBudgetID, id)
	return nil
}

// CreateBudgetItem adds a planned line to a budget and appends it to the flat items.
// Summaries stay stale until the budget detail is loaded again.
func (s *Store) CreateBudgetItem(ctx context.Context, budgetID int64, in core.BudgetItemInput) (*core.BudgetItem, error) {
	fields := log.NewFields().WithBudget(budgetID)
	if budgetID < 1 {
		return nil, s.reject(ctx, log.OpCreate, fields, core.ErrInvalidBudget)
	}
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.pending()
	item, err := s.api.CreateBudgetItem(ctx, budgetID, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.fulfil(func(st *State) { st.Items = appendCopy(st.Items, *item) })
	s.logger.InfoContext(ctx, "Budget item created", log.FieldEntityID, item.ID, log.FieldBudgetID, budgetID)
	return item, nil
}

// UpdateBudgetItem replaces the item in the flat items by id.
func (s *Store) UpdateBudgetItem(ctx context.Context, id int64, in core.BudgetItemInput) (*core.BudgetItem, error) {
	fields := log.NewFields().WithEntity(id)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.pending()
	item, err := s.api.UpdateBudgetItem(ctx, id, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.fulfil(func(st *State) { st.Items = replaceByID(st.Items, *item, itemID) })
	s.logger.InfoContext(ctx, "Budget item updated", log.FieldEntityID, id)
	return item, nil
}

// DeleteBudgetItem removes the item from the flat items.
func (s *Store) DeleteBudgetItem(ctx context.Context, id int64) error {
	s.pending()
	if err := s.api.DeleteBudgetItem(ctx, id); err != nil {
		return s.reject(ctx, log.OpDelete, log.NewFields().WithEntity(id), err)
	}
	s.fulfil(func(st *State) { st.Items = removeByID(st.Items, id, itemID) })
	s.logger.InfoContext(ctx, "Budget item deleted", log.FieldEntityID, id)
	return nil
}

// CreateIncome records income against a budget and appends it to the cached incomes.
func (s *Store) CreateIncome(ctx context.Context, in core.IncomeInput) (*core.Income, error) {
	fields := log.NewFields().WithBudget(in.BudgetID)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.pending()
	inc, err := s.api.CreateIncome(ctx, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.fulfil(func(st *State) { st.Incomes = appendCopy(st.Incomes, *inc) })
	s.logger.InfoContext(ctx, "Income created", log.FieldEntityID, inc.ID, log.FieldBudgetID, in.BudgetID)
	return inc, nil
}

// UpdateIncome replaces the income in the cached incomes by id.
func (s *Store) UpdateIncome(ctx context.Context, id int64, in core.IncomeInput) (*core.Income, error) {
	fields := log.NewFields().WithEntity(id)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.pending()
	inc, err := s.api.UpdateIncome(ctx, id, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.fulfil(func(st *State) { st.Incomes = replaceByID(st.Incomes, *inc, incomeID) })
	s.logger.InfoContext(ctx, "Income updated", log.FieldEntityID, id)
	return inc, nil
}

// DeleteIncome removes the income from the cached incomes.
func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	s.pending()
	if err := s.api.DeleteIncome(ctx, id); err != nil {
		return s.reject(ctx, log.OpDelete, log.NewFields().WithEntity(id), err)
	}
	s.fulfil(func(st *State) { st.Incomes = removeByID(st.Incomes, id, incomeID) })
	s.logger.InfoContext(ctx, "Income deleted", log.FieldEntityID, id)
	return nil
}

// CreateExpense records spending against a budget item and appends it to the cached expenses.
func (s *Store) CreateExpense(ctx context.Context, in core.ExpenseInput) (*core.Expense, error) {
	fields := log.NewFields().WithBudget(in.BudgetID)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.pending()
	exp, err := s.api.CreateExpense(ctx, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpCreate, fields, err)
	}
	s.fulfil(func(st *State) { st.Expenses = appendCopy(st.Expenses, *exp) })
	s.logger.InfoContext(ctx, "Expense created", log.FieldEntityID, exp.ID, log.FieldBudgetID, in.BudgetID)
	return exp, nil
}

// UpdateExpense replaces the expense in the cached expenses by id.
func (s *Store) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (*core.Expense, error) {
	fields := log.NewFields().WithEntity(id)
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.pending()
	exp, err := s.api.UpdateExpense(ctx, id, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpUpdate, fields, err)
	}
	s.fulfil(func(st *State) { st.Expenses = replaceByID(st.Expenses, *exp, expenseID) })
	s.logger.InfoContext(ctx, "Expense updated", log.FieldEntityID, id)
	return exp, nil
}

// DeleteExpense removes the expense from the cached expenses.
func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.pending()
	if err := s.api.DeleteExpense(ctx, id); err != nil {
		return s.reject(ctx, log.OpDelete, log.NewFields().WithEntity(id), err)
	}
	s.fulfil(func(st *State) { st.Expenses = removeByID(st.Expenses, id, expenseID) })
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldEntityID, id)
	return nil
}

// SetCurrentBudget sets the budget being viewed without fetching it.
func (s *Store) SetCurrentBudget(b *core.Budget) {
	s.update(func(st *State) { st.Current = b })
}

// SetFilters stores the list filters; it does not fetch.
func (s *Store) SetFilters(f Filters) {
	s.update(func(st *State) { st.Filters = f })
}

// ClearBudgets empties the list, the current budget and the flat items.
func (s *Store) ClearBudgets() {
	s.update(func(st *State) {
		st.Budgets = []core.Budget{}
		st.Current = nil
		st.Items = []core.BudgetItem{}
		st.Err = ""
	})
}

// ClearError resets the error string only.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}
