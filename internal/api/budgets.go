package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"budgetly/internal/core"
)

// Budgets lists every budget of the user together with the list summary.
func (c *Client) Budgets(ctx context.Context) (*core.BudgetList, error) {
	var out core.BudgetList
	if err := c.call(ctx, http.MethodGet, "/api/budgets", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BudgetsByMonth lists the budgets of one month, given as "2006-01".
func (c *Client) BudgetsByMonth(ctx context.Context, month string) ([]core.Budget, error) {
	var out []core.Budget
	if err := c.call(ctx, http.MethodGet, "/api/budgets/month/"+url.PathEscape(month), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Budget returns the detail view: nested collections, summary and item health.
func (c *Client) Budget(ctx context.Context, id int64) (*core.BudgetDetail, error) {
	var out core.BudgetDetail
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/budgets/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBudget creates the budget of one month.
func (c *Client) CreateBudget(ctx context.Context, in core.BudgetInput) (*core.Budget, error) {
	var out core.Budget
	if err := c.call(ctx, http.MethodPost, "/api/budgets", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBudget changes the month or notes of a budget.
func (c *Client) UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (*core.Budget, error) {
	var out core.Budget
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/budgets/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBudget deletes a budget; the server removes its items and transactions.
func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/budgets/%d", id), nil, nil)
}

// CreateBudgetItem adds a planned line for a category to a budget.
func (c *Client) CreateBudgetItem(ctx context.Context, budgetID int64, in core.BudgetItemInput) (*core.BudgetItem, error) {
	var out core.BudgetItem
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/budgets/%d/items", budgetID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBudgetItem patches a budget item.
func (c *Client) UpdateBudgetItem(ctx context.Context, id int64, in core.BudgetItemInput) (*core.BudgetItem, error) {
	var out core.BudgetItem
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/budget-items/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBudgetItem deletes a budget item.
func (c *Client) DeleteBudgetItem(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/budget-items/%d", id), nil, nil)
}

// CreateIncome records an income.
func (c *Client) CreateIncome(ctx context.Context, in core.IncomeInput) (*core.Income, error) {
	var out core.Income
	if err := c.call(ctx, http.MethodPost, "/api/incomes", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIncome patches an income.
func (c *Client) UpdateIncome(ctx context.Context, id int64, in core.IncomeInput) (*core.Income, error) {
	var out core.Income
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/incomes/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIncome deletes an income.
func (c *Client) DeleteIncome(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/incomes/%d", id), nil, nil)
}

// CreateExpense records an expense against a budget item.
func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (*core.Expense, error) {
	var out core.Expense
	if err := c.call(ctx, http.MethodPost, "/api/expenses", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateExpense patches an expense.
func (c *Client) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (*core.Expense, error) {
	var out core.Expense
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/expenses/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteExpense deletes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), nil, nil)
}
