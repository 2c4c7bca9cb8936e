package api

import (
	"context"
	"net/http"

	"budgetly/internal/core"
)

// Dashboard fetches the aggregate across all budgets of the user.
func (c *Client) Dashboard(ctx context.Context) (*core.DashboardData, error) {
	var out core.DashboardData
	if err := c.call(ctx, http.MethodGet, "/api/reports/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentMonthBudgetStats fetches the report for this month's budget.
// HasBudget is false when the user has none.
func (c *Client) CurrentMonthBudgetStats(ctx context.Context) (*core.CurrentMonthBudgetStats, error) {
	var out core.CurrentMonthBudgetStats
	if err := c.call(ctx, http.MethodGet, "/api/reports/current-month-budget-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
