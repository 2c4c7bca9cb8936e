package core

// Active budget statuses reported by the dashboard.
const (
	BudgetHealthy    ActiveBudgetStatus = "healthy"
	BudgetWarning    ActiveBudgetStatus = "warning"
	BudgetOverBudget ActiveBudgetStatus = "over_budget"
)

type (
	ActiveBudgetStatus string

	// PeriodFigures holds income, expenses and their difference for a period.
	PeriodFigures struct {
		Income   Amount `json:"income"`
		Expenses Amount `json:"expenses"`
		Net      Amount `json:"net"`
	}

	// MonthFigures adds month-over-month deltas in percent.
	MonthFigures struct {
		PeriodFigures
		IncomeChangePercentage  Percent `json:"income_change_percentage"`
		ExpenseChangePercentage Percent `json:"expense_change_percentage"`
	}

	DashboardOverview struct {
		CurrentMonth MonthFigures  `json:"current_month"`
		YearToDate   PeriodFigures `json:"year_to_date"`
		AllTime      PeriodFigures `json:"all_time"`
	}

	RecentTransactions struct {
		Expenses []Expense `json:"expenses"`
		Incomes  []Income  `json:"incomes"`
	}

	TopSpendingCategory struct {
		Category   Category `json:"category"`
		TotalSpent Amount   `json:"total_spent"`
	}

	Period struct {
		StartDate Date `json:"start_date"`
		EndDate   Date `json:"end_date"`
	}

	CategoryBreakdown struct {
		Category       Category `json:"category"`
		Budgeted       Amount   `json:"budgeted"`
		Spent          Amount   `json:"spent"`
		Remaining      Amount   `json:"remaining"`
		PercentageUsed Percent  `json:"percentage_used"`
		IsOverBudget   bool     `json:"is_over_budget"`
	}

	ActiveBudget struct {
		ID                int64               `json:"id"`
		Name              string              `json:"name"`
		Period            Period              `json:"period"`
		TotalBudgeted     Amount              `json:"total_budgeted"`
		TotalSpent        Amount              `json:"total_spent"`
		TotalRemaining    Amount              `json:"total_remaining"`
		PercentageUsed    Percent             `json:"percentage_used"`
		IsOverBudget      bool                `json:"is_over_budget"`
		Status            ActiveBudgetStatus  `json:"status"`
		CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	}

	// DashboardData is the read-only aggregate across all budgets of a user.
	DashboardData struct {
		Overview              DashboardOverview     `json:"overview"`
		RecentTransactions    *RecentTransactions   `json:"recent_transactions"`
		TopSpendingCategories []TopSpendingCategory `json:"top_spending_categories"`
		ActiveBudgets         []ActiveBudget        `json:"active_budgets"`
	}

	BudgetPeriod struct {
		StartDate                Date    `json:"start_date"`
		EndDate                  Date    `json:"end_date"`
		DaysTotal                int     `json:"days_total"`
		DaysElapsed              int     `json:"days_elapsed"`
		DaysRemaining            int     `json:"days_remaining"`
		PeriodProgressPercentage Percent `json:"period_progress_percentage"`
	}

	StatsBudget struct {
		ID     int64        `json:"id"`
		Name   string       `json:"name"`
		Period BudgetPeriod `json:"period"`
	}

	StatsSummary struct {
		TotalBudgeted    Amount  `json:"total_budgeted"`
		TotalSpent       Amount  `json:"total_spent"`
		TotalRemaining   Amount  `json:"total_remaining"`
		PercentageUsed   Percent `json:"percentage_used"`
		IsOverBudget     bool    `json:"is_over_budget"`
		OverBudgetAmount Amount  `json:"over_budget_amount"`
	}

	BudgetVelocity struct {
		DailyBudget               Amount `json:"daily_budget"`
		ActualDailySpending       Amount `json:"actual_daily_spending"`
		ProjectedMonthEndSpending Amount `json:"projected_month_end_spending"`
		OnTrack                   bool   `json:"on_track"`
	}

	CategoryHealth struct {
		TotalCategories      int `json:"total_categories"`
		HealthyCategories    int `json:"healthy_categories"`
		WarningCategories    int `json:"warning_categories"`
		OverBudgetCategories int `json:"over_budget_categories"`
	}

	// CurrentMonthBudgetStats is the payload of the current-month report.
	// Only HasBudget and Message are set when no budget exists this month.
	CurrentMonthBudgetStats struct {
		HasBudget         bool                `json:"has_budget"`
		Budget            *StatsBudget        `json:"budget,omitempty"`
		Summary           *StatsSummary       `json:"summary,omitempty"`
		Velocity          *BudgetVelocity     `json:"velocity,omitempty"`
		CategoryHealth    *CategoryHealth     `json:"category_health,omitempty"`
		CategoryBreakdown []CategoryBreakdown `json:"category_breakdown,omitempty"`
		Message           string              `json:"message,omitempty"`
	}
)
