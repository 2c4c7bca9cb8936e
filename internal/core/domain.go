package core

import (
	"errors"
	"time"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
	CategorySavings CategoryType = "savings"
)

const (
	UnderBudget ItemStatus = "under_budget"
	OnBudget    ItemStatus = "on_budget"
	OverBudget  ItemStatus = "over_budget"
)

type (
	// CategoryType is the closed set of category kinds.
	CategoryType string

	// ItemStatus is the server-derived status of a budget item.
	ItemStatus string

	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Avatar       string    `json:"avatar,omitempty"`
		CurrencyCode string    `json:"currency_code,omitempty"`
		Timezone     string    `json:"timezone,omitempty"`
		Provider     string    `json:"provider,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Category struct {
		ID        int64        `json:"id"`
		UserID    int64        `json:"user_id,omitempty"`
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		Color     string       `json:"color,omitempty"`
		SortOrder int          `json:"sort_order"`
		IsDefault bool         `json:"is_default"`
		CreatedAt time.Time    `json:"created_at"`
		UpdatedAt time.Time    `json:"updated_at"`
	}

	// Budget is one month of planning. Items, Incomes and Expenses are null
	// in list views and populated (possibly empty) in the detail view.
	Budget struct {
		ID        int64        `json:"id"`
		UserID    int64        `json:"user_id"`
		Month     Date         `json:"month"`
		Notes     string       `json:"notes,omitempty"`
		CreatedAt time.Time    `json:"created_at"`
		UpdatedAt time.Time    `json:"updated_at"`
		Items     []BudgetItem `json:"budget_items"`
		Incomes   []Income     `json:"incomes"`
		Expenses  []Expense    `json:"expenses"`
	}

	BudgetItem struct {
		ID                    int64      `json:"id"`
		BudgetID              int64      `json:"budget_id"`
		CategoryID            int64      `json:"category_id"`
		PlannedAmount         Amount     `json:"planned_amount"`
		Notes                 string     `json:"notes,omitempty"`
		SpentAmount           Amount     `json:"spent_amount"`
		RemainingAmount       Amount     `json:"remaining_amount"`
		UtilizationPercentage Percent    `json:"utilization_percentage"`
		Status                ItemStatus `json:"status"`
		Category              *Category  `json:"category,omitempty"`
		CreatedAt             time.Time  `json:"created_at"`
		UpdatedAt             time.Time  `json:"updated_at"`
	}

	Income struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		BudgetID  int64     `json:"budget_id"`
		Amount    Amount    `json:"amount"`
		Source    string    `json:"source"`
		Note      string    `json:"note,omitempty"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Expense struct {
		ID           int64     `json:"id"`
		UserID       int64     `json:"user_id,omitempty"`
		BudgetID     int64     `json:"budget_id"`
		CategoryID   int64     `json:"category_id"`
		BudgetItemID int64     `json:"budget_item_id"`
		Amount       Amount    `json:"amount"`
		Merchant     string    `json:"merchant,omitempty"`
		Note         string    `json:"note,omitempty"`
		Date         Date      `json:"date"`
		Category     *Category `json:"category,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	// BudgetListSummary accompanies the budget list.
	BudgetListSummary struct {
		TotalBudgets              int    `json:"total_budgets"`
		CurrentMonthBudgets       int    `json:"current_month_budgets"`
		CurrentMonthPlannedAmount Amount `json:"current_month_planned_amount"`
		CurrentMonthActualAmount  Amount `json:"current_month_actual_amount"`
		CurrentMonthBalance       Amount `json:"current_month_balance"`
	}

	// BudgetDetailSummary is the server-computed rollup of one budget.
	BudgetDetailSummary struct {
		TotalPlanned          Amount  `json:"total_planned"`
		ActualSpent           Amount  `json:"actual_spent"`
		TotalIncome           Amount  `json:"total_income"`
		TotalExpenses         Amount  `json:"total_expenses"`
		Savings               Amount  `json:"savings"`
		Balance               Amount  `json:"balance"`
		UnallocatedIncome     Amount  `json:"unallocated_income"`
		OverBudgetItemsCount  int     `json:"over_budget_items_count"`
		UnderBudgetItemsCount int     `json:"under_budget_items_count"`
		BudgetHealthScore     Percent `json:"budget_health_score"`
		IsZeroBased           bool    `json:"is_zero_based"`
	}

	BudgetItemHealth struct {
		ID                    int64      `json:"id"`
		Category              string     `json:"category"`
		PlannedAmount         Amount     `json:"planned_amount"`
		SpentAmount           Amount     `json:"spent_amount"`
		RemainingAmount       Amount     `json:"remaining_amount"`
		UtilizationPercentage Percent    `json:"utilization_percentage"`
		Status                ItemStatus `json:"status"`
	}

	// BudgetList is the payload of GET /api/budgets.
	BudgetList struct {
		Budgets []Budget           `json:"budgets"`
		Summary *BudgetListSummary `json:"summary"`
	}

	// BudgetDetail is the payload of GET /api/budgets/{id}.
	BudgetDetail struct {
		Budget      Budget               `json:"budget"`
		Summary     *BudgetDetailSummary `json:"summary"`
		ItemsHealth []BudgetItemHealth   `json:"budget_items_health"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidCategory     = errors.New("category must be selected")
	ErrInvalidBudget       = errors.New("budget must be selected")
	ErrInvalidBudgetItem   = errors.New("budget item must be selected")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidSortOrder    = errors.New("sort order must not be negative")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptySource         = errors.New("empty income source")
	ErrEmptyEmail          = errors.New("empty email")
	ErrEmptyPassword       = errors.New("empty password")
	ErrPasswordMismatch    = errors.New("password confirmation does not match")
)

// Valid reports whether t is one of the known category kinds.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryExpense, CategoryIncome, CategorySavings:
		return true
	default:
		return false
	}
}

func (t CategoryType) String() string {
	return string(t)
}

// CategoryTypes lists every category kind in display order.
func CategoryTypes() []CategoryType {
	return []CategoryType{CategoryExpense, CategoryIncome, CategorySavings}
}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case UnderBudget, OnBudget, OverBudget:
		return true
	default:
		return false
	}
}

// DisplayName returns the budget notes, which double as its name, or the
// formatted month when no notes were written.
func (b Budget) DisplayName() string {
	if b.Notes != "" {
		return b.Notes
	}
	if b.Month.IsZero() {
		return "Budget"
	}
	return b.Month.Format("January 2006")
}

// HasDetail reports whether the nested collections were loaded.
func (b Budget) HasDetail() bool {
	return b.Items != nil || b.Incomes != nil || b.Expenses != nil
}

// StatusConsistent reports whether the sign of the remaining amount agrees
// with the status: a negative remainder is only allowed when over budget.
func (i BudgetItem) StatusConsistent() bool {
	negative := i.RemainingAmount.Sign() < 0
	if negative {
		return i.Status == OverBudget
	}
	return i.Status != OverBudget
}
