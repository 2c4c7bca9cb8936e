package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Request payloads. Each Validate mirrors the form rules applied before a
// request is sent; the server remains authoritative.
type (
	LoginCredentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	RegisterCredentials struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	ProfileInput struct {
		Name         string `json:"name,omitempty"`
		Email        string `json:"email,omitempty"`
		CurrencyCode string `json:"currency_code,omitempty"`
		Timezone     string `json:"timezone,omitempty"`
		Avatar       string `json:"avatar,omitempty"`
	}

	PasswordInput struct {
		CurrentPassword         string `json:"current_password,omitempty"`
		NewPassword             string `json:"new_password"`
		NewPasswordConfirmation string `json:"new_password_confirmation"`
	}

	CategoryInput struct {
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		SortOrder int          `json:"sort_order"`
		IsDefault bool         `json:"is_default"`
	}

	BudgetInput struct {
		Month Date   `json:"month"`
		Notes string `json:"notes,omitempty"`
	}

	BudgetItemInput struct {
		CategoryID    int64           `json:"category_id"`
		PlannedAmount decimal.Decimal `json:"planned_amount"`
		Notes         string          `json:"notes,omitempty"`
	}

	IncomeInput struct {
		BudgetID int64           `json:"budget_id"`
		Amount   decimal.Decimal `json:"amount"`
		Source   string          `json:"source"`
		Note     string          `json:"note,omitempty"`
		Date     Date            `json:"date"`
	}

	ExpenseInput struct {
		BudgetID     int64           `json:"budget_id"`
		CategoryID   int64           `json:"category_id"`
		BudgetItemID int64           `json:"budget_item_id"`
		Amount       decimal.Decimal `json:"amount"`
		Merchant     string          `json:"merchant,omitempty"`
		Note         string          `json:"note,omitempty"`
		Date         Date            `json:"date"`
	}
)

func (c LoginCredentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmptyEmail
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

func (c RegisterCredentials) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmptyEmail
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	if c.Password != c.PasswordConfirmation {
		return ErrPasswordMismatch
	}
	return nil
}

func (p PasswordInput) Validate() error {
	if p.NewPassword == "" {
		return ErrEmptyPassword
	}
	if p.NewPassword != p.NewPasswordConfirmation {
		return ErrPasswordMismatch
	}
	return nil
}

func (c CategoryInput) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategoryType, c.Type)
	}
	if c.SortOrder < 0 {
		return ErrInvalidSortOrder
	}
	return nil
}

func (b BudgetInput) Validate() error {
	if b.Month.IsZero() {
		return ErrInvalidMonth
	}
	return nil
}

func (i BudgetItemInput) Validate() error {
	if i.CategoryID < 1 {
		return ErrInvalidCategory
	}
	if !validPositive(i.PlannedAmount) {
		return fmt.Errorf("planned amount must be at least %s: %w", MinAmount.StringFixed(2), ErrInvalidAmount)
	}
	return nil
}

func (i IncomeInput) Validate() error {
	if i.BudgetID < 1 {
		return ErrInvalidBudget
	}
	if !validPositive(i.Amount) {
		return fmt.Errorf("amount must be at least %s: %w", MinAmount.StringFixed(2), ErrInvalidAmount)
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	return i.Date.Validate()
}

func (e ExpenseInput) Validate() error {
	if e.BudgetID < 1 {
		return ErrInvalidBudget
	}
	if e.CategoryID < 1 {
		return ErrInvalidCategory
	}
	if e.BudgetItemID < 1 {
		return ErrInvalidBudgetItem
	}
	if !validPositive(e.Amount) {
		return fmt.Errorf("amount must be at least %s: %w", MinAmount.StringFixed(2), ErrInvalidAmount)
	}
	return e.Date.Validate()
}
