package fakeapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/fakeapi"
	"budgetly/internal/fakeapi/fakeapitest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func categoryByName(t *testing.T, c *api.Client, name string) core.Category {
	t.Helper()
	cats, err := c.Categories(context.Background(), "")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	for _, cat := range cats {
		if cat.Name == name {
			return cat
		}
	}
	t.Fatalf("category %q not found in %+v", name, cats)
	return core.Category{}
}

func TestRegisterSeedsDefaultCategories(t *testing.T) {
	env := fakeapitest.Start(t)
	c, resp := env.Register(t, "ada@example.com")

	if resp.Token == "" || resp.TokenType != "Bearer" {
		t.Fatalf("auth response = %+v", resp)
	}
	cats, err := c.Categories(context.Background(), "")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 6 {
		t.Fatalf("got %d categories, want 6", len(cats))
	}
	for _, cat := range cats {
		if !cat.IsDefault {
			t.Errorf("%s is not default", cat.Name)
		}
	}

	savings, err := c.Categories(context.Background(), core.CategorySavings)
	if err != nil {
		t.Fatalf("Categories(savings): %v", err)
	}
	if len(savings) != 1 || savings[0].Name != "Emergency Fund" {
		t.Fatalf("savings = %+v", savings)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := fakeapitest.Start(t)
	env.Register(t, "ada@example.com")

	_, err := env.Client(t).Register(context.Background(), core.RegisterCredentials{
		Name: "Ada", Email: "ADA@example.com", Password: "password123", PasswordConfirmation: "password123",
	})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v", err)
	}
	if apiErr.FieldError("email") == "" {
		t.Fatalf("missing email error: %+v", apiErr.Errors)
	}
}

func TestLoginWithBadCredentialsIsNotUnauthorized(t *testing.T) {
	env := fakeapitest.Start(t)
	env.Register(t, "ada@example.com")

	_, err := env.Client(t).Login(context.Background(), core.LoginCredentials{Email: "ada@example.com", Password: "wrong-password"})
	if api.IsUnauthorized(err) {
		t.Fatalf("bad credentials reported as unauthorized: %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Message != "Validation failed" || apiErr.FieldError("email") == "" {
		t.Fatalf("err = %+v", apiErr)
	}

	resp, err := env.Client(t).Login(context.Background(), core.LoginCredentials{Email: "ada@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.Email != "ada@example.com" {
		t.Fatalf("user = %+v", resp.User)
	}
}

func TestLogoutRevokesOnlyThatToken(t *testing.T) {
	env := fakeapitest.Start(t)
	first, _ := env.Register(t, "ada@example.com")

	second := env.Client(t)
	resp, err := second.Login(context.Background(), core.LoginCredentials{Email: "ada@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second.SetTokenSource(fakeapitest.Token(resp.Token))

	if err := first.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := first.Profile(context.Background()); !api.IsUnauthorized(err) {
		t.Fatalf("revoked token still accepted: %v", err)
	}
	if _, err := second.Profile(context.Background()); err != nil {
		t.Fatalf("other token rejected: %v", err)
	}
}

func TestLogoutAllRevokesEveryToken(t *testing.T) {
	env := fakeapitest.Start(t)
	first, _ := env.Register(t, "ada@example.com")

	second := env.Client(t)
	resp, err := second.Login(context.Background(), core.LoginCredentials{Email: "ada@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second.SetTokenSource(fakeapitest.Token(resp.Token))

	if err := first.LogoutAll(context.Background()); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	for _, c := range []*api.Client{first, second} {
		if _, err := c.Profile(context.Background()); !api.IsUnauthorized(err) {
			t.Fatalf("token survived logout-all: %v", err)
		}
	}
}

func TestTokenExpires(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")

	env.Clock.Advance(25 * time.Hour)
	if _, err := c.Profile(context.Background()); !api.IsUnauthorized(err) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")

	err := c.UpdatePassword(context.Background(), core.PasswordInput{
		CurrentPassword: "nope", NewPassword: "new-password", NewPasswordConfirmation: "new-password",
	})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.FieldError("current_password") == "" {
		t.Fatalf("err = %v", err)
	}

	err = c.UpdatePassword(context.Background(), core.PasswordInput{
		CurrentPassword: "password123", NewPassword: "new-password", NewPasswordConfirmation: "new-password",
	})
	if err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := env.Client(t).Login(context.Background(), core.LoginCredentials{Email: "ada@example.com", Password: "new-password"}); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestDeleteCategoryRules(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	ctx := context.Background()

	housing := categoryByName(t, c, "Housing")
	var apiErr *api.Error
	if err := c.DeleteCategory(ctx, housing.ID); !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("deleting default category: %v", err)
	}

	pets, err := c.CreateCategory(ctx, core.CategoryInput{Name: "Pets", Type: core.CategoryExpense, SortOrder: 10})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	budget, err := c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if _, err := c.CreateBudgetItem(ctx, budget.ID, core.BudgetItemInput{CategoryID: pets.ID, PlannedAmount: dec("50")}); err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	if err := c.DeleteCategory(ctx, pets.ID); !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("deleting category in use: %v", err)
	}

	if err := c.DeleteBudget(ctx, budget.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := c.DeleteCategory(ctx, pets.ID); err != nil {
		t.Fatalf("DeleteCategory after budget removal: %v", err)
	}
}

func TestBudgetMonthIsUnique(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	ctx := context.Background()

	b, err := c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 17)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if got := b.Month.String(); got != "2026-03-01" {
		t.Fatalf("month = %s, want first of month", got)
	}

	_, err = c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.FieldError("month") != "A budget already exists for this month." {
		t.Fatalf("err = %v", err)
	}
}

func TestOtherUsersDataIsNotFound(t *testing.T) {
	env := fakeapitest.Start(t)
	ada, _ := env.Register(t, "ada@example.com")
	bob, _ := env.Register(t, "bob@example.com")

	b, err := ada.CreateBudget(context.Background(), core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	_, err = bob.Budget(context.Background(), b.ID)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "Resource not found" {
		t.Fatalf("err = %v", err)
	}
}

// seedMarch builds a March 2026 budget: 3000 income, Housing 1500 planned
// with nothing spent, Groceries 400 planned with 450 spent.
func seedMarch(t *testing.T, c *api.Client) *core.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1), Notes: "March"})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	housing := categoryByName(t, c, "Housing")
	groceries := categoryByName(t, c, "Groceries")

	if _, err := c.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: housing.ID, PlannedAmount: dec("1500")}); err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	food, err := c.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: groceries.ID, PlannedAmount: dec("400")})
	if err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	if _, err := c.CreateIncome(ctx, core.IncomeInput{BudgetID: b.ID, Amount: dec("3000"), Source: "Salary", Date: core.NewDate(2026, 3, 1)}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	for _, amt := range []string{"200", "250"} {
		_, err := c.CreateExpense(ctx, core.ExpenseInput{
			BudgetID: b.ID, CategoryID: groceries.ID, BudgetItemID: food.ID,
			Amount: dec(amt), Merchant: "Market", Date: core.NewDate(2026, 3, 10),
		})
		if err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}
	return b
}

func TestBudgetDetailDerivedValues(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	b := seedMarch(t, c)

	detail, err := c.Budget(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if len(detail.Budget.Items) != 2 || len(detail.Budget.Incomes) != 1 || len(detail.Budget.Expenses) != 2 {
		t.Fatalf("nested = %d items, %d incomes, %d expenses",
			len(detail.Budget.Items), len(detail.Budget.Incomes), len(detail.Budget.Expenses))
	}

	food := detail.Budget.Items[1]
	if food.SpentAmount != "450.00" || food.RemainingAmount != "-50.00" {
		t.Errorf("food spent/remaining = %s/%s", food.SpentAmount, food.RemainingAmount)
	}
	if food.Status != core.OverBudget || food.UtilizationPercentage != 112.5 {
		t.Errorf("food status = %s %.2f", food.Status, food.UtilizationPercentage)
	}
	for _, it := range detail.Budget.Items {
		if !it.StatusConsistent() {
			t.Errorf("item %d status inconsistent: %+v", it.ID, it)
		}
	}

	s := detail.Summary
	want := core.BudgetDetailSummary{
		TotalPlanned: "1900.00", ActualSpent: "450.00", TotalIncome: "3000.00", TotalExpenses: "450.00",
		Savings: "0.00", Balance: "1450.00", UnallocatedIncome: "1100.00",
		OverBudgetItemsCount: 1, UnderBudgetItemsCount: 1,
		BudgetHealthScore: 75, IsZeroBased: false,
	}
	if *s != want {
		t.Errorf("summary = %+v\nwant %+v", *s, want)
	}
	if len(detail.ItemsHealth) != 2 || detail.ItemsHealth[1].Category != "Groceries" {
		t.Errorf("items health = %+v", detail.ItemsHealth)
	}
}

func TestEmptyBudgetDetailHasEmptyCollections(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	b, err := c.CreateBudget(context.Background(), core.BudgetInput{Month: core.NewDate(2026, 4, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	list, err := c.Budgets(context.Background())
	if err != nil {
		t.Fatalf("Budgets: %v", err)
	}
	if len(list.Budgets) != 1 || list.Budgets[0].HasDetail() {
		t.Fatalf("list view = %+v", list.Budgets)
	}

	detail, err := c.Budget(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if detail.Budget.Items == nil || detail.Budget.Incomes == nil || detail.Budget.Expenses == nil {
		t.Fatalf("detail collections should be empty, not absent: %+v", detail.Budget)
	}
	if detail.Summary.IsZeroBased != true || detail.Summary.BudgetHealthScore != 100 {
		t.Errorf("summary = %+v", detail.Summary)
	}
}

func TestExpenseItemMustBelongToBudget(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	ctx := context.Background()
	march := seedMarch(t, c)

	april, err := c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 4, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	detail, err := c.Budget(ctx, march.ID)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	item := detail.Budget.Items[0]

	_, err = c.CreateExpense(ctx, core.ExpenseInput{
		BudgetID: april.ID, CategoryID: item.CategoryID, BudgetItemID: item.ID,
		Amount: dec("10"), Date: core.NewDate(2026, 4, 2),
	})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.FieldError("budget_item_id") == "" {
		t.Fatalf("err = %v", err)
	}
}

func TestPlannedAmountMinimum(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	ctx := context.Background()
	b, err := c.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	cat := categoryByName(t, c, "Utilities")

	_, err = c.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: cat.ID, PlannedAmount: dec("0")})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.FieldError("planned_amount") == "" {
		t.Fatalf("zero planned amount: %v", err)
	}
	it, err := c.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: cat.ID, PlannedAmount: dec("0.01")})
	if err != nil {
		t.Fatalf("0.01 planned amount: %v", err)
	}
	if it.PlannedAmount != "0.01" {
		t.Fatalf("planned = %s", it.PlannedAmount)
	}
}

func TestDashboardAggregates(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")
	seedMarch(t, c)

	d, err := c.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	cm := d.Overview.CurrentMonth
	if cm.Income != "3000.00" || cm.Expenses != "450.00" || cm.Net != "2550.00" {
		t.Errorf("current month = %+v", cm)
	}
	if cm.IncomeChangePercentage != 100 || cm.ExpenseChangePercentage != 100 {
		t.Errorf("change = %v/%v", cm.IncomeChangePercentage, cm.ExpenseChangePercentage)
	}
	if d.Overview.AllTime != cm.PeriodFigures {
		t.Errorf("all time = %+v", d.Overview.AllTime)
	}
	if d.RecentTransactions == nil || len(d.RecentTransactions.Expenses) != 2 || len(d.RecentTransactions.Incomes) != 1 {
		t.Fatalf("recent = %+v", d.RecentTransactions)
	}
	if len(d.TopSpendingCategories) != 1 || d.TopSpendingCategories[0].Category.Name != "Groceries" {
		t.Errorf("top = %+v", d.TopSpendingCategories)
	}
	if len(d.ActiveBudgets) != 1 {
		t.Fatalf("active budgets = %+v", d.ActiveBudgets)
	}
	ab := d.ActiveBudgets[0]
	if ab.Name != "March" || ab.Status != core.BudgetHealthy || ab.PercentageUsed != 23.68 {
		t.Errorf("active budget = %+v", ab)
	}
	if ab.Period.EndDate.String() != "2026-03-31" || len(ab.CategoryBreakdown) != 2 {
		t.Errorf("period/breakdown = %+v", ab)
	}
}

func TestCurrentMonthStats(t *testing.T) {
	env := fakeapitest.Start(t)
	c, _ := env.Register(t, "ada@example.com")

	stats, err := c.CurrentMonthBudgetStats(context.Background())
	if err != nil {
		t.Fatalf("CurrentMonthBudgetStats: %v", err)
	}
	if stats.HasBudget || stats.Message != "No budget found for the current month" || stats.Summary != nil {
		t.Fatalf("stats without budget = %+v", stats)
	}

	seedMarch(t, c)
	stats, err = c.CurrentMonthBudgetStats(context.Background())
	if err != nil {
		t.Fatalf("CurrentMonthBudgetStats: %v", err)
	}
	if !stats.HasBudget || stats.Budget == nil || stats.Velocity == nil || stats.CategoryHealth == nil {
		t.Fatalf("stats = %+v", stats)
	}
	p := stats.Budget.Period
	if p.DaysTotal != 31 || p.DaysElapsed != 15 || p.DaysRemaining != 16 {
		t.Errorf("period = %+v", p)
	}
	v := stats.Velocity
	if v.DailyBudget != "61.29" || v.ActualDailySpending != "30.00" || v.ProjectedMonthEndSpending != "930.00" || !v.OnTrack {
		t.Errorf("velocity = %+v", v)
	}
	h := stats.CategoryHealth
	if h.TotalCategories != 2 || h.HealthyCategories != 1 || h.OverBudgetCategories != 1 {
		t.Errorf("category health = %+v", h)
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := fakeapi.NewServer("", fakeapi.Options{AuthRateLimit: 2})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	body := `{"email":"nobody@example.com","password":"x"}`
	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
		s.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d", last)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := fakeapi.NewServer("", fakeapi.Options{})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing security headers")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := fakeapi.NewServer("", fakeapi.Options{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/budgets", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/budgets", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
