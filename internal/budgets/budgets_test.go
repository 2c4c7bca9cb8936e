package budgets

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/fakeapi/fakeapitest"
	"budgetly/internal/log"
	"budgetly/internal/state"
)

type countingTransport struct{ n atomic.Int32 }

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

type fixture struct {
	store     *Store
	client    *api.Client
	requests  *countingTransport
	housing   core.Category
	groceries core.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := fakeapitest.Start(t)
	ct := &countingTransport{}
	client, _ := env.Register(t, "ada@example.com", api.WithHTTPClient(&http.Client{Transport: ct}))

	f := &fixture{store: New(client, log.Discard()), client: client, requests: ct}
	cats, err := client.Categories(context.Background(), "")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	for _, c := range cats {
		switch c.Name {
		case "Housing":
			f.housing = c
		case "Groceries":
			f.groceries = c
		}
	}
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed creates a March 2026 budget with two items, one income and one
// expense through the store.
func (f *fixture) seed(t *testing.T) *core.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := f.store.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1), Notes: "March"})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if _, err := f.store.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: f.housing.ID, PlannedAmount: dec("1500")}); err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	food, err := f.store.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: f.groceries.ID, PlannedAmount: dec("400")})
	if err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	if _, err := f.store.CreateIncome(ctx, core.IncomeInput{BudgetID: b.ID, Amount: dec("1900"), Source: "Salary", Date: core.NewDate(2026, 3, 1)}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	if _, err := f.store.CreateExpense(ctx, core.ExpenseInput{
		BudgetID: b.ID, CategoryID: f.groceries.ID, BudgetItemID: food.ID, Amount: dec("120.50"), Date: core.NewDate(2026, 3, 5),
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return b
}

func TestLoadBudgetsTwiceDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.store.LoadBudgets(ctx); err != nil {
			t.Fatalf("LoadBudgets: %v", err)
		}
	}
	st := f.store.Snapshot()
	if len(st.Budgets) != 1 {
		t.Fatalf("got %d budgets", len(st.Budgets))
	}
	if st.Summary == nil || st.Summary.TotalBudgets != 1 || st.Summary.CurrentMonthPlannedAmount != "1900.00" {
		t.Fatalf("summary = %+v", st.Summary)
	}
	if st.Budgets[0].HasDetail() {
		t.Errorf("list view carries nested collections")
	}
}

func TestLoadBudgetByIDFlattensNestedCollections(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)

	if err := f.store.LoadBudgetByID(context.Background(), b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	st := f.store.Snapshot()
	if st.Current == nil || st.Current.ID != b.ID {
		t.Fatalf("current = %+v", st.Current)
	}
	if len(st.Items) != len(st.Current.Items) || len(st.Items) != 2 {
		t.Errorf("items = %d, nested = %d", len(st.Items), len(st.Current.Items))
	}
	if len(st.Incomes) != len(st.Current.Incomes) || len(st.Expenses) != len(st.Current.Expenses) {
		t.Errorf("flat and nested differ: %d/%d incomes, %d/%d expenses",
			len(st.Incomes), len(st.Current.Incomes), len(st.Expenses), len(st.Current.Expenses))
	}
	if st.CurrentSummary == nil || !st.CurrentSummary.IsZeroBased || st.CurrentSummary.ActualSpent != "120.50" {
		t.Errorf("summary = %+v", st.CurrentSummary)
	}
	if len(st.ItemsHealth) != 2 {
		t.Errorf("items health = %+v", st.ItemsHealth)
	}
}

func TestEmptyBudgetDetailYieldsEmptyCollections(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.CreateBudget(context.Background(), core.BudgetInput{Month: core.NewDate(2026, 5, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := f.store.LoadBudgetByID(context.Background(), b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	st := f.store.Snapshot()
	if st.Items == nil || st.Incomes == nil || st.Expenses == nil || st.ItemsHealth == nil {
		t.Fatalf("collections should be empty, not nil: %+v", st)
	}
	if len(st.Items)+len(st.Incomes)+len(st.Expenses) != 0 {
		t.Fatalf("collections not empty")
	}
}

func TestMutationsLeaveSummaryStale(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	before := f.store.Snapshot().CurrentSummary

	if _, err := f.store.CreateIncome(ctx, core.IncomeInput{BudgetID: b.ID, Amount: dec("100"), Source: "Gift", Date: core.NewDate(2026, 3, 9)}); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	st := f.store.Snapshot()
	if st.CurrentSummary != before {
		t.Fatalf("summary replaced by a mutation")
	}
	if len(st.Incomes) != 2 {
		t.Fatalf("income not appended: %d", len(st.Incomes))
	}

	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	if got := f.store.Snapshot().CurrentSummary.TotalIncome; got != "2000.00" {
		t.Fatalf("refetched income = %s", got)
	}
}

func TestPlannedAmountBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.store.CreateBudget(ctx, core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	before := f.requests.n.Load()
	_, err = f.store.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: f.housing.ID, PlannedAmount: dec("0")})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v", err)
	}
	if f.requests.n.Load() != before {
		t.Fatalf("request sent for zero planned amount")
	}
	if st := f.store.Snapshot(); st.Phase != state.Rejected || st.Err == "" {
		t.Fatalf("state = %s %q", st.Phase, st.Err)
	}

	item, err := f.store.CreateBudgetItem(ctx, b.ID, core.BudgetItemInput{CategoryID: f.housing.ID, PlannedAmount: dec("0.01")})
	if err != nil {
		t.Fatalf("CreateBudgetItem(0.01): %v", err)
	}
	if item.PlannedAmount != "0.01" {
		t.Fatalf("planned = %s", item.PlannedAmount)
	}
	if st := f.store.Snapshot(); st.Phase != state.Fulfilled || st.Err != "" {
		t.Fatalf("state = %s %q", st.Phase, st.Err)
	}
}

func TestCreateBudgetItemRequiresBudget(t *testing.T) {
	f := newFixture(t)
	before := f.requests.n.Load()
	_, err := f.store.CreateBudgetItem(context.Background(), 0, core.BudgetItemInput{CategoryID: f.housing.ID, PlannedAmount: dec("10")})
	if !errors.Is(err, core.ErrInvalidBudget) {
		t.Fatalf("err = %v", err)
	}
	if f.requests.n.Load() != before {
		t.Fatalf("request sent without budget")
	}
}

func TestDeleteCurrentBudget(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgets(ctx); err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}

	if err := f.store.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	st := f.store.Snapshot()
	if st.Current != nil || len(st.Items) != 0 || st.Items == nil {
		t.Fatalf("current/items after delete = %+v / %+v", st.Current, st.Items)
	}
	if len(st.Budgets) != 0 {
		t.Fatalf("budget still listed")
	}
}

func TestUpdateAndDeleteTransactions(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	st := f.store.Snapshot()
	exp := st.Expenses[0]
	inc := st.Incomes[0]

	updated, err := f.store.UpdateExpense(ctx, exp.ID, core.ExpenseInput{
		BudgetID: b.ID, CategoryID: exp.CategoryID, BudgetItemID: exp.BudgetItemID,
		Amount: dec("99.99"), Merchant: "Corner shop", Date: exp.Date,
	})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if got := f.store.Snapshot().Expenses[0]; got.Amount != updated.Amount || got.Merchant != "Corner shop" {
		t.Fatalf("expense = %+v", got)
	}

	if err := f.store.DeleteIncome(ctx, inc.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if err := f.store.DeleteExpense(ctx, exp.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	st = f.store.Snapshot()
	if len(st.Incomes) != 0 || len(st.Expenses) != 0 {
		t.Fatalf("transactions not removed: %+v %+v", st.Incomes, st.Expenses)
	}

	item := st.Items[0]
	if _, err := f.store.UpdateBudgetItem(ctx, item.ID, core.BudgetItemInput{CategoryID: item.CategoryID, PlannedAmount: dec("1600")}); err != nil {
		t.Fatalf("UpdateBudgetItem: %v", err)
	}
	if got := f.store.Snapshot().Items[0].PlannedAmount; got != "1600.00" {
		t.Fatalf("planned = %s", got)
	}
	if err := f.store.DeleteBudgetItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteBudgetItem: %v", err)
	}
	if n := len(f.store.Snapshot().Items); n != 1 {
		t.Fatalf("items = %d", n)
	}
}

func TestUpdateBudgetRefreshesCurrent(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgets(ctx); err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	if _, err := f.store.UpdateBudget(ctx, b.ID, core.BudgetInput{Month: b.Month, Notes: "Spring"}); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	st := f.store.Snapshot()
	if st.Current.Notes != "Spring" || st.Budgets[0].Notes != "Spring" {
		t.Fatalf("current = %+v list = %+v", st.Current, st.Budgets)
	}
}

func TestDuplicateMonthSurfacesServerMessage(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	_, err := f.store.CreateBudget(context.Background(), core.BudgetInput{Month: core.NewDate(2026, 3, 1)})
	if err == nil {
		t.Fatalf("expected duplicate month error")
	}
	if got := f.store.Snapshot().Err; got != "Validation failed: A budget already exists for this month." {
		t.Fatalf("Err = %q", got)
	}
}

func TestLoadBudgetsByMonth(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgets(ctx); err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	summary := f.store.Snapshot().Summary

	if err := f.store.LoadBudgetsByMonth(ctx, "2026-04"); err != nil {
		t.Fatalf("LoadBudgetsByMonth: %v", err)
	}
	st := f.store.Snapshot()
	if len(st.Budgets) != 0 || st.Summary != summary {
		t.Fatalf("month load = %+v summary changed = %v", st.Budgets, st.Summary != summary)
	}

	if err := f.store.LoadBudgetsByMonth(ctx, "March"); err == nil {
		t.Fatalf("expected invalid month error")
	}
}

func TestClearBudgets(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t)
	ctx := context.Background()
	if err := f.store.LoadBudgetByID(ctx, b.ID); err != nil {
		t.Fatalf("LoadBudgetByID: %v", err)
	}
	f.store.ClearBudgets()
	st := f.store.Snapshot()
	if st.Current != nil || len(st.Budgets) != 0 || len(st.Items) != 0 {
		t.Fatalf("state after ClearBudgets = %+v", st)
	}
}
