package fakeapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"budgetly/internal/cache"
	"budgetly/internal/core"
)

type userRec struct {
	core.User
	hash []byte
	gen  int
}

type itemRec struct {
	ID         int64
	BudgetID   int64
	CategoryID int64
	Planned    decimal.Decimal
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type incomeRec struct {
	ID        int64
	UserID    int64
	BudgetID  int64
	Amount    decimal.Decimal
	Source    string
	Note      string
	Date      core.Date
	CreatedAt time.Time
	UpdatedAt time.Time
}

type expenseRec struct {
	ID         int64
	UserID     int64
	BudgetID   int64
	CategoryID int64
	ItemID     int64
	Amount     decimal.Decimal
	Merchant   string
	Note       string
	Date       core.Date
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// db is the whole server state. Every handler holds mu for its full duration.
type db struct {
	mu sync.Mutex

	nextID     int64
	users      map[int64]*userRec
	revoked    *cache.Expiring[struct{}]
	categories map[int64]*core.Category
	budgets    map[int64]*core.Budget
	items      map[int64]*itemRec
	incomes    map[int64]*incomeRec
	expenses   map[int64]*expenseRec
}

func newDB(now func() time.Time) *db {
	return &db{
		users:      make(map[int64]*userRec),
		revoked:    cache.NewExpiring[struct{}](now),
		categories: make(map[int64]*core.Category),
		budgets:    make(map[int64]*core.Budget),
		items:      make(map[int64]*itemRec),
		incomes:    make(map[int64]*incomeRec),
		expenses:   make(map[int64]*expenseRec),
	}
}

func (d *db) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *db) userByEmail(email string) *userRec {
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

var defaultCategories = []struct {
	name  string
	typ   core.CategoryType
	color string
}{
	{"Housing", core.CategoryExpense, "#ef4444"},
	{"Groceries", core.CategoryExpense, "#f97316"},
	{"Transportation", core.CategoryExpense, "#eab308"},
	{"Utilities", core.CategoryExpense, "#84cc16"},
	{"Salary", core.CategoryIncome, "#22c55e"},
	{"Emergency Fund", core.CategorySavings, "#3b82f6"},
}

func (d *db) seedCategories(userID int64, now time.Time) {
	for i, c := range defaultCategories {
		id := d.id()
		d.categories[id] = &core.Category{
			ID: id, UserID: userID, Name: c.name, Type: c.typ, Color: c.color,
			SortOrder: i + 1, IsDefault: true, CreatedAt: now, UpdatedAt: now,
		}
	}
}

func (d *db) userCategories(userID int64, filter core.CategoryType) []core.Category {
	out := []core.Category{}
	for _, c := range d.categories {
		if c.UserID == userID && (filter == "" || c.Type == filter) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *db) ownedCategory(userID, id int64) *core.Category {
	if c, ok := d.categories[id]; ok && c.UserID == userID {
		return c
	}
	return nil
}

func (d *db) ownedBudget(userID, id int64) *core.Budget {
	if b, ok := d.budgets[id]; ok && b.UserID == userID {
		return b
	}
	return nil
}

func (d *db) ownedItem(userID, id int64) *itemRec {
	it, ok := d.items[id]
	if !ok || d.ownedBudget(userID, it.BudgetID) == nil {
		return nil
	}
	return it
}

func (d *db) userBudgets(userID int64) []*core.Budget {
	var out []*core.Budget
	for _, b := range d.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month.Time) {
			return out[i].Month.After(out[j].Month.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (d *db) budgetForMonth(userID int64, month core.Date) *core.Budget {
	for _, b := range d.userBudgets(userID) {
		if b.Month.MonthKey() == month.MonthKey() {
			return b
		}
	}
	return nil
}

func (d *db) budgetItems(budgetID int64) []*itemRec {
	var out []*itemRec
	for _, it := range d.items {
		if it.BudgetID == budgetID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *db) budgetIncomes(budgetID int64) []*incomeRec {
	var out []*incomeRec
	for _, in := range d.incomes {
		if in.BudgetID == budgetID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *db) budgetExpenses(budgetID int64) []*expenseRec {
	var out []*expenseRec
	for _, e := range d.expenses {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// deleteBudget cascades to items, incomes and expenses.
func (d *db) deleteBudget(id int64) {
	delete(d.budgets, id)
	for k, it := range d.items {
		if it.BudgetID == id {
			delete(d.items, k)
		}
	}
	for k, in := range d.incomes {
		if in.BudgetID == id {
			delete(d.incomes, k)
		}
	}
	for k, e := range d.expenses {
		if e.BudgetID == id {
			delete(d.expenses, k)
		}
	}
}

func (d *db) deleteItem(id int64) {
	delete(d.items, id)
	for k, e := range d.expenses {
		if e.ItemID == id {
			delete(d.expenses, k)
		}
	}
}

func (d *db) categoryInUse(id int64) bool {
	for _, it := range d.items {
		if it.CategoryID == id {
			return true
		}
	}
	for _, e := range d.expenses {
		if e.CategoryID == id {
			return true
		}
	}
	return false
}
