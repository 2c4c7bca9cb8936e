// Package budgets is the central CRUD surface for budgets and their items,
// incomes and expenses.
//
// Mutations patch the flat collections in place (append on create, replace
// by id on update, filter by id on delete) but never touch the server-derived
// summary or item health. Those stay stale until LoadBudgetByID runs again,
// which callers must do after every write they want reflected.
package budgets

import (
	"context"
	"slices"
	"sync"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/state"
)

type BudgetAPI interface {
	Budgets(ctx context.Context) (*core.BudgetList, error)
	BudgetsByMonth(ctx context.Context, month string) ([]core.Budget, error)
	Budget(ctx context.Context, id int64) (*core.BudgetDetail, error)
	CreateBudget(ctx context.Context, in core.BudgetInput) (*core.Budget, error)
	UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (*core.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error

	CreateBudgetItem(ctx context.Context, budgetID int64, in core.BudgetItemInput) (*core.BudgetItem, error)
	UpdateBudgetItem(ctx context.Context, id int64, in core.BudgetItemInput) (*core.BudgetItem, error)
	DeleteBudgetItem(ctx context.Context, id int64) error

	CreateIncome(ctx context.Context, in core.IncomeInput) (*core.Income, error)
	UpdateIncome(ctx context.Context, id int64, in core.IncomeInput) (*core.Income, error)
	DeleteIncome(ctx context.Context, id int64) error

	CreateExpense(ctx context.Context, in core.ExpenseInput) (*core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (*core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

type Filters struct {
	Month string
}

// State is an immutable snapshot. Slices must not be mutated by readers.
type State struct {
	Budgets        []core.Budget
	Current        *core.Budget
	Items          []core.BudgetItem
	Incomes        []core.Income
	Expenses       []core.Expense
	Summary        *core.BudgetListSummary
	CurrentSummary *core.BudgetDetailSummary
	ItemsHealth    []core.BudgetItemHealth
	Phase          state.Phase
	Err            string
	Filters        Filters
}

type Store struct {
	api    BudgetAPI
	logger *log.Logger

	mu    sync.RWMutex
	state State
	obs   state.Observable[State]
}

func New(client BudgetAPI, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{api: client, logger: logger.WithComponent(log.ComponentBudgets)}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Subscribe(fn func(State)) func() {
	return s.obs.Subscribe(fn)
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()
	s.obs.Notify(snap)
}

func (s *Store) pending() {
	s.update(func(st *State) {
		st.Phase = state.Pending
		st.Err = ""
	})
}

func (s *Store) reject(ctx context.Context, op string, fields log.LogFields, err error) error {
	msg := api.FormatError(err)
	s.update(func(st *State) {
		st.Phase = state.Rejected
		st.Err = msg
	})
	log.NewStructuredLogger(s.logger).LogRejected(ctx, op, err, fields)
	return err
}

func (s *Store) fulfil(fn func(*State)) {
	s.update(func(st *State) {
		fn(st)
		st.Phase = state.Fulfilled
		st.Err = ""
	})
}

func replaceByID[T any](list []T, v T, id func(T) int64) []T {
	out := slices.Clone(list)
	for i := range out {
		if id(out[i]) == id(v) {
			out[i] = v
		}
	}
	return out
}

func removeByID[T any](list []T, target int64, id func(T) int64) []T {
	return slices.DeleteFunc(slices.Clone(list), func(v T) bool { return id(v) == target })
}

func appendCopy[T any](list []T, v T) []T {
	return append(slices.Clone(list), v)
}

func budgetID(b core.Budget) int64   { return b.ID }
func itemID(i core.BudgetItem) int64 { return i.ID }
func incomeID(i core.Income) int64   { return i.ID }
func expenseID(e core.Expense) int64 { return e.ID }
