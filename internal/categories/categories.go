// Package categories caches the user's category catalog.
package categories

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/state"
)

type CategoryAPI interface {
	Categories(ctx context.Context, filter core.CategoryType) ([]core.Category, error)
	Category(ctx context.Context, id int64) (*core.Category, error)
	CreateCategory(ctx context.Context, in core.CategoryInput) (*core.Category, error)
	UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (*core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// State is an immutable snapshot. Categories must not be mutated by readers.
type State struct {
	Categories []core.Category
	Current    *core.Category
	Filter     core.CategoryType
	Phase      state.Phase
	Err        string
}

func (s State) byType(t core.CategoryType) []core.Category {
	var out []core.Category
	for _, c := range s.Categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func (s State) Expense() []core.Category { return s.byType(core.CategoryExpense) }
func (s State) Income() []core.Category  { return s.byType(core.CategoryIncome) }
func (s State) Savings() []core.Category { return s.byType(core.CategorySavings) }

func (s State) Defaults() []core.Category {
	var out []core.Category
	for _, c := range s.Categories {
		if c.IsDefault {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the cached category with the given id.
func (s State) Find(id int64) (core.Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

type Store struct {
	api    CategoryAPI
	logger *log.Logger

	mu    sync.RWMutex
	state State
	obs   state.Observable[State]
}

func New(client CategoryAPI, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{api: client, logger: logger.WithComponent(log.ComponentCategories)}
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

func (s *Store) reject(ctx context.Context, op string, id int64, err error) error {
	msg := api.FormatError(err)
	s.update(func(st *State) {
		st.Phase = state.Rejected
		st.Err = msg
	})
	log.NewStructuredLogger(s.logger).LogRejected(ctx, op, err, log.NewFields().WithEntity(id))
	return err
}

// fulfil applies fn and marks the operation done. fn works on a copy of the
// list so published snapshots stay immutable.
func (s *Store) fulfil(fn func(*State)) {
	s.update(func(st *State) {
		st.Categories = slices.Clone(st.Categories)
		fn(st)
		st.Phase = state.Fulfilled
		st.Err = ""
	})
}

// Load replaces the cached list with the server result for filter ("" for all).
func (s *Store) Load(ctx context.Context, filter core.CategoryType) error {
	if filter != "" && !filter.Valid() {
		return s.reject(ctx, log.OpList, 0, fmt.Errorf("%w: %q", core.ErrInvalidCategoryType, filter))
	}
	s.pending()
	list, err := s.api.Categories(ctx, filter)
	if err != nil {
		return s.reject(ctx, log.OpList, 0, err)
	}
	s.update(func(st *State) {
		st.Categories = list
		st.Phase = state.Fulfilled
		st.Err = ""
	})
	s.logger.DebugContext(ctx, "Categories loaded", log.FieldCount, len(list), "filter", string(filter))
	return nil
}

// Get loads one category into Current.
func (s *Store) Get(ctx context.Context, id int64) error {
	s.pending()
	c, err := s.api.Category(ctx, id)
	if err != nil {
		return s.reject(ctx, log.OpRead, id, err)
	}
	s.update(func(st *State) {
		st.Current = c
		st.Phase = state.Fulfilled
		st.Err = ""
	})
	return nil
}

func (s *Store) Add(ctx context.Context, in core.CategoryInput) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpCreate, 0, err)
	}
	s.pending()
	c, err := s.api.CreateCategory(ctx, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpCreate, 0, err)
	}
	s.fulfil(func(st *State) { st.Categories = append(st.Categories, *c) })
	s.logger.InfoContext(ctx, "Category created", log.FieldEntityID, c.ID, "name", c.Name)
	return c, nil
}

func (s *Store) Edit(ctx context.Context, id int64, in core.CategoryInput) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, s.reject(ctx, log.OpUpdate, id, err)
	}
	s.pending()
	c, err := s.api.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, s.reject(ctx, log.OpUpdate, id, err)
	}
	s.fulfil(func(st *State) {
		for i := range st.Categories {
			if st.Categories[i].ID == c.ID {
				st.Categories[i] = *c
			}
		}
		if st.Current != nil && st.Current.ID == c.ID {
			st.Current = c
		}
	})
	s.logger.InfoContext(ctx, "Category updated", log.FieldEntityID, c.ID)
	return c, nil
}

// Remove deletes a category. Default categories are guarded by the server,
// not here.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.pending()
	if err := s.api.DeleteCategory(ctx, id); err != nil {
		return s.reject(ctx, log.OpDelete, id, err)
	}
	s.fulfil(func(st *State) {
		st.Categories = slices.DeleteFunc(st.Categories, func(c core.Category) bool { return c.ID == id })
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
		}
	})
	s.logger.InfoContext(ctx, "Category deleted", log.FieldEntityID, id)
	return nil
}

func (s *Store) SetCurrent(c *core.Category) {
	s.update(func(st *State) { st.Current = c })
}

func (s *Store) SetFilter(t core.CategoryType) {
	s.update(func(st *State) { st.Filter = t })
}

func (s *Store) Clear() {
	s.update(func(st *State) {
		st.Categories = nil
		st.Current = nil
		st.Err = ""
	})
}

func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}
