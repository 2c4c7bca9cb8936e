package fakeapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

const msgDuplicateMonth = "A budget already exists for this month."

func (s *Server) budgetList(userID int64) []core.Budget {
	out := []core.Budget{}
	for _, b := range s.db.userBudgets(userID) {
		out = append(out, *b)
	}
	return out
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	ok(w, http.StatusOK, "", core.BudgetList{
		Budgets: s.budgetList(userID),
		Summary: s.db.listSummary(userID, s.now()),
	})
}

func (s *Server) handleBudgetsByMonth(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		invalid(w, r, fieldErrors{"month": {"The month must be formatted as YYYY-MM."}})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []core.Budget{}
	for _, b := range s.budgetList(currentUser(r).user.ID) {
		if b.Month.MonthKey() == month.MonthKey() {
			out = append(out, b)
		}
	}
	ok(w, http.StatusOK, "", out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b := s.db.ownedBudget(currentUser(r).user.ID, id)
	if b == nil {
		notFound(w)
		return
	}
	ok(w, http.StatusOK, "", s.db.budgetDetail(b))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Month.IsZero() {
		invalid(w, r, fieldErrors{"month": {"The month field is required."}})
		return
	}
	month := in.Month.FirstOfMonth()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	if s.db.budgetForMonth(userID, month) != nil {
		invalid(w, r, fieldErrors{"month": {msgDuplicateMonth}})
		return
	}

	now := s.now()
	b := &core.Budget{ID: s.db.id(), UserID: userID, Month: month, Notes: in.Notes, CreatedAt: now, UpdatedAt: now}
	s.db.budgets[b.ID] = b
	s.logger.Info("Budget created", log.FieldBudgetID, b.ID, log.FieldMonth, month.MonthKey())
	ok(w, http.StatusCreated, "Budget created successfully", *b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	var in core.BudgetInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	b := s.db.ownedBudget(userID, id)
	if b == nil {
		notFound(w)
		return
	}
	if !in.Month.IsZero() {
		month := in.Month.FirstOfMonth()
		if other := s.db.budgetForMonth(userID, month); other != nil && other.ID != id {
			invalid(w, r, fieldErrors{"month": {msgDuplicateMonth}})
			return
		}
		b.Month = month
	}
	b.Notes = in.Notes
	b.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Budget updated successfully", *b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.ownedBudget(currentUser(r).user.ID, id) == nil {
		notFound(w)
		return
	}
	s.db.deleteBudget(id)
	ok(w, http.StatusOK, "Budget deleted successfully", nil)
}

func (s *Server) validateItem(userID int64, in core.BudgetItemInput) fieldErrors {
	errs := fieldErrors{}
	if s.db.ownedCategory(userID, in.CategoryID) == nil {
		errs.add("category_id", "The selected category id is invalid.")
	}
	if in.PlannedAmount.LessThan(core.MinAmount) {
		errs.add("planned_amount", "The planned amount field must be at least 0.01.")
	}
	return errs
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	budgetID, found := pathID(w, r)
	if !found {
		return
	}
	var in core.BudgetItemInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	if s.db.ownedBudget(userID, budgetID) == nil {
		notFound(w)
		return
	}
	if errs := s.validateItem(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	now := s.now()
	it := &itemRec{
		ID: s.db.id(), BudgetID: budgetID, CategoryID: in.CategoryID,
		Planned: in.PlannedAmount, Notes: in.Notes, CreatedAt: now, UpdatedAt: now,
	}
	s.db.items[it.ID] = it
	ok(w, http.StatusCreated, "Budget item created successfully", s.db.itemView(it))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	var in core.BudgetItemInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	it := s.db.ownedItem(userID, id)
	if it == nil {
		notFound(w)
		return
	}
	if errs := s.validateItem(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	it.CategoryID = in.CategoryID
	it.Planned = in.PlannedAmount
	it.Notes = in.Notes
	it.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Budget item updated successfully", s.db.itemView(it))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.ownedItem(currentUser(r).user.ID, id) == nil {
		notFound(w)
		return
	}
	s.db.deleteItem(id)
	ok(w, http.StatusOK, "Budget item deleted successfully", nil)
}
