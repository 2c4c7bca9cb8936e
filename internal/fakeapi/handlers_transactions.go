package fakeapi

import (
	"net/http"
	"strings"

	"budgetly/internal/core"
)

func (s *Server) validateIncome(userID int64, in core.IncomeInput) fieldErrors {
	errs := fieldErrors{}
	if s.db.ownedBudget(userID, in.BudgetID) == nil {
		errs.add("budget_id", "The selected budget id is invalid.")
	}
	if in.Amount.LessThan(core.MinAmount) {
		errs.add("amount", "The amount field must be at least 0.01.")
	}
	if blank(in.Source) {
		errs.add("source", "The source field is required.")
	}
	if in.Date.IsZero() {
		errs.add("date", "The date field is required.")
	}
	return errs
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var in core.IncomeInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	if errs := s.validateIncome(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	now := s.now()
	rec := &incomeRec{
		ID: s.db.id(), UserID: userID, BudgetID: in.BudgetID, Amount: in.Amount,
		Source: strings.TrimSpace(in.Source), Note: in.Note, Date: in.Date, CreatedAt: now, UpdatedAt: now,
	}
	s.db.incomes[rec.ID] = rec
	ok(w, http.StatusCreated, "Income created successfully", incomeView(rec))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	var in core.IncomeInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	rec, exists := s.db.incomes[id]
	if !exists || rec.UserID != userID {
		notFound(w)
		return
	}
	if errs := s.validateIncome(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	rec.BudgetID = in.BudgetID
	rec.Amount = in.Amount
	rec.Source = strings.TrimSpace(in.Source)
	rec.Note = in.Note
	rec.Date = in.Date
	rec.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Income updated successfully", incomeView(rec))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, exists := s.db.incomes[id]
	if !exists || rec.UserID != currentUser(r).user.ID {
		notFound(w)
		return
	}
	delete(s.db.incomes, id)
	ok(w, http.StatusOK, "Income deleted successfully", nil)
}

// validateExpense also checks that the budget item belongs to the budget
// and carries the expense's category.
func (s *Server) validateExpense(userID int64, in core.ExpenseInput) fieldErrors {
	errs := fieldErrors{}
	if s.db.ownedBudget(userID, in.BudgetID) == nil {
		errs.add("budget_id", "The selected budget id is invalid.")
	}
	if s.db.ownedCategory(userID, in.CategoryID) == nil {
		errs.add("category_id", "The selected category id is invalid.")
	}
	if it := s.db.ownedItem(userID, in.BudgetItemID); it == nil || it.BudgetID != in.BudgetID {
		errs.add("budget_item_id", "The selected budget item does not belong to this budget.")
	} else if it.CategoryID != in.CategoryID {
		errs.add("category_id", "The category does not match the budget item.")
	}
	if in.Amount.LessThan(core.MinAmount) {
		errs.add("amount", "The amount field must be at least 0.01.")
	}
	if in.Date.IsZero() {
		errs.add("date", "The date field is required.")
	}
	return errs
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	if errs := s.validateExpense(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	now := s.now()
	rec := &expenseRec{
		ID: s.db.id(), UserID: userID, BudgetID: in.BudgetID, CategoryID: in.CategoryID, ItemID: in.BudgetItemID,
		Amount: in.Amount, Merchant: in.Merchant, Note: in.Note, Date: in.Date, CreatedAt: now, UpdatedAt: now,
	}
	s.db.expenses[rec.ID] = rec
	ok(w, http.StatusCreated, "Expense created successfully", s.db.expenseView(rec))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	var in core.ExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	rec, exists := s.db.expenses[id]
	if !exists || rec.UserID != userID {
		notFound(w)
		return
	}
	if errs := s.validateExpense(userID, in); errs.any() {
		invalid(w, r, errs)
		return
	}

	rec.BudgetID = in.BudgetID
	rec.CategoryID = in.CategoryID
	rec.ItemID = in.BudgetItemID
	rec.Amount = in.Amount
	rec.Merchant = in.Merchant
	rec.Note = in.Note
	rec.Date = in.Date
	rec.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Expense updated successfully", s.db.expenseView(rec))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, exists := s.db.expenses[id]
	if !exists || rec.UserID != currentUser(r).user.ID {
		notFound(w)
		return
	}
	delete(s.db.expenses, id)
	ok(w, http.StatusOK, "Expense deleted successfully", nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ok(w, http.StatusOK, "", s.db.dashboard(currentUser(r).user.ID, s.now()))
}

func (s *Server) handleCurrentMonthStats(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ok(w, http.StatusOK, "", s.db.currentMonthStats(currentUser(r).user.ID, s.now()))
}
