package fakeapi

import (
	"net/http"
	"strings"

	"budgetly/internal/core"
)

func validateCategory(in core.CategoryInput) fieldErrors {
	errs := fieldErrors{}
	if blank(in.Name) {
		errs.add("name", "The name field is required.")
	} else if len(in.Name) > 255 {
		errs.add("name", "The name field must not be greater than 255 characters.")
	}
	if !in.Type.Valid() {
		errs.add("type", "The selected type is invalid.")
	}
	if in.SortOrder < 0 {
		errs.add("sort_order", "The sort order field must be at least 0.")
	}
	return errs
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	filter := core.CategoryType(r.URL.Query().Get("type"))
	if filter != "" && !filter.Valid() {
		invalid(w, r, fieldErrors{"type": {"The selected type is invalid."}})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ok(w, http.StatusOK, "", s.db.userCategories(currentUser(r).user.ID, filter))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c := s.db.ownedCategory(currentUser(r).user.ID, id)
	if c == nil {
		notFound(w)
		return
	}
	ok(w, http.StatusOK, "", *c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in core.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if errs := validateCategory(in); errs.any() {
		invalid(w, r, errs)
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	if s.nameTaken(userID, 0, in.Name) {
		invalid(w, r, fieldErrors{"name": {"The name has already been taken."}})
		return
	}

	now := s.now()
	c := &core.Category{
		ID: s.db.id(), UserID: userID, Name: strings.TrimSpace(in.Name), Type: in.Type,
		SortOrder: in.SortOrder, IsDefault: in.IsDefault, CreatedAt: now, UpdatedAt: now,
	}
	s.db.categories[c.ID] = c
	ok(w, http.StatusCreated, "Category created successfully", *c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	var in core.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	userID := currentUser(r).user.ID
	c := s.db.ownedCategory(userID, id)
	if c == nil {
		notFound(w)
		return
	}
	errs := validateCategory(in)
	if !errs.any() && s.nameTaken(userID, id, in.Name) {
		errs.add("name", "The name has already been taken.")
	}
	if errs.any() {
		invalid(w, r, errs)
		return
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Type = in.Type
	c.SortOrder = in.SortOrder
	c.IsDefault = in.IsDefault
	c.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Category updated successfully", *c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, found := pathID(w, r)
	if !found {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c := s.db.ownedCategory(currentUser(r).user.ID, id)
	switch {
	case c == nil:
		notFound(w)
	case c.IsDefault:
		fail(w, http.StatusForbidden, "Default categories cannot be deleted")
	case s.db.categoryInUse(id):
		invalid(w, r, fieldErrors{"category": {"The category is used by budget items or expenses."}})
	default:
		delete(s.db.categories, id)
		ok(w, http.StatusOK, "Category deleted successfully", nil)
	}
}

// nameTaken reports whether another category of the user already has name.
func (s *Server) nameTaken(userID, exceptID int64, name string) bool {
	for _, c := range s.db.categories {
		if c.UserID == userID && c.ID != exceptID && strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
