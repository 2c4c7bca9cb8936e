package fakeapi

import (
	"net/http"
	"net/mail"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

const minPasswordLen = 8

type authPayload struct {
	User      core.User `json:"user"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterCredentials
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	errs := fieldErrors{}
	if blank(in.Name) {
		errs.add("name", "The name field is required.")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		errs.add("email", "The email field must be a valid email address.")
	} else if s.db.userByEmail(in.Email) != nil {
		errs.add("email", "The email has already been taken.")
	}
	if len(in.Password) < minPasswordLen {
		errs.add("password", "The password field must be at least 8 characters.")
	} else if in.Password != in.PasswordConfirmation {
		errs.add("password", "The password field confirmation does not match.")
	}
	if errs.any() {
		invalid(w, r, errs)
		return
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", log.FieldError, err.Error())
		fail(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	now := s.now()
	u := &userRec{
		User: core.User{
			ID: s.db.id(), Name: in.Name, Email: in.Email,
			CurrencyCode: "USD", Timezone: "UTC",
			CreatedAt: now, UpdatedAt: now,
		},
		hash: hash,
	}
	s.db.users[u.ID] = u
	s.db.seedCategories(u.ID, now)

	token, err := s.issueToken(u)
	if err != nil {
		s.logger.Error("Failed to sign token", log.FieldError, err.Error())
		fail(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	s.logger.Info("User registered", log.FieldUserID, u.ID)
	ok(w, http.StatusCreated, "User registered successfully", authPayload{User: u.User, Token: token, TokenType: "Bearer"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in core.LoginCredentials
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	errs := fieldErrors{}
	if blank(in.Email) {
		errs.add("email", "The email field is required.")
	}
	if in.Password == "" {
		errs.add("password", "The password field is required.")
	}
	if errs.any() {
		invalid(w, r, errs)
		return
	}

	// Bad credentials are a validation failure, not a 401, so clients do not
	// mistake them for an expired session.
	u := s.db.userByEmail(in.Email)
	if u == nil || !checkPassword(u.hash, in.Password) {
		invalid(w, r, fieldErrors{"email": {"The provided credentials are incorrect."}})
		return
	}

	token, err := s.issueToken(u)
	if err != nil {
		s.logger.Error("Failed to sign token", log.FieldError, err.Error())
		fail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	ok(w, http.StatusOK, "Login successful", authPayload{User: u.User, Token: token, TokenType: "Bearer"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := currentUser(r)
	// Revocation only has to outlive the token itself.
	s.db.revoked.Set(p.claims.ID, struct{}{}, p.claims.ExpiresAt.Time)
	ok(w, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p := currentUser(r)
	s.db.mu.Lock()
	p.user.gen++
	s.db.mu.Unlock()
	ok(w, http.StatusOK, "Logged out from all devices", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ok(w, http.StatusOK, "", currentUser(r).user.User)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in core.ProfileInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u := currentUser(r).user

	errs := fieldErrors{}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			errs.add("email", "The email field must be a valid email address.")
		} else if other := s.db.userByEmail(in.Email); other != nil && other.ID != u.ID {
			errs.add("email", "The email has already been taken.")
		}
	}
	if in.CurrencyCode != "" && len(in.CurrencyCode) != 3 {
		errs.add("currency_code", "The currency code field must be 3 characters.")
	}
	if errs.any() {
		invalid(w, r, errs)
		return
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.CurrencyCode != "" {
		u.CurrencyCode = in.CurrencyCode
	}
	if in.Timezone != "" {
		u.Timezone = in.Timezone
	}
	if in.Avatar != "" {
		u.Avatar = in.Avatar
	}
	u.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Profile updated successfully", u.User)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var in core.PasswordInput
	if !decodeBody(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u := currentUser(r).user

	errs := fieldErrors{}
	if !checkPassword(u.hash, in.CurrentPassword) {
		errs.add("current_password", "The current password is incorrect.")
	}
	if len(in.NewPassword) < minPasswordLen {
		errs.add("new_password", "The new password field must be at least 8 characters.")
	} else if in.NewPassword != in.NewPasswordConfirmation {
		errs.add("new_password", "The new password field confirmation does not match.")
	}
	if errs.any() {
		invalid(w, r, errs)
		return
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Password update failed")
		return
	}
	u.hash = hash
	u.UpdatedAt = s.now()
	ok(w, http.StatusOK, "Password updated successfully", nil)
}
