package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"budgetly/internal/log"
)

const tokenTTL = 24 * time.Hour

type ctxKey struct{}

type claims struct {
	UserID int64 `json:"user_id"`
	Gen    int   `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u *userRec) (string, error) {
	now := s.now()
	c := claims{
		UserID: u.ID,
		Gen:    u.gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return c, nil
}

var errRevoked = errors.New("token revoked")

// authenticate resolves the bearer token to a live user. The caller holds
// the db lock.
func (s *Server) authenticate(r *http.Request) (*userRec, *claims, error) {
	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		return nil, nil, errors.New("missing bearer token")
	}
	c, err := s.parseToken(raw)
	if err != nil {
		return nil, nil, err
	}
	u, ok := s.db.users[c.UserID]
	if !ok || c.Gen != u.gen {
		return nil, nil, errRevoked
	}
	if _, revoked := s.db.revoked.Get(c.ID); revoked {
		return nil, nil, errRevoked
	}
	return u, c, nil
}

type principal struct {
	user   *userRec
	claims *claims
}

// requireAuth rejects requests without a valid token with 401 and stores
// the principal in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.db.mu.Lock()
		u, c, err := s.authenticate(r)
		s.db.mu.Unlock()
		if err != nil {
			log.FromContext(r.Context()).Info("Unauthenticated request",
				log.FieldPath, r.URL.Path,
				log.FieldError, err.Error(),
			)
			fail(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, principal{user: u, claims: c})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) principal {
	p, _ := r.Context().Value(ctxKey{}).(principal)
	return p
}

func (s *Server) hashPassword(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), s.bcryptCost)
}

func checkPassword(hash []byte, pw string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(pw)) == nil
}
