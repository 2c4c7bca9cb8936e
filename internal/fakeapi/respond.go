package fakeapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budgetly/internal/log"
)

const (
	msgValidationFailed = "Validation failed"
	msgNotFound         = "Resource not found"
	maxBodyBytes        = 1 << 20
)

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// fieldErrors collects per-field validation messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) any() bool { return len(f) > 0 }

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func invalid(w http.ResponseWriter, r *http.Request, errs fieldErrors) {
	log.FromContext(r.Context()).Debug("Request rejected",
		log.FieldPath, r.URL.Path,
		log.FieldCount, len(errs),
	)
	writeJSON(w, http.StatusUnprocessableEntity, envelope{Success: false, Message: msgValidationFailed, Errors: errs})
}

func notFound(w http.ResponseWriter) {
	fail(w, http.StatusNotFound, msgNotFound)
}

// decodeBody reads a JSON request body into dst. A malformed body is
// reported as a validation failure on the "body" field.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		invalid(w, r, fieldErrors{"body": {"The request body is not valid JSON."}})
		return false
	}
	return true
}

// pathID parses the {id} URL parameter. Unparseable ids are treated as
// missing resources.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		notFound(w)
		return 0, false
	}
	return id, true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
