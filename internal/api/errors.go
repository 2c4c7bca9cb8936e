package api

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoToken is returned by authenticated calls issued without a session.
	// No request is sent.
	ErrNoToken = errors.New("No token available")

	// ErrUnauthorized is wrapped by every error produced from a 401 response.
	ErrUnauthorized = errors.New("Session expired. Please log in again.")
)

const msgRequestFailed = "Request failed"

// Error is a server-reported failure: the envelope message plus optional
// field-level messages.
type Error struct {
	Status  int
	Message string
	Errors  map[string][]string
	err     error
}

// Error flattens field errors as "message: e1, e2". Fields are visited in
// sorted key order so the rendering is stable.
func (e *Error) Error() string {
	msgs := e.FieldMessages()
	if len(msgs) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(msgs, ", ")
}

func (e *Error) Unwrap() error { return e.err }

// FieldMessages returns every field message in sorted key order.
func (e *Error) FieldMessages() []string {
	if len(e.Errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, e.Errors[k]...)
	}
	return out
}

// FieldError returns the first message reported for field, if any.
func (e *Error) FieldError(field string) string {
	if msgs := e.Errors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// FormatError converts any error into the single display string stored by
// the state containers.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred"
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
