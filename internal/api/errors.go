package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a non-2xx response from the API. Laravel-style validation
// failures carry per-field messages in Errors.
type Error struct {
	Status  int                 `json:"-"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range fields {
		fmt.Fprintf(&b, "; %s: %s", f, strings.Join(e.Errors[f], ", "))
	}
	return b.String()
}

// Unauthorized reports whether the server rejected the bearer token.
func (e *Error) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// Forbidden reports whether the caller lacks the role for the endpoint.
func (e *Error) Forbidden() bool { return e.Status == http.StatusForbidden }
