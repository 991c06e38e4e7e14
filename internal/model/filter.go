package model

import (
	"fmt"
	"net/url"
	"strconv"
)

// Status narrows a listing to one completion state.
type Status string

const (
	StatusAny        Status = ""
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusOverdue    Status = "overdue"
)

// ParseStatus accepts the query values the API understands.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAny, StatusCompleted, StatusIncomplete, StatusOverdue:
		return Status(s), nil
	}
	return StatusAny, fmt.Errorf("unknown status %q (want completed, incomplete or overdue)", s)
}

// Filter selects which todos GET /todos returns. Zero fields impose no
// constraint.
type Filter struct {
	Status   Status
	UserID   int64
	Username string
}

// Merge returns f with every non-zero field of o applied on top.
func (f Filter) Merge(o Filter) Filter {
	if o.Status != StatusAny {
		f.Status = o.Status
	}
	if o.UserID != 0 {
		f.UserID = o.UserID
	}
	if o.Username != "" {
		f.Username = o.Username
	}
	return f
}

// Query encodes the filter, omitting empty fields.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Status != StatusAny {
		q.Set("status", string(f.Status))
	}
	if f.UserID != 0 {
		q.Set("user_id", strconv.FormatInt(f.UserID, 10))
	}
	if f.Username != "" {
		q.Set("username", f.Username)
	}
	return q
}
