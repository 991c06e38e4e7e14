package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// Owner is the user a todo belongs to, as embedded in todo payloads.
type Owner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Todo is a single task as returned by the API.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"nama"`
	Description string     `json:"deskripsi"`
	DueDate     *Timestamp `json:"due_date"`
	CompletedAt *Timestamp `json:"completed_at"`
	IsCompleted bool       `json:"is_completed"`
	IsOverdue   bool       `json:"is_overdue"`
	User        Owner      `json:"user"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
}

// Normalize reconciles the derived flags with the timestamps they are
// derived from. completed_at wins over is_completed, and a todo is overdue
// only when it is incomplete with a due date before now.
func (t *Todo) Normalize(now time.Time) {
	t.IsCompleted = t.CompletedAt != nil
	t.IsOverdue = !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// Draft is the body of POST /todos.
type Draft struct {
	Title       string `json:"nama"`
	Description string `json:"deskripsi"`
	DueDate     string `json:"due_date,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
}

// Validate checks the fields the API requires before a request is made.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// Patch is the body of PUT /todos/{id}. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"nama,omitempty"`
	Description *string `json:"deskripsi,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil
}
