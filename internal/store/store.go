// Package store owns the in-memory todo list and the last known stats
// snapshot, and keeps both consistent with the remote API.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/model"
)

// Remote is the part of the API the store mutates through.
type Remote interface {
	ListTodos(ctx context.Context, f model.Filter) (api.TodoPage, error)
	GetTodo(ctx context.Context, id int64) (model.Todo, error)
	CreateTodo(ctx context.Context, d model.Draft) (api.TodoResponse, error)
	UpdateTodo(ctx context.Context, id int64, p model.Patch) (api.TodoResponse, error)
	DeleteTodo(ctx context.Context, id int64) (string, error)
	ToggleTodo(ctx context.Context, id int64) (api.TodoResponse, error)
}

// Options configures a Store.
type Options struct {
	Remote Remote
	Logger *slog.Logger
	Now    func() time.Time
}

// Store is the single owner of the todo list for a session. Mutations are
// applied only once the server (or a push event) confirms them.
//
// Calls are not serialized against each other: two mutations may overlap,
// but every replace or remove by id happens under the lock.
type Store struct {
	remote Remote
	log    *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	items   []model.Todo
	stats   *model.Stats // last server snapshot, nil until one is fetched
	filters model.Filter
	loading bool
	err     string
}

// New creates an empty store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		remote: opts.Remote,
		log:    logger,
		now:    now,
		items:  []model.Todo{},
	}
}

// begin marks an action in flight and clears the previous error.
func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// settle clears the in-flight flag and records err, if any.
func (s *Store) settle(err error, fallback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		s.err = msg
	}
}

// Load replaces the list with the todos matching the standing filters
// overlaid with f. On failure the previous list is kept.
func (s *Store) Load(ctx context.Context, f model.Filter) (page api.TodoPage, err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to fetch todos") }()

	page, err = s.remote.ListTodos(ctx, s.Filters().Merge(f))
	if err != nil {
		return api.TodoPage{}, err
	}

	items := make([]model.Todo, len(page.Data))
	now := s.now()
	for i, t := range page.Data {
		t.Normalize(now)
		items[i] = t
	}

	s.mu.Lock()
	s.items = items
	s.patchLocked()
	s.mu.Unlock()
	return page, nil
}

// Get fetches one todo without touching the list.
func (s *Store) Get(ctx context.Context, id int64) (todo model.Todo, err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to fetch todo") }()

	todo, err = s.remote.GetTodo(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	todo.Normalize(s.now())
	return todo, nil
}

// Create validates d, creates it remotely and prepends the server's todo.
func (s *Store) Create(ctx context.Context, d model.Draft) (resp api.TodoResponse, err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to create todo") }()

	if err = d.Validate(); err != nil {
		return api.TodoResponse{}, err
	}
	resp, err = s.remote.CreateTodo(ctx, d)
	if err != nil {
		return api.TodoResponse{}, err
	}
	resp.Todo = s.ApplyCreated(resp.Todo)
	return resp, nil
}

// Update patches a todo remotely. The response replaces the local copy
// only if the id is already in the list.
func (s *Store) Update(ctx context.Context, id int64, p model.Patch) (resp api.TodoResponse, err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to update todo") }()

	resp, err = s.remote.UpdateTodo(ctx, id, p)
	if err != nil {
		return api.TodoResponse{}, err
	}
	resp.Todo.ID = id
	s.ApplyUpdated(resp.Todo)
	return resp, nil
}

// Delete removes a todo remotely and then locally.
func (s *Store) Delete(ctx context.Context, id int64) (err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to delete todo") }()

	if _, err = s.remote.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.ApplyDeleted(id)
	return nil
}

// Toggle flips completion remotely and adopts the server's version so the
// completion timestamp and overdue flag stay authoritative.
func (s *Store) Toggle(ctx context.Context, id int64) (resp api.TodoResponse, err error) {
	s.begin()
	defer func() { s.settle(err, "Failed to toggle todo") }()

	resp, err = s.remote.ToggleTodo(ctx, id)
	if err != nil {
		return api.TodoResponse{}, err
	}
	resp.Todo.ID = id
	s.ApplyToggled(resp.Todo)
	return resp, nil
}

// Items returns a copy of the list.
func (s *Store) Items() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Todo, len(s.items))
	copy(out, s.items)
	return out
}

// Find returns the local copy of a todo.
func (s *Store) Find(id int64) (model.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return model.Todo{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Completed() []model.Todo {
	return s.filter(func(t model.Todo) bool { return t.IsCompleted })
}

func (s *Store) Incomplete() []model.Todo {
	return s.filter(func(t model.Todo) bool { return !t.IsCompleted })
}

func (s *Store) Overdue() []model.Todo {
	return s.filter(func(t model.Todo) bool { return t.IsOverdue })
}

func (s *Store) filter(keep func(model.Todo) bool) []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Todo
	for _, t := range s.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Loading reports whether a remote call is in flight. It is a display
// hint, not a lock.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed action, "" if it succeeded.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Filters returns the standing filters applied to every Load.
func (s *Store) Filters() model.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetFilters merges f into the standing filters.
func (s *Store) SetFilters(f model.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Merge(f)
}

// ResetFilters drops every standing filter.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = model.Filter{}
}

func indexOf(items []model.Todo, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
