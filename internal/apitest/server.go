// Package apitest runs an in-process fake of the todo backend, including
// its websocket push endpoint, for use in tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idilsaglam/tada/internal/model"
)

type contextKey string

const userKey contextKey = "user"

type account struct {
	user     model.User
	password string
}

type record struct {
	todo    model.Todo
	ownerID int64
}

type failure struct {
	status  int
	message string
}

// Server is a fake todo backend. All state is in memory and guarded by mu.
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	accounts   map[int64]*account
	tokens     map[string]int64
	records    []*record
	nextTodoID int64
	nextUserID int64
	failures   map[string]failure
	calls      map[string]int
	rejectPush bool
	now        func() time.Time

	hubMu   sync.Mutex
	clients map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

// New starts a fake backend that shuts down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:   make(map[int64]*account),
		tokens:     make(map[string]int64),
		failures:   make(map[string]failure),
		calls:      make(map[string]int),
		clients:    make(map[*websocket.Conn]struct{}),
		nextTodoID: 1,
		nextUserID: 1,
		now:        time.Now,
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// URL is the API base URL.
func (s *Server) URL() string { return s.srv.URL }

// PushURL is the websocket endpoint, without the token parameter.
func (s *Server) PushURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

// Close disconnects push clients and stops the server.
func (s *Server) Close() {
	s.DropPushClients()
	s.srv.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)
	r.Get("/ws", s.handlePush)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post("/logout", s.handleLogout)
		r.Get("/user", s.handleUser)

		r.Get("/todos", s.handleListTodos)
		r.Post("/todos", s.handleCreateTodo)
		r.Get("/todos/{id}", s.handleGetTodo)
		r.Put("/todos/{id}", s.handleUpdateTodo)
		r.Delete("/todos/{id}", s.handleDeleteTodo)
		r.Patch("/todos/{id}/toggle", s.handleToggleTodo)

		r.Get("/my-todo-stats", s.handleMyStats)
		r.Get("/admin/todo-stats", s.handleAdminStats)
	})
	return r
}

// AddUser registers an account and returns it with a fresh token.
func (s *Server) AddUser(name, email, password string, role model.Role) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password, role)
}

func (s *Server) addUserLocked(name, email, password string, role model.Role) (model.User, string) {
	if role == "" {
		role = model.RoleUser
	}
	u := model.User{ID: s.nextUserID, Name: name, Email: email, Role: role}
	s.nextUserID++
	s.accounts[u.ID] = &account{user: u, password: password}
	return u, s.issueTokenLocked(u.ID)
}

func (s *Server) issueTokenLocked(userID int64) string {
	tok := uuid.NewString()
	s.tokens[tok] = userID
	return tok
}

// AddTodo seeds a todo owned by ownerID.
func (s *Server) AddTodo(ownerID int64, title, description string, due *time.Time, completed bool) model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &record{ownerID: ownerID}
	rec.todo = model.Todo{
		ID:          s.nextTodoID,
		Title:       title,
		Description: description,
		CreatedAt:   model.Timestamp{Time: now},
		UpdatedAt:   model.Timestamp{Time: now},
	}
	if due != nil {
		rec.todo.DueDate = model.NewTimestamp(*due)
	}
	if completed {
		rec.todo.CompletedAt = model.NewTimestamp(now)
	}
	s.nextTodoID++
	s.records = append(s.records, rec)
	return s.renderLocked(rec)
}

// Todos returns every stored todo in creation order.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Todo, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, s.renderLocked(rec))
	}
	return out
}

// Fail makes the route answer with status and message until Recover is
// called. route is "METHOD /pattern", e.g. "PATCH /todos/{id}/toggle".
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Recover removes an injected failure.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Calls reports how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// RejectPush makes websocket upgrades fail while set.
func (s *Server) RejectPush(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectPush = reject
}

// SetNow overrides the server clock used for timestamps and overdue checks.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) renderLocked(rec *record) model.Todo {
	t := rec.todo
	if acc, ok := s.accounts[rec.ownerID]; ok {
		t.User = model.Owner{ID: acc.user.ID, Name: acc.user.Name, Email: acc.user.Email}
	}
	t.IsOverdue = false
	t.Normalize(s.now())
	return t
}

// enter counts the call and writes the injected failure, if any. It
// reports whether the handler should stop.
func (s *Server) enter(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	s.calls[route]++
	f, failed := s.failures[route]
	s.mu.Unlock()
	if failed {
		writeJSON(w, f.status, map[string]string{"message": f.message})
		return true
	}
	return false
}

func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		u, ok := s.userForToken(token)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) userForToken(token string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return model.User{}, false
	}
	acc, ok := s.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

func currentUser(r *http.Request) model.User {
	u, _ := r.Context().Value(userKey).(model.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func validationError(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "The given data was invalid.",
		"errors":  fields,
	})
}
