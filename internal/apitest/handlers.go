package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/idilsaglam/tada/internal/model"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "POST /login") {
		return
	}
	var creds model.LoginCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, creds.Email) && acc.password == creds.Password {
			writeJSON(w, http.StatusOK, model.AuthResponse{
				Message:     "Login successful",
				User:        acc.user,
				AccessToken: s.issueTokenLocked(acc.user.ID),
				TokenType:   "Bearer",
			})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "POST /register") {
		return
	}
	var data model.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	fields := map[string][]string{}
	if strings.TrimSpace(data.Name) == "" {
		fields["name"] = []string{"The name field is required."}
	}
	if strings.TrimSpace(data.Email) == "" {
		fields["email"] = []string{"The email field is required."}
	}
	if len(data.Password) < 8 {
		fields["password"] = []string{"The password must be at least 8 characters."}
	} else if data.Password != data.PasswordConfirmation {
		fields["password"] = []string{"The password confirmation does not match."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, data.Email) {
			fields["email"] = []string{"The email has already been taken."}
		}
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	u, tok := s.addUserLocked(data.Name, data.Email, data.Password, data.Role)
	writeJSON(w, http.StatusCreated, model.AuthResponse{
		Message:     "User registered successfully",
		User:        u,
		AccessToken: tok,
		TokenType:   "Bearer",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "POST /logout") {
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /user") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /todos") {
		return
	}
	u := currentUser(r)
	q := r.URL.Query()
	status := model.Status(q.Get("status"))
	filterUserID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)
	username := strings.ToLower(q.Get("username"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Todo{}
	// Newest first, like the backend's default ordering.
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if !u.IsAdmin() && rec.ownerID != u.ID {
			continue
		}
		if filterUserID != 0 && rec.ownerID != filterUserID {
			continue
		}
		t := s.renderLocked(rec)
		if username != "" && !strings.Contains(strings.ToLower(t.User.Name), username) {
			continue
		}
		switch status {
		case model.StatusCompleted:
			if !t.IsCompleted {
				continue
			}
		case model.StatusIncomplete:
			if t.IsCompleted {
				continue
			}
		case model.StatusOverdue:
			if !t.IsOverdue {
				continue
			}
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]int{"current_page": 1, "last_page": 1, "per_page": len(out), "total": len(out)},
	})
}

// lookupLocked finds a todo the user may see.
func (s *Server) lookupLocked(u model.User, idParam string) (int, *record) {
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		return -1, nil
	}
	for i, rec := range s.records {
		if rec.todo.ID == id && (u.IsAdmin() || rec.ownerID == u.ID) {
			return i, rec
		}
	}
	return -1, nil
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Todo not found"})
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /todos/{id}") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec := s.lookupLocked(currentUser(r), chi.URLParam(r, "id"))
	if rec == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todo": s.renderLocked(rec)})
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "POST /todos") {
		return
	}
	u := currentUser(r)
	var d model.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	fields := map[string][]string{}
	if strings.TrimSpace(d.Title) == "" {
		fields["nama"] = []string{"The nama field is required."}
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["deskripsi"] = []string{"The deskripsi field is required."}
	}
	var due *model.Timestamp
	if d.DueDate != "" {
		ts, err := model.ParseTimestamp(d.DueDate)
		if err != nil {
			fields["due_date"] = []string{"The due date is not a valid date."}
		} else {
			due = &ts
		}
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	ownerID := u.ID
	if d.UserID != 0 {
		if !u.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Only admins can assign todos"})
			return
		}
		ownerID = d.UserID
	}

	s.mu.Lock()
	now := s.now()
	rec := &record{ownerID: ownerID, todo: model.Todo{
		ID:          s.nextTodoID,
		Title:       d.Title,
		Description: d.Description,
		DueDate:     due,
		CreatedAt:   model.Timestamp{Time: now},
		UpdatedAt:   model.Timestamp{Time: now},
	}}
	s.nextTodoID++
	s.records = append(s.records, rec)
	todo := s.renderLocked(rec)
	s.mu.Unlock()

	s.Broadcast(map[string]any{"type": "todo_created", "todo": todo})
	writeJSON(w, http.StatusCreated, map[string]any{"todo": todo, "message": "Todo created successfully"})
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "PUT /todos/{id}") {
		return
	}
	var p model.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	_, rec := s.lookupLocked(currentUser(r), chi.URLParam(r, "id"))
	if rec == nil {
		s.mu.Unlock()
		notFound(w)
		return
	}
	if p.Title != nil {
		rec.todo.Title = *p.Title
	}
	if p.Description != nil {
		rec.todo.Description = *p.Description
	}
	if p.DueDate != nil {
		if *p.DueDate == "" {
			rec.todo.DueDate = nil
		} else if ts, err := model.ParseTimestamp(*p.DueDate); err == nil {
			rec.todo.DueDate = &ts
		}
	}
	rec.todo.UpdatedAt = model.Timestamp{Time: s.now()}
	todo := s.renderLocked(rec)
	s.mu.Unlock()

	s.Broadcast(map[string]any{"type": "todo_updated", "todo": todo})
	writeJSON(w, http.StatusOK, map[string]any{"todo": todo, "message": "Todo updated successfully"})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "DELETE /todos/{id}") {
		return
	}
	s.mu.Lock()
	i, rec := s.lookupLocked(currentUser(r), chi.URLParam(r, "id"))
	if rec == nil {
		s.mu.Unlock()
		notFound(w)
		return
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.mu.Unlock()

	s.Broadcast(map[string]any{"type": "todo_deleted", "todo_id": rec.todo.ID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "PATCH /todos/{id}/toggle") {
		return
	}
	s.mu.Lock()
	_, rec := s.lookupLocked(currentUser(r), chi.URLParam(r, "id"))
	if rec == nil {
		s.mu.Unlock()
		notFound(w)
		return
	}
	now := s.now()
	if rec.todo.CompletedAt == nil {
		rec.todo.CompletedAt = model.NewTimestamp(now)
	} else {
		rec.todo.CompletedAt = nil
	}
	rec.todo.UpdatedAt = model.Timestamp{Time: now}
	todo := s.renderLocked(rec)
	s.mu.Unlock()

	s.Broadcast(map[string]any{"type": "todo_toggled", "todo": todo})
	writeJSON(w, http.StatusOK, map[string]any{"todo": todo, "message": "Todo status updated"})
}

func (s *Server) countLocked(keep func(*record) bool) model.Stats {
	var st model.Stats
	for _, rec := range s.records {
		if !keep(rec) {
			continue
		}
		t := s.renderLocked(rec)
		st.Total++
		if t.IsCompleted {
			st.Completed++
		} else {
			st.Incomplete++
		}
		if t.IsOverdue {
			st.Overdue++
		}
	}
	return st
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /my-todo-stats") {
		return
	}
	u := currentUser(r)
	s.mu.Lock()
	st := s.countLocked(func(rec *record) bool { return rec.ownerID == u.ID })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"statistics": st})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /admin/todo-stats") {
		return
	}
	if !currentUser(r).IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Unauthorized. Admin access required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.countLocked(func(*record) bool { return true })

	byUser := make([]model.OwnerStats, 0, len(s.accounts))
	withTodos := 0
	for id := int64(1); id < s.nextUserID; id++ {
		acc, ok := s.accounts[id]
		if !ok {
			continue
		}
		own := s.countLocked(func(rec *record) bool { return rec.ownerID == id })
		if own.Total > 0 {
			withTodos++
		}
		byUser = append(byUser, model.OwnerStats{
			ID:                  acc.user.ID,
			Name:                acc.user.Name,
			Email:               acc.user.Email,
			TodosCount:          own.Total,
			CompletedTodosCount: own.Completed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statistics": map[string]int{
			"total_todos":      st.Total,
			"completed_todos":  st.Completed,
			"incomplete_todos": st.Incomplete,
			"overdue_todos":    st.Overdue,
			"total_users":      len(s.accounts),
			"users_with_todos": withTodos,
		},
		"todos_by_user": byUser,
	})
}
