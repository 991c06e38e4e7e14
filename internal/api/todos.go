package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/idilsaglam/tada/internal/model"
)

// Meta is the pagination block of a todo listing. Fields the backend does
// not send stay zero.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// TodoPage is the body of GET /todos.
type TodoPage struct {
	Data []model.Todo `json:"data"`
	Meta Meta         `json:"meta"`
}

// TodoResponse is the body of the single-todo mutations.
type TodoResponse struct {
	Todo    model.Todo `json:"todo"`
	Message string     `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statsResponse struct {
	Statistics model.Stats `json:"statistics"`
}

type adminStatsResponse struct {
	Statistics struct {
		model.Stats
		TotalUsers     int `json:"total_users"`
		UsersWithTodos int `json:"users_with_todos"`
	} `json:"statistics"`
	TodosByUser []model.OwnerStats `json:"todos_by_user"`
}

func todoPath(id int64) string { return fmt.Sprintf("/todos/%d", id) }

// ListTodos returns the todos visible to the caller that match f.
func (c *Client) ListTodos(ctx context.Context, f model.Filter) (TodoPage, error) {
	var page TodoPage
	if err := c.do(ctx, http.MethodGet, "/todos", f.Query(), nil, &page); err != nil {
		return TodoPage{}, err
	}
	if page.Data == nil {
		page.Data = []model.Todo{}
	}
	return page, nil
}

// GetTodo fetches a single todo.
func (c *Client) GetTodo(ctx context.Context, id int64) (model.Todo, error) {
	var resp struct {
		Todo model.Todo `json:"todo"`
	}
	if err := c.do(ctx, http.MethodGet, todoPath(id), nil, nil, &resp); err != nil {
		return model.Todo{}, err
	}
	return resp.Todo, nil
}

// CreateTodo creates a todo from d.
func (c *Client) CreateTodo(ctx context.Context, d model.Draft) (TodoResponse, error) {
	var resp TodoResponse
	if err := c.do(ctx, http.MethodPost, "/todos", nil, d, &resp); err != nil {
		return TodoResponse{}, err
	}
	return resp, nil
}

// UpdateTodo applies p to the todo with the given id.
func (c *Client) UpdateTodo(ctx context.Context, id int64, p model.Patch) (TodoResponse, error) {
	var resp TodoResponse
	if err := c.do(ctx, http.MethodPut, todoPath(id), nil, p, &resp); err != nil {
		return TodoResponse{}, err
	}
	return resp, nil
}

// DeleteTodo deletes the todo and returns the server's message.
func (c *Client) DeleteTodo(ctx context.Context, id int64) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodDelete, todoPath(id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ToggleTodo flips the completion state server-side.
func (c *Client) ToggleTodo(ctx context.Context, id int64) (TodoResponse, error) {
	var resp TodoResponse
	if err := c.do(ctx, http.MethodPatch, todoPath(id)+"/toggle", nil, nil, &resp); err != nil {
		return TodoResponse{}, err
	}
	return resp, nil
}

// MyStats returns the caller's own counts.
func (c *Client) MyStats(ctx context.Context) (model.Stats, error) {
	var resp statsResponse
	if err := c.do(ctx, http.MethodGet, "/my-todo-stats", nil, nil, &resp); err != nil {
		return model.Stats{}, err
	}
	return resp.Statistics, nil
}

// AdminStats returns population-wide counts with the per-user breakdown.
func (c *Client) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var resp adminStatsResponse
	if err := c.do(ctx, http.MethodGet, "/admin/todo-stats", nil, nil, &resp); err != nil {
		return model.AdminStats{}, err
	}
	return model.AdminStats{
		Stats:          resp.Statistics.Stats,
		TotalUsers:     resp.Statistics.TotalUsers,
		UsersWithTodos: resp.Statistics.UsersWithTodos,
		TodosByUser:    resp.TodosByUser,
	}, nil
}
