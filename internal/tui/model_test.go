package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/apitest"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/stats"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/ui"
)

func newTestModel(t *testing.T) (modelTUI, *apitest.Server, model.User) {
	t.Helper()
	ui.SetTheme("mono")
	t.Cleanup(func() { ui.SetTheme("classic") })

	srv := apitest.New(t)
	u, tok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	c, err := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tok)})
	if err != nil {
		t.Fatalf("api.New() unexpected error: %v", err)
	}
	s := store.New(store.Options{Remote: c})
	rec := stats.New(stats.Options{Ledger: s, Remote: c})
	m := newModel(context.Background(), Deps{Store: s, Stats: rec, UserName: u.Name})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(modelTUI), srv, u
}

// run executes cmd and feeds the message back, like the program loop.
func run(t *testing.T, m modelTUI, cmd tea.Cmd) modelTUI {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(modelTUI)
}

func press(m modelTUI, keys string) (modelTUI, tea.Cmd) {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(modelTUI), cmd
}

func typeText(m modelTUI, s string) modelTUI {
	for _, r := range s {
		m, _ = press(m, string(r))
	}
	return m
}

func TestLoadFillsList(t *testing.T) {
	m, srv, u := newTestModel(t)
	srv.AddTodo(u.ID, "first", "d", nil, false)
	srv.AddTodo(u.ID, "second", "d", nil, true)

	m = run(t, m, m.loadCmd())
	if n := len(m.list.Items()); n != 2 {
		t.Fatalf("list has %d items, want 2", n)
	}
	if !strings.Contains(m.list.Title, "x 1") || !strings.Contains(m.list.Title, "Total 2") {
		t.Errorf("header = %q", m.list.Title)
	}
}

func TestToggleSelected(t *testing.T) {
	m, srv, u := newTestModel(t)
	srv.AddTodo(u.ID, "only", "d", nil, false)
	m = run(t, m, m.loadCmd())

	m, cmd := press(m, " ")
	m = run(t, m, cmd)
	td, _ := m.selected()
	if !td.IsCompleted {
		t.Errorf("selected todo not completed after toggle: %+v", td)
	}
	if m.status != "toggled" {
		t.Errorf("status = %q", m.status)
	}
}

func TestAddFlow(t *testing.T) {
	m, srv, _ := newTestModel(t)

	m, _ = press(m, "a")
	if m.mode != addingTitle {
		t.Fatalf("mode = %v, want addingTitle", m.mode)
	}
	m, _ = press(m, "enter")
	if m.err != model.ErrTitleRequired.Error() {
		t.Errorf("empty title err = %q", m.err)
	}
	m = typeText(m, "Buy milk")
	m, _ = press(m, "enter")
	if m.mode != addingDesc {
		t.Fatalf("mode = %v, want addingDesc", m.mode)
	}
	m = typeText(m, "two litres")
	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	if m.mode != browsing || len(m.list.Items()) != 1 {
		t.Fatalf("mode %v, %d items", m.mode, len(m.list.Items()))
	}
	todos := srv.Todos()
	if len(todos) != 1 || todos[0].Title != "Buy milk" || todos[0].Description != "two litres" {
		t.Errorf("server todos = %+v", todos)
	}
}

func TestEditAndCancel(t *testing.T) {
	m, srv, u := newTestModel(t)
	srv.AddTodo(u.ID, "old", "d", nil, false)
	m = run(t, m, m.loadCmd())

	m, _ = press(m, "e")
	m, _ = press(m, "esc")
	if m.mode != browsing {
		t.Fatalf("esc did not leave edit mode")
	}

	m, _ = press(m, "e")
	m.ti.SetValue("new")
	m, cmd := press(m, "enter")
	m = run(t, m, cmd)
	if td, _ := m.selected(); td.Title != "new" {
		t.Errorf("selected title = %q, want new", td.Title)
	}
}

func TestDeleteFailureShowsError(t *testing.T) {
	m, srv, u := newTestModel(t)
	srv.AddTodo(u.ID, "keep", "d", nil, false)
	m = run(t, m, m.loadCmd())
	srv.Fail("DELETE /todos/{id}", 500, "cannot delete")

	m, cmd := press(m, "d")
	m = run(t, m, cmd)
	if len(m.list.Items()) != 1 {
		t.Error("failed delete removed the item")
	}
	if !strings.Contains(m.err, "cannot delete") {
		t.Errorf("err = %q", m.err)
	}
	if !strings.Contains(m.View(), "cannot delete") {
		t.Error("View() does not show the error")
	}
}
