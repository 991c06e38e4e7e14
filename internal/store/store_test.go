package store

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/apitest"
	"github.com/idilsaglam/tada/internal/model"
)

type fixture struct {
	srv   *apitest.Server
	store *Store
	user  model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	user, token := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	c, err := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(token)})
	if err != nil {
		t.Fatalf("api.New() unexpected error: %v", err)
	}
	return &fixture{srv: srv, store: New(Options{Remote: c}), user: user}
}

func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	if st := s.DeriveStats(); !st.Valid() {
		t.Fatalf("DeriveStats() inconsistent: %+v", st)
	}
	if st, ok := s.Snapshot(); ok && st != s.DeriveStats() {
		t.Fatalf("snapshot %+v drifted from list %+v", st, s.DeriveStats())
	}
}

func TestDeriveStatsExample(t *testing.T) {
	items := []model.Todo{
		{ID: 1, IsCompleted: true},
		{ID: 2, IsCompleted: false, IsOverdue: true},
	}
	got := DeriveStats(items)
	want := model.Stats{Total: 2, Completed: 1, Incomplete: 1, Overdue: 1}
	if got != want {
		t.Errorf("DeriveStats() = %+v, want %+v", got, want)
	}
	if len(items) != 2 || items[0].ID != 1 {
		t.Error("DeriveStats() must not modify its input")
	}
}

func TestLoadReplacesList(t *testing.T) {
	f := newFixture(t)
	f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	f.srv.AddTodo(f.user.ID, "b", "b", nil, true)
	ctx := context.Background()

	page, err := f.store.Load(ctx, model.Filter{})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(page.Data) != 2 || f.store.Len() != 2 {
		t.Fatalf("Load() got %d items, store has %d", len(page.Data), f.store.Len())
	}
	if len(f.store.Completed()) != 1 || len(f.store.Incomplete()) != 1 {
		t.Errorf("Completed/Incomplete = %d/%d", len(f.store.Completed()), len(f.store.Incomplete()))
	}

	if _, err := f.store.Load(ctx, model.Filter{Status: model.StatusCompleted}); err != nil {
		t.Fatalf("Load(completed) unexpected error: %v", err)
	}
	if f.store.Len() != 1 {
		t.Errorf("Load(completed) store has %d items, want 1", f.store.Len())
	}
}

func TestLoadFailureKeepsList(t *testing.T) {
	f := newFixture(t)
	f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	ctx := context.Background()
	if _, err := f.store.Load(ctx, model.Filter{}); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	f.srv.Fail("GET /todos", http.StatusInternalServerError, "database unavailable")
	_, err := f.store.Load(ctx, model.Filter{})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Load() expected *api.Error, got %v", err)
	}
	if f.store.Len() != 1 {
		t.Errorf("failed Load() changed list to %d items", f.store.Len())
	}
	if f.store.Err() != "database unavailable" {
		t.Errorf("Err() = %q", f.store.Err())
	}
	if f.store.Loading() {
		t.Error("Loading() must be cleared after failure")
	}
}

func TestStandingFilters(t *testing.T) {
	f := newFixture(t)
	f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	f.srv.AddTodo(f.user.ID, "b", "b", nil, true)

	f.store.SetFilters(model.Filter{Status: model.StatusIncomplete})
	if _, err := f.store.Load(context.Background(), model.Filter{}); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if f.store.Len() != 1 || f.store.Items()[0].Title != "a" {
		t.Errorf("standing filter not applied: %+v", f.store.Items())
	}

	f.store.ResetFilters()
	if f.store.Filters() != (model.Filter{}) {
		t.Errorf("ResetFilters() left %+v", f.store.Filters())
	}
}

func TestCreatePrependsServerTodo(t *testing.T) {
	f := newFixture(t)
	f.srv.AddTodo(f.user.ID, "old", "old", nil, false)
	ctx := context.Background()
	f.store.Load(ctx, model.Filter{})

	resp, err := f.store.Create(ctx, model.Draft{Title: "new", Description: "desc"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	items := f.store.Items()
	if len(items) != 2 || items[0].ID != resp.Todo.ID || items[0].Title != "new" {
		t.Errorf("Create() did not prepend: %+v", items)
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("created todo should carry server timestamps")
	}
	assertConsistent(t, f.store)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Create(context.Background(), model.Draft{Title: "x"})
	if !errors.Is(err, model.ErrDescriptionRequired) {
		t.Fatalf("Create() = %v, want ErrDescriptionRequired", err)
	}
	if f.store.Err() != model.ErrDescriptionRequired.Error() {
		t.Errorf("Err() = %q", f.store.Err())
	}
	if f.srv.Calls("POST /todos") != 0 {
		t.Error("invalid draft must not reach the server")
	}
	if f.store.Len() != 0 {
		t.Error("nothing should be added on failure")
	}
}

func TestCreateRemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("POST /todos", http.StatusUnprocessableEntity, "The nama has already been taken.")

	if _, err := f.store.Create(context.Background(), model.Draft{Title: "x", Description: "y"}); err == nil {
		t.Fatal("Create() expected error")
	}
	if f.store.Len() != 0 {
		t.Error("nothing should be added on failure")
	}
	if f.store.Err() != "The nama has already been taken." {
		t.Errorf("Err() = %q", f.store.Err())
	}
}

func TestErrorClearedOnNextAction(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("GET /todos", http.StatusInternalServerError, "boom")
	f.store.Load(context.Background(), model.Filter{})
	if f.store.Err() == "" {
		t.Fatal("expected an error to be recorded")
	}
	f.srv.Recover("GET /todos")
	if _, err := f.store.Load(context.Background(), model.Filter{}); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if f.store.Err() != "" {
		t.Errorf("Err() = %q, want cleared", f.store.Err())
	}
}

func TestUpdateReplacesByID(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	ctx := context.Background()
	f.store.Load(ctx, model.Filter{})

	title := "renamed"
	if _, err := f.store.Update(ctx, seeded.ID, model.Patch{Title: &title}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	got, ok := f.store.Find(seeded.ID)
	if !ok || got.Title != "renamed" || got.Description != "a" {
		t.Errorf("Find() = %+v, %v", got, ok)
	}
}

func TestUpdateAndToggleDiscardUnknownIDs(t *testing.T) {
	f := newFixture(t)
	elsewhere := f.srv.AddTodo(f.user.ID, "not loaded", "x", nil, false)
	ctx := context.Background()

	title := "renamed"
	if _, err := f.store.Update(ctx, elsewhere.ID, model.Patch{Title: &title}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if _, err := f.store.Toggle(ctx, elsewhere.ID); err != nil {
		t.Fatalf("Toggle() unexpected error: %v", err)
	}
	if f.store.Len() != 0 {
		t.Errorf("Update/Toggle inserted unknown todo: %+v", f.store.Items())
	}
}

func TestToggleAdoptsServerVersion(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-48 * time.Hour)
	seeded := f.srv.AddTodo(f.user.ID, "late", "x", &past, false)
	ctx := context.Background()
	f.store.Load(ctx, model.Filter{})
	f.store.SetStats(model.Stats{Total: 1, Incomplete: 1, Overdue: 1})

	if got, _ := f.store.Find(seeded.ID); !got.IsOverdue {
		t.Fatalf("seeded todo should be overdue: %+v", got)
	}
	if _, err := f.store.Toggle(ctx, seeded.ID); err != nil {
		t.Fatalf("Toggle() unexpected error: %v", err)
	}
	got, _ := f.store.Find(seeded.ID)
	if !got.IsCompleted || got.CompletedAt == nil || got.IsOverdue {
		t.Errorf("Toggle() local copy = %+v", got)
	}
	want := model.Stats{Total: 1, Completed: 1}
	if st := f.store.CurrentStats(); st != want {
		t.Errorf("CurrentStats() = %+v, want %+v", st, want)
	}
}

func TestToggleFailureLeavesItem(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	ctx := context.Background()
	f.store.Load(ctx, model.Filter{})
	f.srv.Fail("PATCH /todos/{id}/toggle", http.StatusForbidden, "This action is unauthorized.")

	if _, err := f.store.Toggle(ctx, seeded.ID); err == nil {
		t.Fatal("Toggle() expected error")
	}
	if got, _ := f.store.Find(seeded.ID); got.IsCompleted {
		t.Error("failed toggle changed the local item")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	a := f.srv.AddTodo(f.user.ID, "a", "a", nil, false)
	f.srv.AddTodo(f.user.ID, "b", "b", nil, false)
	ctx := context.Background()
	f.store.Load(ctx, model.Filter{})

	if err := f.store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, ok := f.store.Find(a.ID); ok || f.store.Len() != 1 {
		t.Errorf("Delete() left %+v", f.store.Items())
	}

	f.srv.Fail("DELETE /todos/{id}", http.StatusNotFound, "Todo not found")
	if err := f.store.Delete(ctx, 999); err == nil {
		t.Error("Delete() expected error")
	}
	if f.store.Len() != 1 {
		t.Error("failed delete changed the list")
	}
}

func TestInvariantAcrossMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetStats(model.Stats{})

	var ids []int64
	for _, title := range []string{"a", "b", "c", "d"} {
		resp, err := f.store.Create(ctx, model.Draft{Title: title, Description: title})
		if err != nil {
			t.Fatalf("Create(%s) unexpected error: %v", title, err)
		}
		ids = append(ids, resp.Todo.ID)
		assertConsistent(t, f.store)
	}
	for _, id := range ids[:3] {
		if _, err := f.store.Toggle(ctx, id); err != nil {
			t.Fatalf("Toggle() unexpected error: %v", err)
		}
		assertConsistent(t, f.store)
	}
	title := "renamed"
	f.store.Update(ctx, ids[0], model.Patch{Title: &title})
	assertConsistent(t, f.store)
	f.store.Toggle(ctx, ids[1])
	assertConsistent(t, f.store)
	f.store.Delete(ctx, ids[2])
	assertConsistent(t, f.store)

	want := model.Stats{Total: 3, Completed: 1, Incomplete: 2}
	if st := f.store.CurrentStats(); st != want {
		t.Errorf("CurrentStats() = %+v, want %+v", st, want)
	}
}

// blockingRemote holds ListTodos until release is closed.
type blockingRemote struct {
	Remote
	started chan struct{}
	release chan struct{}
}

func (b *blockingRemote) ListTodos(ctx context.Context, f model.Filter) (api.TodoPage, error) {
	close(b.started)
	<-b.release
	return api.TodoPage{Data: []model.Todo{{ID: 1}}}, nil
}

func TestLoadingWhileInFlight(t *testing.T) {
	remote := &blockingRemote{started: make(chan struct{}), release: make(chan struct{})}
	s := New(Options{Remote: remote})

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), model.Filter{})
		done <- err
	}()

	<-remote.started
	if !s.Loading() {
		t.Error("Loading() should be true while the call is outstanding")
	}
	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if s.Loading() {
		t.Error("Loading() should be false after settle")
	}
}
