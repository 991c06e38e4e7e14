package stats

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/apitest"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

type role bool

func (r role) IsAdmin() bool { return bool(r) }

// countingRemote records calls and signals each one on calls.
type countingRemote struct {
	mu    sync.Mutex
	mine  int
	admin int
	calls chan struct{}
	stats model.Stats
	err   error
}

func newCountingRemote() *countingRemote {
	return &countingRemote{calls: make(chan struct{}, 16)}
}

func (c *countingRemote) MyStats(ctx context.Context) (model.Stats, error) {
	c.mu.Lock()
	c.mine++
	st, err := c.stats, c.err
	c.mu.Unlock()
	c.calls <- struct{}{}
	return st, err
}

func (c *countingRemote) AdminStats(ctx context.Context) (model.AdminStats, error) {
	c.mu.Lock()
	c.admin++
	st, err := c.stats, c.err
	c.mu.Unlock()
	c.calls <- struct{}{}
	return model.AdminStats{Stats: st, TotalUsers: 3}, err
}

func (c *countingRemote) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mine + c.admin
}

func waitCall(t *testing.T, c *countingRemote) {
	t.Helper()
	select {
	case <-c.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a stats fetch")
	}
}

func TestCurrentStatsWithoutSnapshot(t *testing.T) {
	s := store.New(store.Options{})
	s.ApplyCreated(model.Todo{ID: 1, IsOverdue: true, DueDate: model.NewTimestamp(model.Timestamp{}.Time)})
	r := New(Options{Ledger: s, Remote: newCountingRemote()})

	want := model.Stats{Total: 1, Incomplete: 1, Overdue: 1}
	if got := r.CurrentStats(); got != want {
		t.Errorf("CurrentStats() = %+v, want %+v", got, want)
	}
	if got := r.Percentages(); got.IncompletePct != 100 || got.OverduePct != 100 || got.CompletedPct != 0 {
		t.Errorf("Percentages() = %+v", got)
	}
}

func TestRefreshPicksEndpointByRole(t *testing.T) {
	srv := apitest.New(t)
	admin, adminTok := srv.AddUser("Root", "root@example.com", "secret123", model.RoleAdmin)
	user, userTok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	srv.AddTodo(admin.ID, "a", "a", nil, true)
	srv.AddTodo(user.ID, "b", "b", nil, false)
	srv.AddTodo(user.ID, "c", "c", nil, false)

	tests := []struct {
		name  string
		token string
		admin bool
		route string
		want  model.Stats
	}{
		{"user", userTok, false, "GET /my-todo-stats", model.Stats{Total: 2, Incomplete: 2}},
		{"admin", adminTok, true, "GET /admin/todo-stats", model.Stats{Total: 3, Completed: 1, Incomplete: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tt.token)})
			if err != nil {
				t.Fatalf("api.New() unexpected error: %v", err)
			}
			s := store.New(store.Options{Remote: c})
			r := New(Options{Ledger: s, Remote: c, Viewer: role(tt.admin)})
			before := srv.Calls(tt.route)

			got, err := r.Refresh(context.Background())
			if err != nil {
				t.Fatalf("Refresh() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Refresh() = %+v, want %+v", got, tt.want)
			}
			if snap, ok := s.Snapshot(); !ok || snap != tt.want {
				t.Errorf("Snapshot() = %+v, %v", snap, ok)
			}
			if srv.Calls(tt.route) != before+1 {
				t.Errorf("expected one call to %s", tt.route)
			}
		})
	}
}

func TestResyncFailureKeepsSnapshot(t *testing.T) {
	srv := apitest.New(t)
	_, tok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	c, _ := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tok)})
	s := store.New(store.Options{Remote: c})
	prior := model.Stats{Total: 4, Completed: 1, Incomplete: 3, Overdue: 1}
	s.SetStats(prior)
	r := New(Options{Ledger: s, Remote: c})

	srv.Fail("GET /my-todo-stats", http.StatusInternalServerError, "stats offline")
	r.Resync(context.Background())
	if snap, _ := s.Snapshot(); snap != prior {
		t.Errorf("Snapshot() = %+v, want unchanged %+v", snap, prior)
	}

	_, err := r.Refresh(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "stats offline" {
		t.Errorf("Refresh() error = %v", err)
	}
}

func TestAdminBreakdown(t *testing.T) {
	srv := apitest.New(t)
	_, tok := srv.AddUser("Root", "root@example.com", "secret123", model.RoleAdmin)
	user, _ := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	srv.AddTodo(user.ID, "b", "b", nil, true)
	c, _ := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tok)})
	s := store.New(store.Options{Remote: c})
	r := New(Options{Ledger: s, Remote: c, Viewer: role(true)})

	got, err := r.AdminBreakdown(context.Background())
	if err != nil {
		t.Fatalf("AdminBreakdown() unexpected error: %v", err)
	}
	if got.TotalUsers != 2 || got.Total != 1 {
		t.Errorf("AdminBreakdown() = %+v", got)
	}
	if _, ok := s.Snapshot(); ok {
		t.Error("AdminBreakdown() must not set the snapshot")
	}
}

func TestAutoSyncTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	remote := newCountingRemote()
	remote.stats = model.Stats{Total: 1, Completed: 1}
	s := store.New(store.Options{})
	r := New(Options{Ledger: s, Remote: remote, Clock: clock})

	r.StartAutoSync(context.Background(), time.Minute)
	defer r.StopAutoSync()
	if !r.Running() {
		t.Fatal("Running() = false after StartAutoSync")
	}

	clock.Advance(time.Minute)
	waitCall(t, remote)
	clock.Advance(time.Minute)
	waitCall(t, remote)

	if snap, ok := s.Snapshot(); !ok || snap != remote.stats {
		t.Errorf("Snapshot() = %+v, %v", snap, ok)
	}
}

func TestRestartReplacesSchedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	remote := newCountingRemote()
	r := New(Options{Ledger: store.New(store.Options{}), Remote: remote, Clock: clock})

	r.StartAutoSync(context.Background(), time.Second)
	r.StartAutoSync(context.Background(), 5*time.Second)
	defer r.StopAutoSync()

	clock.Advance(1500 * time.Millisecond)
	select {
	case <-remote.calls:
		t.Fatal("replaced 1s schedule still fired")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(3500 * time.Millisecond)
	waitCall(t, remote)
	time.Sleep(50 * time.Millisecond)
	if n := remote.total(); n != 1 {
		t.Errorf("resyncs after 5s = %d, want 1", n)
	}
}

func TestStopAutoSync(t *testing.T) {
	clock := clockwork.NewFakeClock()
	remote := newCountingRemote()
	r := New(Options{Ledger: store.New(store.Options{}), Remote: remote, Clock: clock})

	r.StopAutoSync() // idle stop is a no-op

	r.StartAutoSync(context.Background(), 0)
	r.StopAutoSync()
	if r.Running() {
		t.Fatal("Running() = true after StopAutoSync")
	}
	clock.Advance(DefaultInterval)
	select {
	case <-remote.calls:
		t.Fatal("stopped schedule fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAutoSyncEndsWithContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(Options{Ledger: store.New(store.Options{}), Remote: newCountingRemote(), Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	r.StartAutoSync(ctx, time.Minute)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for r.Running() {
		if time.Now().After(deadline) {
			t.Fatal("auto-sync still running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.StopAutoSync()
}
