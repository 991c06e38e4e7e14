package push

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/apitest"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

func TestLiveEventsFromServer(t *testing.T) {
	srv := apitest.New(t)
	_, tok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	client, err := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tok)})
	if err != nil {
		t.Fatalf("api.New() unexpected error: %v", err)
	}
	s := store.New(store.Options{Remote: client, Logger: quiet})
	clock := clockwork.NewFakeClock()
	ch := New(Options{
		URL:     srv.PushURL(),
		Tokens:  api.StaticToken(tok),
		Applier: s,
		Clock:   clock,
		Logger:  quiet,
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	eventually(t, "server registers client", func() bool { return srv.PushClients() == 1 })

	// A change made through another client shows up here.
	created, err := client.CreateTodo(context.Background(), model.Draft{Title: "remote", Description: "d"})
	if err != nil {
		t.Fatalf("CreateTodo() unexpected error: %v", err)
	}
	eventually(t, "created event", func() bool { return s.Len() == 1 })

	srv.BroadcastRaw("{not json")
	srv.Broadcast(map[string]any{"type": "todo_renamed", "todo_id": created.Todo.ID})
	srv.Broadcast(map[string]any{"type": "item_deleted", "todo_id": created.Todo.ID})
	eventually(t, "deleted event", func() bool { return s.Len() == 0 })
	if ch.State() != Connected {
		t.Fatalf("State() = %s after bad frames, want connected", ch.State())
	}

	srv.DropPushClients()
	eventually(t, "reconnect scheduled", func() bool { return ch.State() == ReconnectScheduled })
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	eventually(t, "reconnected", func() bool {
		return ch.State() == Connected && srv.PushClients() == 1
	})
}

func TestOwnCreateEchoedOnce(t *testing.T) {
	srv := apitest.New(t)
	_, tok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	client, err := api.New(api.Options{BaseURL: srv.URL(), Tokens: api.StaticToken(tok)})
	if err != nil {
		t.Fatalf("api.New() unexpected error: %v", err)
	}
	s := store.New(store.Options{Remote: client, Logger: quiet})
	ch := New(Options{
		URL:     srv.PushURL(),
		Tokens:  api.StaticToken(tok),
		Applier: s,
		Clock:   clockwork.NewFakeClock(),
		Logger:  quiet,
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	eventually(t, "server registers client", func() bool { return srv.PushClients() == 1 })

	if _, err := s.Create(context.Background(), model.Draft{Title: "x", Description: "d"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	// Frames arrive in order, so once this marker is applied the echo of
	// the create has been handled too.
	marker := model.Stats{Total: 99, Incomplete: 99}
	srv.Broadcast(map[string]any{"type": "stats_updated", "stats": marker})
	eventually(t, "marker applied", func() bool {
		st, ok := s.Snapshot()
		return ok && st == marker
	})

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1: %+v", s.Len(), s.Items())
	}
	if got := s.DeriveStats().Total; got != 1 {
		t.Errorf("DeriveStats().Total = %d, want 1", got)
	}
}

func TestServerRejectsPush(t *testing.T) {
	srv := apitest.New(t)
	_, tok := srv.AddUser("Ana", "ana@example.com", "secret123", model.RoleUser)
	srv.RejectPush(true)
	clock := clockwork.NewFakeClock()
	ch := New(Options{URL: srv.PushURL(), Tokens: api.StaticToken(tok), Clock: clock, Logger: quiet})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err == nil {
		t.Fatal("Connect() expected error")
	}
	if ch.State() != ReconnectScheduled {
		t.Errorf("State() = %s, want reconnect_scheduled", ch.State())
	}

	srv.RejectPush(false)
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	eventually(t, "connected after retry", func() bool { return ch.State() == Connected })
}
