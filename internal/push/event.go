package push

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/idilsaglam/tada/internal/model"
)

// EventType is the canonical tag of an inbound push message.
type EventType string

const (
	EventCreated EventType = "todo_created"
	EventUpdated EventType = "todo_updated"
	EventDeleted EventType = "todo_deleted"
	EventToggled EventType = "todo_toggled"
	EventStats   EventType = "stats_updated"
)

// item_* tags are accepted as aliases of the todo_* wire names.
var eventAliases = map[string]EventType{
	"item_created": EventCreated,
	"item_updated": EventUpdated,
	"item_deleted": EventDeleted,
	"item_toggled": EventToggled,
}

var (
	ErrMalformed    = errors.New("malformed push event")
	ErrUnknownEvent = errors.New("unknown push event")
)

// Event is one inbound message. Which payload field is set depends on Type.
type Event struct {
	Type   string       `json:"type"`
	Todo   *model.Todo  `json:"todo,omitempty"`
	TodoID *int64       `json:"todo_id,omitempty"`
	Stats  *model.Stats `json:"stats,omitempty"`
}

// Kind maps Type to its canonical form; unknown tags are returned as-is.
func (e Event) Kind() EventType {
	if k, ok := eventAliases[e.Type]; ok {
		return k
	}
	return EventType(e.Type)
}

// ParseEvent decodes a text frame.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return e, nil
}

// Applier receives decoded events. *store.Store satisfies it.
type Applier interface {
	ApplyCreated(model.Todo) model.Todo
	ApplyUpdated(model.Todo) bool
	ApplyToggled(model.Todo) bool
	ApplyDeleted(id int64) bool
	SetStats(model.Stats)
}

// Dispatch applies e to a. Stats are taken verbatim, everything else goes
// through the store's recompute.
func Dispatch(a Applier, e Event) error {
	switch e.Kind() {
	case EventCreated:
		if e.Todo == nil {
			return fmt.Errorf("%w: %s without todo", ErrMalformed, e.Type)
		}
		a.ApplyCreated(*e.Todo)
	case EventUpdated:
		if e.Todo == nil {
			return fmt.Errorf("%w: %s without todo", ErrMalformed, e.Type)
		}
		a.ApplyUpdated(*e.Todo)
	case EventToggled:
		if e.Todo == nil {
			return fmt.Errorf("%w: %s without todo", ErrMalformed, e.Type)
		}
		a.ApplyToggled(*e.Todo)
	case EventDeleted:
		switch {
		case e.TodoID != nil:
			a.ApplyDeleted(*e.TodoID)
		case e.Todo != nil:
			a.ApplyDeleted(e.Todo.ID)
		default:
			return fmt.Errorf("%w: %s without todo_id", ErrMalformed, e.Type)
		}
	case EventStats:
		if e.Stats == nil {
			return fmt.Errorf("%w: %s without stats", ErrMalformed, e.Type)
		}
		a.SetStats(*e.Stats)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	return nil
}
