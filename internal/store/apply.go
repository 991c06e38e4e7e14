package store

import "github.com/idilsaglam/tada/internal/model"

// The Apply methods are the only writers of the list besides Load. They are
// shared by the remote success paths and the push channel, and each one
// patches the stats snapshot before releasing the lock.

// ApplyCreated prepends t and returns it normalized. A creation confirmed
// twice, by the response and by its push echo, replaces the entry in place.
func (s *Store) ApplyCreated(t model.Todo) model.Todo {
	t.Normalize(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, t.ID); i >= 0 {
		s.items[i] = t
		s.patchLocked()
		return t
	}
	items := make([]model.Todo, 0, len(s.items)+1)
	items = append(items, t)
	s.items = append(items, s.items...)
	s.patchLocked()
	return t
}

// ApplyUpdated replaces the todo with t's id. Unknown ids are discarded, not
// inserted; it reports whether a replacement happened.
func (s *Store) ApplyUpdated(t model.Todo) bool {
	t.Normalize(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.items, t.ID)
	if i < 0 {
		s.log.Debug("update for todo not in list discarded", "id", t.ID)
		return false
	}
	s.items[i] = t
	s.patchLocked()
	return true
}

// ApplyToggled is ApplyUpdated for completion changes.
func (s *Store) ApplyToggled(t model.Todo) bool {
	return s.ApplyUpdated(t)
}

// ApplyDeleted removes the todo with id, if present.
func (s *Store) ApplyDeleted(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]model.Todo, 0, len(s.items))
	for _, t := range s.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(s.items)
	s.items = kept
	s.patchLocked()
	return removed
}
