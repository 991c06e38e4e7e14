package store

import "github.com/idilsaglam/tada/internal/model"

// DeriveStats counts items by predicate. It has no side effects.
func DeriveStats(items []model.Todo) model.Stats {
	st := model.Stats{Total: len(items)}
	for _, t := range items {
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

// DeriveStats counts the live list.
func (s *Store) DeriveStats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DeriveStats(s.items)
}

// CurrentStats is the server snapshot when one exists, otherwise the
// counts derived from the list.
func (s *Store) CurrentStats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats != nil {
		return *s.stats
	}
	return DeriveStats(s.items)
}

// Snapshot returns the server-fetched stats, if any.
func (s *Store) Snapshot() (model.Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return model.Stats{}, false
	}
	return *s.stats, true
}

// SetStats replaces the snapshot wholesale with st, as received.
func (s *Store) SetStats(st model.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &st
}

// PatchLocally recomputes every field of the snapshot from the list. It
// does nothing until a snapshot has been fetched.
func (s *Store) PatchLocally() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchLocked()
}

func (s *Store) patchLocked() {
	if s.stats == nil {
		return
	}
	st := DeriveStats(s.items)
	s.stats = &st
}
