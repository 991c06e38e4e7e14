package model

import "math"

// Stats are aggregate counts over a set of todos.
type Stats struct {
	Total      int `json:"total_todos"`
	Completed  int `json:"completed_todos"`
	Incomplete int `json:"incomplete_todos"`
	Overdue    int `json:"overdue_todos"`
}

// Valid reports whether the counts are internally consistent.
func (s Stats) Valid() bool {
	return s.Total >= 0 && s.Completed >= 0 && s.Incomplete >= 0 && s.Overdue >= 0 &&
		s.Completed+s.Incomplete == s.Total &&
		s.Overdue <= s.Incomplete
}

// StatsPercentages is Stats plus each share of the total, rounded.
type StatsPercentages struct {
	Stats
	CompletedPct  int `json:"completed_percentage"`
	IncompletePct int `json:"incomplete_percentage"`
	OverduePct    int `json:"overdue_percentage"`
}

// Percentages computes the shares against the total; an empty set counts as
// a total of one so every share is zero.
func (s Stats) Percentages() StatsPercentages {
	total := s.Total
	if total <= 0 {
		total = 1
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	return StatsPercentages{
		Stats:         s,
		CompletedPct:  pct(s.Completed),
		IncompletePct: pct(s.Incomplete),
		OverduePct:    pct(s.Overdue),
	}
}

// OwnerStats is one row of the admin per-user breakdown.
type OwnerStats struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	TodosCount          int    `json:"todos_count"`
	CompletedTodosCount int    `json:"completed_todos_count"`
}

// AdminStats is the population-wide view only admins can request.
type AdminStats struct {
	Stats
	TotalUsers     int          `json:"total_users"`
	UsersWithTodos int          `json:"users_with_todos"`
	TodosByUser    []OwnerStats `json:"todos_by_user"`
}
