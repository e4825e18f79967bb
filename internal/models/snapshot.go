package models

import (
	"time"
)

// TeamStats maps statistic name to its current value. A nil value means the
// source reported the statistic without a value.
type TeamStats map[string]*float64

// StatSnapshot is the result of one fetch for one fixture. It is produced and
// discarded on every poll.
type StatSnapshot struct {
	Fixture   FixtureID            `json:"fixture_id"`
	Teams     map[string]TeamStats `json:"teams"`
	Elapsed   int                  `json:"elapsed"` // match minute
	FetchedAt time.Time            `json:"fetched_at"`
}

// Value looks up a statistic for a team. ok is false when the team or the
// statistic is missing or the value is null.
func (s *StatSnapshot) Value(team, statistic string) (float64, bool) {
	if s == nil || s.Teams == nil {
		return 0, false
	}
	stats, ok := s.Teams[team]
	if !ok {
		return 0, false
	}
	v, ok := stats[statistic]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Set stores a value, creating the team entry when needed.
func (s *StatSnapshot) Set(team, statistic string, value *float64) {
	if s.Teams == nil {
		s.Teams = make(map[string]TeamStats)
	}
	stats, ok := s.Teams[team]
	if !ok {
		stats = make(TeamStats)
		s.Teams[team] = stats
	}
	stats[statistic] = value
}

// Float returns a pointer to v, for building snapshots.
func Float(v float64) *float64 {
	return &v
}
