package models

import (
	"fmt"
	"time"
)

// Outcome is the lifecycle state of one fixture monitor.
type Outcome string

const (
	OutcomeActive    Outcome = "ACTIVE"
	OutcomeAlerted   Outcome = "ALERTED"
	OutcomeFinished  Outcome = "FINISHED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// Terminal reports whether no further transitions can happen.
func (o Outcome) Terminal() bool {
	return o == OutcomeAlerted || o == OutcomeFinished || o == OutcomeCancelled
}

// ParseOutcome converts a stored outcome string back into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeActive, OutcomeAlerted, OutcomeFinished, OutcomeCancelled:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// ConditionResult is the evaluation of one condition against one snapshot.
type ConditionResult struct {
	Condition
	Current *float64 `json:"current,omitempty"`
	Met     bool     `json:"met"`
}

// ConditionState tracks one condition across a monitoring run. Met flips from
// false to true at most once; MetAt holds the match minute it happened.
type ConditionState struct {
	Condition
	Current *float64 `json:"current,omitempty"`
	Met     bool     `json:"met"`
	MetAt   *int     `json:"met_at,omitempty"`
}

// FixtureState aggregates everything observed about one fixture during a run.
type FixtureState struct {
	Fixture        FixtureID        `json:"fixture_id"`
	Conditions     []ConditionState `json:"conditions"`
	Outcome        Outcome          `json:"outcome"`
	AlertTriggered bool             `json:"alert_triggered"`
	AlertTime      *int             `json:"alert_time,omitempty"`
	Finished       bool             `json:"finished"` // elapsed reached the ceiling
	Elapsed        int              `json:"elapsed"`
	LastObserved   time.Time        `json:"last_observed"`
	Polls          int              `json:"polls"`
	FetchErrors    int              `json:"fetch_errors"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s FixtureState) Clone() FixtureState {
	out := s
	out.Conditions = make([]ConditionState, len(s.Conditions))
	for i, c := range s.Conditions {
		if c.Current != nil {
			c.Current = Float(*c.Current)
		}
		if c.MetAt != nil {
			c.MetAt = Minute(*c.MetAt)
		}
		out.Conditions[i] = c
	}
	if s.AlertTime != nil {
		out.AlertTime = Minute(*s.AlertTime)
	}
	return out
}

// MetCount returns how many conditions have been met so far.
func (s FixtureState) MetCount() int {
	return CountMet(s.Conditions)
}

// CountMet returns how many of conds are met.
func CountMet(conds []ConditionState) int {
	n := 0
	for _, c := range conds {
		if c.Met {
			n++
		}
	}
	return n
}

// Minute returns a pointer to m.
func Minute(m int) *int {
	return &m
}

// ConditionEvent is emitted once per condition per poll cycle.
type ConditionEvent struct {
	Fixture    FixtureID `json:"fixture_id"`
	Statistic  string    `json:"statistic"`
	Team       string    `json:"team"`
	Current    *float64  `json:"current,omitempty"`
	Target     int       `json:"target"`
	Met        bool      `json:"met"`
	MetAt      *int      `json:"met_at,omitempty"`
	Elapsed    int       `json:"elapsed"`
	ObservedAt time.Time `json:"observed_at"`
}

// OutcomeEvent is emitted once per fixture when its monitor stops.
type OutcomeEvent struct {
	Fixture     FixtureID        `json:"fixture_id"`
	Outcome     Outcome          `json:"outcome"`
	Conditions  []ConditionState `json:"conditions"`
	OutcomeTime *int             `json:"outcome_time,omitempty"` // match minute
	At          time.Time        `json:"at"`
}

// RunSummary is the durable record of one monitoring run.
type RunSummary struct {
	SessionID     string         `json:"session_id"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       time.Time      `json:"ended_at"`
	Alerted       int            `json:"alerted"`
	FinishedUnmet int            `json:"finished_unmet"`
	Cancelled     int            `json:"cancelled"`
	Fixtures      []FixtureState `json:"fixtures"`
}
