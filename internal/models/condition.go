package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCondition marks a condition rejected during configuration.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrNoConditions is returned when monitoring is requested with nothing to watch.
	ErrNoConditions = errors.New("no conditions to monitor")
)

// Condition is one threshold to watch on a fixture: the named statistic for
// the named team must reach Target. Conditions are immutable once created.
type Condition struct {
	Fixture   FixtureID `json:"fixture_id"`
	Statistic string    `json:"statistic"`
	Team      string    `json:"team"`
	Target    int       `json:"target"`
}

// Validate checks that all condition fields are valid
func (c *Condition) Validate() error {
	if err := c.Fixture.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	if strings.TrimSpace(c.Statistic) == "" {
		return fmt.Errorf("%w: statistic must not be empty", ErrInvalidCondition)
	}
	if strings.TrimSpace(c.Team) == "" {
		return fmt.Errorf("%w: team must not be empty", ErrInvalidCondition)
	}
	if c.Target <= 0 {
		return fmt.Errorf("%w: target for %s %s must be greater than 0", ErrInvalidCondition, c.Team, c.Statistic)
	}
	return nil
}

// String renders the condition the way it is shown to users.
func (c Condition) String() string {
	return fmt.Sprintf("%s %s >= %d", c.Team, c.Statistic, c.Target)
}

// FixtureGroup is a fixture plus the ordered conditions registered against it.
// Groups are built once before monitoring starts and never mutated afterwards.
type FixtureGroup struct {
	Fixture    FixtureID   `json:"fixture_id"`
	Conditions []Condition `json:"conditions"`
}

// GroupConditions validates conditions and groups them by fixture. Groups are
// returned in the order their fixture was first seen; within a group the input
// order of conditions is kept.
func GroupConditions(conditions []Condition) ([]FixtureGroup, error) {
	if len(conditions) == 0 {
		return nil, ErrNoConditions
	}

	index := make(map[FixtureID]int)
	var groups []FixtureGroup
	for i := range conditions {
		c := conditions[i]
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		pos, ok := index[c.Fixture]
		if !ok {
			pos = len(groups)
			index[c.Fixture] = pos
			groups = append(groups, FixtureGroup{Fixture: c.Fixture})
		}
		groups[pos].Conditions = append(groups[pos].Conditions, c)
	}
	return groups, nil
}
