// Package models defines the core domain entities for statwatch.
// These models represent tracked fixtures, threshold conditions, fetched
// statistics snapshots, and the per-fixture observation state produced while
// monitoring. Entities created from user input carry a Validate method so
// configuration errors are caught before any monitoring starts.
//
// Terminology:
//   - Fixture: one tracked match, identified by a FixtureID.
//   - Condition: one (statistic, team, target) threshold to watch.
//   - Snapshot: one fetched set of statistic values plus the match minute.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFixtureID is returned when a fixture identifier cannot be parsed.
var ErrInvalidFixtureID = errors.New("invalid fixture id")

// FixtureID is the canonical fixture identifier. Strings coming from flags,
// query parameters or config files must go through ParseFixtureID so the same
// fixture is never tracked under two different keys.
type FixtureID int64

// ParseFixtureID converts a user or wire supplied identifier into a FixtureID.
// Leading and trailing whitespace is ignored; "0042" and "42" are the same id.
func ParseFixtureID(raw string) (FixtureID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidFixtureID)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFixtureID, raw)
	}
	id := FixtureID(n)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

// Validate checks that the id is positive
func (id FixtureID) Validate() error {
	if id <= 0 {
		return fmt.Errorf("%w: %d must be positive", ErrInvalidFixtureID, int64(id))
	}
	return nil
}

// String returns the decimal encoding used for every string-keyed map and label.
func (id FixtureID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
