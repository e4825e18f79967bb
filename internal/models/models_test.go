package models

import (
	"errors"
	"testing"
)

func TestParseFixtureID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    FixtureID
		wantErr bool
	}{
		{name: "plain", raw: "1001", want: 1001},
		{name: "whitespace", raw: " 1001\n", want: 1001},
		{name: "leading zeros", raw: "0042", want: 42},
		{name: "empty", raw: "", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFixtureID(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFixtureID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFixtureID) {
				t.Errorf("expected ErrInvalidFixtureID, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFixtureID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFixtureIDStringRoundTrip(t *testing.T) {
	id := FixtureID(1003)
	parsed, err := ParseFixtureID(id.String())
	if err != nil {
		t.Fatalf("ParseFixtureID failed: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %d, got %d", id, parsed)
	}
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "valid condition",
			condition: Condition{Fixture: 1001, Statistic: "Corners", Team: "Home Team", Target: 3},
		},
		{
			name:      "missing fixture",
			condition: Condition{Statistic: "Corners", Team: "Home Team", Target: 3},
			wantErr:   true,
		},
		{
			name:      "empty statistic",
			condition: Condition{Fixture: 1001, Statistic: " ", Team: "Home Team", Target: 3},
			wantErr:   true,
		},
		{
			name:      "empty team",
			condition: Condition{Fixture: 1001, Statistic: "Corners", Target: 3},
			wantErr:   true,
		},
		{
			name:      "zero target",
			condition: Condition{Fixture: 1001, Statistic: "Corners", Team: "Home Team"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Condition.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCondition) {
				t.Errorf("expected ErrInvalidCondition, got %v", err)
			}
		})
	}
}

func TestGroupConditions(t *testing.T) {
	conditions := []Condition{
		{Fixture: 2002, Statistic: "Corners", Team: "Home Team", Target: 3},
		{Fixture: 1001, Statistic: "Goals", Team: "Away Team", Target: 1},
		{Fixture: 2002, Statistic: "Total Shots", Team: "Away Team", Target: 5},
	}

	groups, err := GroupConditions(conditions)
	if err != nil {
		t.Fatalf("GroupConditions failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Fixture != 2002 || groups[1].Fixture != 1001 {
		t.Errorf("expected first-seen order [2002 1001], got [%d %d]", groups[0].Fixture, groups[1].Fixture)
	}
	if len(groups[0].Conditions) != 2 {
		t.Fatalf("expected 2 conditions for 2002, got %d", len(groups[0].Conditions))
	}
	if groups[0].Conditions[1].Statistic != "Total Shots" {
		t.Errorf("expected input order kept, got %s", groups[0].Conditions[1].Statistic)
	}
	for _, g := range groups {
		for _, c := range g.Conditions {
			if c.Fixture != g.Fixture {
				t.Errorf("condition %v filed under fixture %d", c, g.Fixture)
			}
		}
	}
}

func TestGroupConditions_Errors(t *testing.T) {
	if _, err := GroupConditions(nil); !errors.Is(err, ErrNoConditions) {
		t.Errorf("expected ErrNoConditions, got %v", err)
	}

	_, err := GroupConditions([]Condition{
		{Fixture: 1001, Statistic: "Corners", Team: "Home Team", Target: 3},
		{Fixture: 1001, Statistic: "Corners", Team: "Home Team", Target: -1},
	})
	if !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestStatSnapshotValue(t *testing.T) {
	var snap StatSnapshot
	snap.Set("Home Team", "Corners", Float(4))
	snap.Set("Home Team", "Ball Possession", nil)

	if v, ok := snap.Value("Home Team", "Corners"); !ok || v != 4 {
		t.Errorf("expected (4, true), got (%v, %v)", v, ok)
	}
	if _, ok := snap.Value("Home Team", "Ball Possession"); ok {
		t.Error("null value must not be reported")
	}
	if _, ok := snap.Value("Home Team", "Goals"); ok {
		t.Error("missing statistic must not be reported")
	}
	if _, ok := snap.Value("Away Team", "Corners"); ok {
		t.Error("missing team must not be reported")
	}

	var nilSnap *StatSnapshot
	if _, ok := nilSnap.Value("Home Team", "Corners"); ok {
		t.Error("nil snapshot must not report values")
	}
}

func TestFixtureStateClone(t *testing.T) {
	state := FixtureState{
		Fixture: 1001,
		Conditions: []ConditionState{
			{Condition: Condition{Fixture: 1001, Statistic: "Corners", Team: "Home Team", Target: 3}, Current: Float(3), Met: true, MetAt: Minute(15)},
		},
		AlertTime: Minute(15),
	}

	clone := state.Clone()
	*clone.Conditions[0].Current = 99
	*clone.Conditions[0].MetAt = 99
	*clone.AlertTime = 99
	clone.Conditions[0].Met = false

	if *state.Conditions[0].Current != 3 || *state.Conditions[0].MetAt != 15 || *state.AlertTime != 15 {
		t.Error("clone shares pointers with the original")
	}
	if !state.Conditions[0].Met {
		t.Error("clone shares the conditions slice with the original")
	}
	if state.MetCount() != 1 {
		t.Errorf("expected 1 met condition, got %d", state.MetCount())
	}
}

func TestCountMet(t *testing.T) {
	conds := []ConditionState{{Met: true}, {}, {Met: true}}
	if n := CountMet(conds); n != 2 {
		t.Errorf("expected 2 met conditions, got %d", n)
	}
	if n := CountMet(nil); n != 0 {
		t.Errorf("expected 0 for no conditions, got %d", n)
	}
}

func TestOutcome(t *testing.T) {
	if OutcomeActive.Terminal() {
		t.Error("ACTIVE must not be terminal")
	}
	for _, o := range []Outcome{OutcomeAlerted, OutcomeFinished, OutcomeCancelled} {
		if !o.Terminal() {
			t.Errorf("%s must be terminal", o)
		}
		parsed, err := ParseOutcome(string(o))
		if err != nil || parsed != o {
			t.Errorf("ParseOutcome(%s) = %s, %v", o, parsed, err)
		}
	}
	if _, err := ParseOutcome("DONE"); err == nil {
		t.Error("expected error for unknown outcome")
	}
}
