package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/simulator"
)

func condition(current *float64, met bool) models.ConditionEvent {
	return models.ConditionEvent{
		Fixture:   1001,
		Statistic: "Corners",
		Team:      "Manchester City",
		Current:   current,
		Target:    5,
		Met:       met,
		Elapsed:   30,
	}
}

func TestPrinter_PrintsOnlyChanges(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.ConditionUpdate(condition(models.Float(3), false))
	p.ConditionUpdate(condition(models.Float(3), false))
	p.ConditionUpdate(condition(models.Float(5), true))
	p.ConditionUpdate(condition(nil, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "[1001 30']") || !strings.Contains(lines[0], "Manchester City Corners: 3/5") {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "✓") {
		t.Errorf("Expected met mark in %q", lines[1])
	}
	if !strings.Contains(lines[2], "Corners: -/5") {
		t.Errorf("Expected missing value dash in %q", lines[2])
	}
}

func TestPrinter_Outcomes(t *testing.T) {
	var buf bytes.Buffer
	names := func(id models.FixtureID) string {
		if id == 1001 {
			return "Manchester City vs Liverpool"
		}
		return ""
	}
	p := NewPrinter(&buf, names)

	conds := []models.ConditionState{{
		Condition: models.Condition{Fixture: 1001, Statistic: "Corners", Team: "Manchester City", Target: 5},
		Current:   models.Float(5),
		Met:       true,
	}}
	p.FixtureOutcome(models.OutcomeEvent{Fixture: 1001, Outcome: models.OutcomeAlerted, Conditions: conds, OutcomeTime: models.Minute(35)})
	p.FixtureOutcome(models.OutcomeEvent{Fixture: 1002, Outcome: models.OutcomeFinished, Conditions: conds, OutcomeTime: models.Minute(90)})
	p.FixtureOutcome(models.OutcomeEvent{Fixture: 1003, Outcome: models.OutcomeCancelled})

	out := buf.String()
	for _, want := range []string{
		"ALERT: all 1 conditions met in fixture 1001 (Manchester City vs Liverpool) at 35'",
		"Manchester City has reached 5 corners (target 5)",
		"Finished: fixture 1002 at 90', 1/1 conditions met",
		"Stopped: fixture 1003 at unknown minute, 0/0 conditions met",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func sampleRun() models.RunSummary {
	start := time.Now().Add(-2 * time.Hour)
	return models.RunSummary{
		SessionID:     "abc",
		StartedAt:     start,
		EndedAt:       start.Add(95 * time.Second),
		Alerted:       1,
		FinishedUnmet: 1,
		Fixtures: []models.FixtureState{
			{
				Fixture:   1001,
				Outcome:   models.OutcomeAlerted,
				AlertTime: models.Minute(25),
				Elapsed:   25,
				Polls:     5,
				Conditions: []models.ConditionState{{
					Condition: models.Condition{Fixture: 1001, Statistic: "Corners", Team: "Manchester City", Target: 5},
					Current:   models.Float(5),
					Met:       true,
					MetAt:     models.Minute(25),
				}},
			},
			{
				Fixture:     1002,
				Outcome:     models.OutcomeFinished,
				Elapsed:     90,
				Polls:       1200,
				FetchErrors: 3,
				Conditions: []models.ConditionState{{
					Condition: models.Condition{Fixture: 1002, Statistic: "Goals", Team: "Real Madrid", Target: 9},
				}},
			},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleRun())

	out := buf.String()
	for _, want := range []string{
		"Session abc: 1 alerted, 1 finished without alert, 0 cancelled (1m35s)",
		"FIXTURE",
		"ALERTED",
		"1,200",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil, nil)
	if !strings.Contains(buf.String(), "History is empty.") {
		t.Errorf("Expected empty notice, got %q", buf.String())
	}

	buf.Reset()
	PrintHistory(&buf, []models.RunSummary{sampleRun()}, func(id models.FixtureID) string {
		if id == 1001 {
			return "Manchester City vs Liverpool"
		}
		return ""
	})

	out := buf.String()
	for _, want := range []string{
		"1. Session abc",
		"2 hours ago",
		"1001 Manchester City vs Liverpool: alert at 25'",
		"Manchester City Corners >= 5: met at 25' (last 5)",
		"1002: finished without alert (0/1 met)",
		"Real Madrid Goals >= 9: not met (last -)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("History missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	PrintCatalog(&buf, simulator.DefaultCatalog().Fixtures())

	out := buf.String()
	for _, want := range []string{"1001", "Manchester City", "Serie A", "Statistics: Corners, Total Shots, Goals"} {
		if !strings.Contains(out, want) {
			t.Errorf("Catalog missing %q:\n%s", want, out)
		}
	}
}
