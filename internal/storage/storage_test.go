package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
)

func newMemory(t *testing.T) *Storage {
	t.Helper()
	s, err := New(MemoryPath)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) models.RunSummary {
	return models.RunSummary{
		SessionID:     id,
		StartedAt:     started,
		EndedAt:       started.Add(3 * time.Minute),
		Alerted:       1,
		FinishedUnmet: 1,
		Fixtures: []models.FixtureState{
			{
				Fixture:        1001,
				Outcome:        models.OutcomeAlerted,
				AlertTriggered: true,
				AlertTime:      models.Minute(25),
				Elapsed:        25,
				Polls:          5,
				Conditions: []models.ConditionState{
					{
						Condition: models.Condition{Fixture: 1001, Statistic: "Corners", Team: "Manchester City", Target: 5},
						Current:   models.Float(5),
						Met:       true,
						MetAt:     models.Minute(25),
					},
					{
						Condition: models.Condition{Fixture: 1001, Statistic: "Total Shots", Team: "Liverpool", Target: 3},
						Current:   models.Float(6),
						Met:       true,
						MetAt:     models.Minute(10),
					},
				},
			},
			{
				Fixture:     1002,
				Outcome:     models.OutcomeFinished,
				Finished:    true,
				Elapsed:     90,
				Polls:       20,
				FetchErrors: 2,
				Conditions: []models.ConditionState{
					{
						Condition: models.Condition{Fixture: 1002, Statistic: "Goals", Team: "Real Madrid", Target: 9},
					},
				},
			},
		},
	}
}

func TestStorage_SaveAndList(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	if err := s.SaveSession(ctx, sampleRun("s1", started)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	runs, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(runs))
	}

	run := runs[0]
	if run.SessionID != "s1" || !run.StartedAt.Equal(started) || run.Alerted != 1 || run.FinishedUnmet != 1 {
		t.Errorf("Unexpected session header: %+v", run)
	}
	if len(run.Fixtures) != 2 {
		t.Fatalf("Expected 2 fixtures, got %d", len(run.Fixtures))
	}

	alerted := run.Fixtures[0]
	if alerted.Fixture != 1001 || alerted.Outcome != models.OutcomeAlerted || !alerted.AlertTriggered {
		t.Errorf("Unexpected first fixture: %+v", alerted)
	}
	if alerted.AlertTime == nil || *alerted.AlertTime != 25 {
		t.Errorf("Expected alert minute 25, got %v", alerted.AlertTime)
	}
	if len(alerted.Conditions) != 2 || alerted.Conditions[1].Team != "Liverpool" {
		t.Fatalf("Expected conditions in stored order, got %+v", alerted.Conditions)
	}
	if c := alerted.Conditions[0]; c.Current == nil || *c.Current != 5 || c.MetAt == nil || *c.MetAt != 25 {
		t.Errorf("Unexpected condition: %+v", c)
	}

	finished := run.Fixtures[1]
	if finished.AlertTime != nil || !finished.Finished || finished.FetchErrors != 2 {
		t.Errorf("Unexpected second fixture: %+v", finished)
	}
	if c := finished.Conditions[0]; c.Current != nil || c.Met || c.MetAt != nil || c.Fixture != 1002 {
		t.Errorf("Expected never-observed condition, got %+v", c)
	}
}

func TestStorage_ListNewestFirstWithLimit(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		// Sub-second offsets check that timestamps sort correctly as text.
		started := base.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := s.SaveSession(ctx, sampleRun(id, started)); err != nil {
			t.Fatalf("SaveSession(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(runs) != 2 || runs[0].SessionID != "c" || runs[1].SessionID != "b" {
		t.Errorf("Expected [c b], got %v", sessionIDs(runs))
	}

	all, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 sessions, got %d", len(all))
	}
}

func TestStorage_Clear(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := s.SaveSession(ctx, sampleRun(id, time.Now())); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 cleared sessions, got %d", n)
	}

	runs, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected empty history, got %d sessions", len(runs))
	}

	// Same ids can be stored again once cleared.
	if err := s.SaveSession(ctx, sampleRun("a", time.Now())); err != nil {
		t.Errorf("SaveSession after Clear failed: %v", err)
	}
}

func TestStorage_RejectsInvalidSessions(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, models.RunSummary{}); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}

	if err := s.SaveSession(ctx, sampleRun("dup", time.Now())); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.SaveSession(ctx, sampleRun("dup", time.Now())); err == nil {
		t.Error("Expected duplicate session id to fail")
	}

	runs, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(runs) != 1 || len(runs[0].Fixtures) != 2 {
		t.Errorf("Failed save must not leave partial rows, got %+v", runs)
	}
}

func TestStorage_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.SaveSession(ctx, sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(runs) != 1 || runs[0].SessionID != "persisted" {
		t.Errorf("Expected persisted session, got %v", sessionIDs(runs))
	}
}

func sessionIDs(runs []models.RunSummary) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.SessionID
	}
	return ids
}
