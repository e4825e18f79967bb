package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/monitor"
)

// sample returns the value of the first sample of name whose labels include want.
func sample(t *testing.T, r *Recorder, name string, want map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("no sample %s%v", name, want)
	return 0
}

func TestRecorder_ConditionUpdates(t *testing.T) {
	r := New()

	r.ConditionUpdate(models.ConditionEvent{Fixture: 1001, Team: "Home Team", Statistic: "Corners", Current: models.Float(3), Target: 5})
	r.ConditionUpdate(models.ConditionEvent{Fixture: 1001, Team: "Home Team", Statistic: "Corners", Current: models.Float(5), Target: 5, Met: true})
	r.ConditionUpdate(models.ConditionEvent{Fixture: 1002, Team: "Away Team", Statistic: "Goals", Target: 1})

	assert.Equal(t, 5.0, sample(t, r, "statwatch_condition_value", map[string]string{"fixture": "1001", "statistic": "Corners"}))
	assert.Equal(t, 1.0, sample(t, r, "statwatch_condition_updates_total", map[string]string{"fixture": "1001", "met": "true"}))
	assert.Equal(t, 1.0, sample(t, r, "statwatch_condition_updates_total", map[string]string{"fixture": "1002", "met": "false"}))
	assert.Equal(t, 2.0, sample(t, r, "statwatch_active_fixtures", nil))
}

func TestRecorder_Outcomes(t *testing.T) {
	r := New()

	r.ConditionUpdate(models.ConditionEvent{Fixture: 1, Team: "A", Statistic: "Corners", Target: 1})
	r.ConditionUpdate(models.ConditionEvent{Fixture: 2, Team: "A", Statistic: "Corners", Target: 1})
	r.FixtureOutcome(models.OutcomeEvent{Fixture: 1, Outcome: models.OutcomeAlerted})
	r.FixtureOutcome(models.OutcomeEvent{Fixture: 3, Outcome: models.OutcomeCancelled})

	assert.Equal(t, 1.0, sample(t, r, "statwatch_fixture_outcomes_total", map[string]string{"outcome": "ALERTED"}))
	assert.Equal(t, 1.0, sample(t, r, "statwatch_fixture_outcomes_total", map[string]string{"outcome": "CANCELLED"}))
	assert.Equal(t, 1.0, sample(t, r, "statwatch_active_fixtures", nil))

	// A stopped fixture does not become active again.
	r.ConditionUpdate(models.ConditionEvent{Fixture: 1, Team: "A", Statistic: "Corners", Target: 1})
	assert.Equal(t, 1.0, sample(t, r, "statwatch_active_fixtures", nil))
}

func TestRecorder_InstrumentSource(t *testing.T) {
	r := New()
	fail := true
	src := r.InstrumentSource(monitor.SourceFunc(func(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error) {
		if fail {
			fail = false
			return models.StatSnapshot{}, errors.New("boom")
		}
		return models.StatSnapshot{Fixture: fixture, Elapsed: 10}, nil
	}))

	_, err := src.Fetch(context.Background(), 1001)
	assert.Error(t, err)
	snap, err := src.Fetch(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Elapsed)

	assert.Equal(t, 2.0, sample(t, r, "statwatch_fetches_total", map[string]string{"fixture": "1001"}))
	assert.Equal(t, 1.0, sample(t, r, "statwatch_fetch_errors_total", map[string]string{"fixture": "1001"}))
	assert.Equal(t, 2.0, sample(t, r, "statwatch_fetch_duration_seconds", nil))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.FixtureOutcome(models.OutcomeEvent{Fixture: 7, Outcome: models.OutcomeFinished})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `statwatch_fixture_outcomes_total{outcome="FINISHED"} 1`), string(body))
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	// Two recorders must not collide on registration.
	a, b := New(), New()
	a.FixtureOutcome(models.OutcomeEvent{Fixture: 1, Outcome: models.OutcomeAlerted})

	assert.Equal(t, 1.0, sample(t, a, "statwatch_fixture_outcomes_total", map[string]string{"outcome": "ALERTED"}))
	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.NotEqual(t, "statwatch_fixture_outcomes_total", mf.GetName())
	}
}
