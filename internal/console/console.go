// Package console renders monitoring progress, run summaries and stored
// history for a terminal.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/simulator"
)

// NameFunc returns a display name for a fixture, or "" when unknown.
type NameFunc func(models.FixtureID) string

// Printer is a monitor sink that writes one line per changed condition and
// one line per stopped fixture.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	names NameFunc
	last  map[conditionKey]string
}

type conditionKey struct {
	fixture   models.FixtureID
	team      string
	statistic string
}

// NewPrinter creates a printer writing to w. names may be nil.
func NewPrinter(w io.Writer, names NameFunc) *Printer {
	return &Printer{
		w:     w,
		names: names,
		last:  make(map[conditionKey]string),
	}
}

// ConditionUpdate prints the condition when its value or met state changed.
func (p *Printer) ConditionUpdate(ev models.ConditionEvent) {
	key := conditionKey{fixture: ev.Fixture, team: ev.Team, statistic: ev.Statistic}
	state := formatValue(ev.Current) + "/" + strconv.Itoa(ev.Target)
	if ev.Met {
		state += " met"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last[key] == state {
		return
	}
	p.last[key] = state

	mark := " "
	if ev.Met {
		mark = "✓"
	}
	fmt.Fprintf(p.w, "[%s %2d'] %s %s %s: %s/%d\n",
		ev.Fixture, ev.Elapsed, mark, ev.Team, ev.Statistic, formatValue(ev.Current), ev.Target)
}

// FixtureOutcome prints why a fixture stopped.
func (p *Printer) FixtureOutcome(ev models.OutcomeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := p.fixtureName(ev.Fixture)
	switch ev.Outcome {
	case models.OutcomeAlerted:
		fmt.Fprintf(p.w, "ALERT: all %d conditions met in %s at %s\n", len(ev.Conditions), name, formatMinute(ev.OutcomeTime))
		for _, cs := range ev.Conditions {
			fmt.Fprintf(p.w, "  %s has reached %s %s (target %d)\n",
				cs.Team, formatValue(cs.Current), strings.ToLower(cs.Statistic), cs.Target)
		}
	case models.OutcomeFinished:
		fmt.Fprintf(p.w, "Finished: %s at %s, %d/%d conditions met\n",
			name, formatMinute(ev.OutcomeTime), models.CountMet(ev.Conditions), len(ev.Conditions))
	default:
		fmt.Fprintf(p.w, "Stopped: %s at %s, %d/%d conditions met\n",
			name, formatMinute(ev.OutcomeTime), models.CountMet(ev.Conditions), len(ev.Conditions))
	}
}

func (p *Printer) fixtureName(id models.FixtureID) string {
	if p.names != nil {
		if n := p.names(id); n != "" {
			return fmt.Sprintf("fixture %s (%s)", id, n)
		}
	}
	return "fixture " + id.String()
}

// PrintSummary writes the per-fixture results of a run as a table.
func PrintSummary(w io.Writer, run models.RunSummary) {
	fmt.Fprintf(w, "\nSession %s: %d alerted, %d finished without alert, %d cancelled (%s)\n",
		run.SessionID, run.Alerted, run.FinishedUnmet, run.Cancelled,
		run.EndedAt.Sub(run.StartedAt).Round(time.Second))
	printFixtures(w, run.Fixtures)
}

// PrintHistory writes stored sessions, newest first as given.
func PrintHistory(w io.Writer, runs []models.RunSummary, names NameFunc) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}
	now := time.Now()
	for i, run := range runs {
		fmt.Fprintf(w, "%d. Session %s started %s (%s), lasted %s\n",
			i+1, run.SessionID, run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
			run.EndedAt.Sub(run.StartedAt).Round(time.Second))
		for _, fx := range run.Fixtures {
			label := fx.Fixture.String()
			if names != nil {
				if n := names(fx.Fixture); n != "" {
					label += " " + n
				}
			}
			fmt.Fprintf(w, "   %s: %s\n", label, describeOutcome(fx))
			for _, cs := range fx.Conditions {
				status := "not met"
				if cs.Met {
					status = "met at " + formatMinute(cs.MetAt)
				}
				fmt.Fprintf(w, "     - %s %s >= %d: %s (last %s)\n",
					cs.Team, cs.Statistic, cs.Target, status, formatValue(cs.Current))
			}
		}
		fmt.Fprintln(w)
	}
}

// PrintCatalog lists simulated fixtures and the statistics they report.
func PrintCatalog(w io.Writer, fixtures []simulator.Fixture) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHOME\tAWAY\tLEAGUE")
	for _, f := range fixtures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.HomeTeam, f.AwayTeam, f.League)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nStatistics: %s\n", strings.Join(simulator.AvailableStats(), ", "))
}

func printFixtures(w io.Writer, fixtures []models.FixtureState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIXTURE\tOUTCOME\tMINUTE\tMET\tPOLLS\tERRORS")
	for _, fx := range fixtures {
		fmt.Fprintf(tw, "%s\t%s\t%d'\t%d/%d\t%s\t%d\n",
			fx.Fixture, fx.Outcome, fx.Elapsed, fx.MetCount(), len(fx.Conditions), humanize.Comma(int64(fx.Polls)), fx.FetchErrors)
	}
	_ = tw.Flush()
}

func describeOutcome(fx models.FixtureState) string {
	switch fx.Outcome {
	case models.OutcomeAlerted:
		return "alert at " + formatMinute(fx.AlertTime)
	case models.OutcomeFinished:
		return fmt.Sprintf("finished without alert (%d/%d met)", fx.MetCount(), len(fx.Conditions))
	case models.OutcomeCancelled:
		return fmt.Sprintf("cancelled at %d' (%d/%d met)", fx.Elapsed, fx.MetCount(), len(fx.Conditions))
	default:
		return strings.ToLower(string(fx.Outcome))
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatMinute(m *int) string {
	if m == nil {
		return "unknown minute"
	}
	return strconv.Itoa(*m) + "'"
}
