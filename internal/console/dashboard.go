package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
)

// DefaultRefresh is how often the dashboard redraws.
const DefaultRefresh = 500 * time.Millisecond

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// StatesFunc returns the current state of every monitored fixture.
type StatesFunc func() []models.FixtureState

// Dashboard periodically redraws a table of every condition of a run
// followed by a short summary.
type Dashboard struct {
	w       io.Writer
	states  StatesFunc
	names   NameFunc
	refresh time.Duration
	clear   bool
}

// NewDashboard creates a dashboard drawing states to w. names may be nil.
func NewDashboard(w io.Writer, states StatesFunc, names NameFunc) *Dashboard {
	return &Dashboard{
		w:       w,
		states:  states,
		names:   names,
		refresh: DefaultRefresh,
		clear:   true,
	}
}

// Run redraws until ctx is done, then draws a final frame marked finished.
func (d *Dashboard) Run(ctx context.Context) {
	started := time.Now()
	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	d.draw(time.Since(started), true)
	for {
		select {
		case <-ctx.Done():
			d.draw(time.Since(started), false)
			return
		case <-ticker.C:
			d.draw(time.Since(started), true)
		}
	}
}

func (d *Dashboard) draw(elapsed time.Duration, active bool) {
	if d.clear {
		fmt.Fprint(d.w, clearScreen)
	}
	RenderDashboard(d.w, d.states(), d.names, elapsed, active)
}

// RenderDashboard writes one frame: a row per condition and the summary.
func RenderDashboard(w io.Writer, states []models.FixtureState, names NameFunc, elapsed time.Duration, active bool) {
	fmt.Fprintln(w, "Live match statistics")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIXTURE\tSTAT\tTEAM\tCURRENT\tTARGET\tSTATUS\tMINUTE")
	if len(states) == 0 {
		fmt.Fprintln(tw, "-\t-\t-\t-\t-\tWaiting...\t-")
	}
	for _, fx := range states {
		label := fx.Fixture.String()
		if names != nil {
			if n := names(fx.Fixture); n != "" {
				label += " " + n
			}
		}
		for _, cs := range fx.Conditions {
			status, minute := ConditionStatus(fx, cs)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				label, cs.Statistic, cs.Team, formatValue(cs.Current), cs.Target, status, minute)
		}
	}
	_ = tw.Flush()

	alerts, met, total := 0, 0, 0
	for _, fx := range states {
		if fx.AlertTriggered {
			alerts++
		}
		met += fx.MetCount()
		total += len(fx.Conditions)
	}
	status := "Monitoring active"
	if !active {
		status = "Monitoring finished"
	}
	secs := int(elapsed.Seconds())

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Alerts triggered:    %d\n", alerts)
	fmt.Fprintf(w, "Fixtures monitored:  %d\n", len(states))
	fmt.Fprintf(w, "Conditions met:      %d/%d\n", met, total)
	fmt.Fprintf(w, "Elapsed time:        %dm %ds\n", secs/60, secs%60)
	fmt.Fprintf(w, "Status:              %s\n", status)
	if active {
		fmt.Fprintln(w, "\nPress Ctrl+C to stop monitoring")
	}
}

// ConditionStatus returns the status column and minute for one condition:
// ALERT once the fixture alerted, MET while waiting for the other
// conditions, Unmet when the match ended, Stopped when the run was
// cancelled, otherwise Tracking with the progress towards the target.
func ConditionStatus(fx models.FixtureState, cs models.ConditionState) (status, minute string) {
	switch {
	case fx.AlertTriggered:
		if cs.MetAt != nil {
			return "ALERT", formatMinute(cs.MetAt)
		}
		return "ALERT", formatMinute(fx.AlertTime)
	case cs.Met:
		return "MET", formatMinute(cs.MetAt)
	case fx.Outcome == models.OutcomeFinished:
		return "Unmet", strconv.Itoa(fx.Elapsed) + "'"
	case fx.Outcome == models.OutcomeCancelled:
		return "Stopped", observedMinute(fx)
	}

	status = "Tracking"
	if cs.Current != nil && cs.Target > 0 {
		pct := min(100, int(*cs.Current/float64(cs.Target)*100))
		status = fmt.Sprintf("Tracking (%d%%)", pct)
	}
	return status, observedMinute(fx)
}

func observedMinute(fx models.FixtureState) string {
	if fx.Polls-fx.FetchErrors == 0 {
		return "-"
	}
	return strconv.Itoa(fx.Elapsed) + "'"
}
