package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/statwatch/internal/apifootball"
	"github.com/rewired-gh/statwatch/internal/config"
	"github.com/rewired-gh/statwatch/internal/console"
	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/metrics"
	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/monitor"
	"github.com/rewired-gh/statwatch/internal/simulator"
	"github.com/rewired-gh/statwatch/internal/storage"
	"github.com/rewired-gh/statwatch/internal/telegram"
)

type alertFlags struct {
	fixtureIDs  []string
	stats       []string
	teams       []string
	targets     []int
	interval    int
	ceiling     int
	mock        bool
	dashboard   bool
	maxDuration time.Duration
}

func alertCmd() *cobra.Command {
	var f alertFlags
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Track fixtures and alert when all of a fixture's conditions are met",
		Long: `Track fixtures and alert when all of a fixture's conditions are met.

Conditions are given as repeated, positionally paired flags (the same number of
--fixture-id, --stat, --team and --target) or in the conditions section of the
config file. Several conditions on one fixture alert only when all of them are
met in the same poll. Fixtures are monitored concurrently; Ctrl+C stops all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlert(cmd.Context(), f)
		},
	}

	cmd.Flags().StringArrayVar(&f.fixtureIDs, "fixture-id", nil, "Fixture id (repeatable)")
	cmd.Flags().StringArrayVar(&f.stats, "stat", nil, "Statistic to track, e.g. Corners (repeatable)")
	cmd.Flags().StringArrayVar(&f.teams, "team", nil, "Team name (repeatable)")
	cmd.Flags().IntSliceVar(&f.targets, "target", nil, "Target value for the statistic (repeatable)")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "Polling interval in seconds (default from config, 60)")
	cmd.Flags().IntVar(&f.ceiling, "ceiling", 0, "Match minute that ends monitoring (default from config, 90)")
	cmd.Flags().BoolVar(&f.mock, "mock", false, "Use the built-in statistics simulator")
	cmd.Flags().BoolVar(&f.dashboard, "dashboard", false, "Show a live table of every condition instead of the change log")
	cmd.Flags().DurationVar(&f.maxDuration, "max-duration", 0, "Stop monitoring after this long (0 = no limit)")
	return cmd
}

func runAlert(ctx context.Context, f alertFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(func(cfg *config.Config) {
		if f.mock {
			cfg.Source.Mode = config.SourceSimulator
		}
		if f.interval > 0 {
			cfg.Monitor.PollInterval = time.Duration(f.interval) * time.Second
		}
		if f.ceiling > 0 {
			cfg.Monitor.ElapsedCeiling = f.ceiling
		}
		if f.maxDuration > 0 {
			cfg.Monitor.MaxDuration = f.maxDuration
		}
	})
	if err != nil {
		return err
	}

	conditions, err := resolveConditions(cfg, f)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	// Source
	var source monitor.Source
	var names console.NameFunc
	if cfg.Source.Mode == config.SourceSimulator {
		source = simulator.NewGenerator(catalog, cfg.Simulator.StepMinutes, cfg.Monitor.ElapsedCeiling)
		names = fixtureNames(catalog)
		warnUnknownTeams(catalog, conditions)
		logger.Info("Using the built-in statistics simulator")
	} else {
		source = apifootball.NewClient(cfg.Source.APIBaseURL, cfg.Source.Timeout, apifootball.ClientConfig{
			APIHost:           cfg.Source.APIHost,
			APIKey:            cfg.Source.APIKey,
			RequestsPerMinute: cfg.Source.RequestsPerMinute,
			MaxRetries:        cfg.Source.MaxRetries,
			RetryDelayBase:    cfg.Source.RetryDelayBase,
		})
		if cfg.Source.APIKey == "" {
			logger.Warn("No API key configured; requests to %s are unauthenticated", cfg.Source.APIBaseURL)
		}
	}

	// Sinks
	var sinks monitor.Sinks
	if !f.dashboard {
		sinks = append(sinks, console.NewPrinter(os.Stdout, names))
	}

	if cfg.Metrics.Enabled {
		rec := metrics.New()
		source = rec.InstrumentSource(source)
		sinks = append(sinks, rec)
		srv := serveMetrics(cfg.Metrics.ListenAddr, rec)
		defer shutdownServer(srv)
	}

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, telegram.Options{
			MaxRetries:     cfg.Telegram.MaxRetries,
			RetryDelayBase: cfg.Telegram.RetryDelayBase,
			QueueSize:      cfg.Telegram.QueueSize,
			NotifyFinished: cfg.Telegram.NotifyFinished,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		// Flush queued alerts before exiting.
		defer tg.Close()
		sinks = append(sinks, tg)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	coord, err := monitor.NewCoordinator(source, sinks, monitor.Options{
		PollInterval: cfg.Monitor.PollInterval,
		Ceiling:      cfg.Monitor.ElapsedCeiling,
		FetchTimeout: cfg.Monitor.FetchTimeout,
	})
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sigCtx.Done():
			logger.Info("Shutdown signal received, stopping all monitors...")
			coord.Stop()
		case <-finished:
		}
	}()

	if cfg.Monitor.MaxDuration > 0 {
		timer := time.AfterFunc(cfg.Monitor.MaxDuration, func() {
			logger.Info("Maximum duration %v reached, stopping all monitors", cfg.Monitor.MaxDuration)
			coord.Stop()
		})
		defer timer.Stop()
	}

	var dashWG sync.WaitGroup
	dashCtx, stopDashboard := context.WithCancel(context.Background())
	defer stopDashboard()
	if f.dashboard {
		dash := console.NewDashboard(os.Stdout, coord.States().All, names)
		dashWG.Add(1)
		go func() {
			defer dashWG.Done()
			dash.Run(dashCtx)
		}()
	} else {
		fmt.Printf("Starting monitor for fixtures %v. Press Ctrl+C to stop.\n", fixtureList(conditions))
	}

	run, err := coord.Run(ctx, conditions)
	stopDashboard()
	dashWG.Wait()
	if err != nil {
		return err
	}

	console.PrintSummary(os.Stdout, run)
	if run.Alerted == len(run.Fixtures) {
		fmt.Println("All alerts triggered across fixtures.")
	}

	if cfg.History.Enabled {
		saveHistory(cfg.History.DBPath, run)
	}
	return nil
}

// resolveConditions prefers command-line conditions over the config file.
func resolveConditions(cfg *config.Config, f alertFlags) ([]models.Condition, error) {
	if len(f.fixtureIDs)+len(f.stats)+len(f.teams)+len(f.targets) > 0 {
		return config.ConditionsFromFlags(f.fixtureIDs, f.stats, f.teams, f.targets)
	}
	conditions, err := cfg.ParsedConditions()
	if err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, errors.New("no conditions given: use --fixture-id/--stat/--team/--target or the conditions section of the config file")
	}
	return conditions, nil
}

func warnUnknownTeams(catalog *simulator.Catalog, conditions []models.Condition) {
	for _, c := range conditions {
		suggestion, ok := catalog.SuggestTeam(c.Fixture, c.Team)
		if ok {
			continue
		}
		if suggestion != "" {
			logger.Warn("Team %q is not playing in fixture %s; did you mean %q?", c.Team, c.Fixture, suggestion)
		} else {
			logger.Warn("Team %q is not playing in fixture %s; its conditions can never be met", c.Team, c.Fixture)
		}
	}
}

func fixtureList(conditions []models.Condition) []models.FixtureID {
	var ids []models.FixtureID
	seen := make(map[models.FixtureID]bool)
	for _, c := range conditions {
		if !seen[c.Fixture] {
			seen[c.Fixture] = true
			ids = append(ids, c.Fixture)
		}
	}
	return ids
}

func serveMetrics(addr string, rec *metrics.Recorder) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", rec.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down server: %v", err)
	}
}

func saveHistory(path string, run models.RunSummary) {
	store, err := storage.New(path)
	if err != nil {
		logger.Error("Failed to open history: %v", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close history: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.SaveSession(ctx, run); err != nil {
		logger.Error("Failed to save session %s: %v", run.SessionID, err)
		return
	}
	logger.Info("Session %s saved to history", run.SessionID)
}
