// Command statwatch watches live football statistics and alerts when every
// threshold set for a fixture is reached.
//
// Usage:
//
//	statwatch alert --fixture-id 1001 --stat Corners --team "Manchester City" --target 5 --mock
//	statwatch alert --config configs/config.yaml
//	statwatch mock-server --addr 127.0.0.1:5000
//	statwatch fixtures
//	statwatch history --limit 5
//	statwatch history clear
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/statwatch/internal/config"
	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/simulator"
)

var configPath string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "statwatch",
		Short:         "Football statistics threshold alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults and environment only when empty)")

	root.AddCommand(alertCmd())
	root.AddCommand(mockServerCmd())
	root.AddCommand(fixturesCmd())
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration and sets up logging.
// adjust runs between loading and validation so flags can override values.
func loadConfig(adjust func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Debug("Configuration loaded from %s", configPath)
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*simulator.Catalog, error) {
	if cfg.Simulator.CatalogPath == "" {
		return simulator.DefaultCatalog(), nil
	}
	return simulator.LoadCatalog(cfg.Simulator.CatalogPath)
}

// fixtureNames adapts a catalog for display.
func fixtureNames(catalog *simulator.Catalog) func(models.FixtureID) string {
	return func(id models.FixtureID) string {
		if f, ok := catalog.Lookup(id); ok {
			return f.Name()
		}
		return ""
	}
}
