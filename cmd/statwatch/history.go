package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/statwatch/internal/console"
	"github.com/rewired-gh/statwatch/internal/simulator"
	"github.com/rewired-gh/statwatch/internal/storage"
)

func fixturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "List the simulated fixtures and their statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			console.PrintCatalog(os.Stdout, catalog.Fixtures())
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past monitoring sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			catalog, err := loadCatalog(cfg)
			if err != nil {
				catalog = simulator.DefaultCatalog()
			}
			console.PrintHistory(os.Stdout, runs, fixtureNames(catalog))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of sessions to show (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d sessions.\n", n)
			return nil
		},
	})
	return cmd
}
