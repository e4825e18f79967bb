package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/statwatch/internal/config"
	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/simulator"
)

func mockServerCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve simulated statistics in the API-Football response shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				if addr != "" {
					cfg.Simulator.ListenAddr = addr
				}
			})
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			gen := simulator.NewGenerator(catalog, cfg.Simulator.StepMinutes, cfg.Monitor.ElapsedCeiling)
			srv := &http.Server{
				Addr:              cfg.Simulator.ListenAddr,
				Handler:           simulator.NewRouter(gen),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Mock server listening on http://%s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				logger.Info("Shutdown signal received, stopping mock server")
				shutdownServer(srv)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:5000)")
	return cmd
}
