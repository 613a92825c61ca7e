package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  `Serve the question answering and reporting endpoints over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open warehouse: %w", err)
			}
			defer store.Close()

			eng, cleanup, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			srv, err := server.NewServer(eng, store, logger, &server.Config{
				Host: cfg.Server.Host,
				Port: cfg.Server.Port,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-quit:
				logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}
