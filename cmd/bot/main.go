package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"slack-taskbot/internal/httpserver"
	"slack-taskbot/internal/slack"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found", "error", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bot",
		Short:        "Slack bot that lists finished tasks and cleans up after itself",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSocketCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive events through the Events API webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if port == 0 {
				port = a.cfg.Port
			}
			srv := httpserver.NewServer(port, a.cfg.SlackSigningSecret, a.dispatcher, a.logger.With("component", "http"))

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				a.logger.Info("shutdown signal received")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("http server shutdown failed", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func newSocketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "socket",
		Short: "Receive events through Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.SlackAppToken == "" {
				return fmt.Errorf("SLACK_APP_TOKEN is required for socket mode")
			}
			runner := slack.NewSocketRunner(a.slack, func(ctx context.Context, p slack.Payload) {
				a.dispatcher.Handle(ctx, p)
			}, a.logger.With("component", "socket"))
			return runner.Run(ctx)
		},
	}
}
