package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tickstory/internal/cli"
	httpAdapter "github.com/aretw0/tickstory/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the engine as a JSON API over HTTP, with Server-Sent Events for
session updates and story reloads, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(app.Logger)}
		if app.Metrics != nil {
			opts = append(opts, httpAdapter.WithMetrics(app.Metrics.Handler()))
		}
		watcher, canWatch := app.Catalog.(cli.Watcher)
		if canWatch {
			opts = append(opts, httpAdapter.WithWatch(watcher.Watch))
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(app.Engine, app.Store, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if canWatch {
			go func() {
				if err := cli.ReloadOnChange(ctx, watcher, app.Engine, app.Logger); err != nil {
					app.Logger.Warn("story watcher stopped", "error", err)
				}
			}()
		}

		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("tickstory server listening", "address", srv.Addr, "stories", app.Config.Stories)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			app.Logger.Info("shutting down", "signal", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			app.Logger.Info("tickstory server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides the configuration)")
}
