package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/httpapi"
	"github.com/waterwatch/lifedrop/pkg/scheduler"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the expiry sweeper when enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}

			metrics.Init(prometheus.DefaultRegisterer)
			gin.SetMode(gin.ReleaseMode)

			handler := httpapi.NewHandler(httpapi.Deps{
				DB:        app.Database,
				Generator: app.Generator,
				Geocoder:  app.Geocoder,
				Notifier:  app.Notifier,
				Logger:    app.Logger,
				PhotoDir:  app.Cfg.PhotoDir,
				Now:       app.Now,

				Water:         app.Water,
				WaterDefaults: app.waterDefaults(),
			})

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if app.Cfg.Sweeper.Enabled {
				sweeper, err := scheduler.NewSweeper(app.Database, app.Logger, app.Cfg.Sweeper.Schedule)
				if err != nil {
					return err
				}
				sweeper.Start()
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					sweeper.Stop(stopCtx)
				}()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			app.Logger.Info("HTTP server started", zap.String("addr", addr))
			fmt.Printf("Listening on %s (Ctrl+C to stop)\n", addr)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			app.Logger.Info("Received shutdown signal, shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			app.Logger.Info("Server gracefully stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to server.addr in config)")

	return cmd
}
