package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tatianab/eva-escape/internal/config"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/tui"
)

func newPlayCmd(v *viper.Viper, load func() (*app, error)) *cobra.Command {
	var (
		offline  bool
		resumeID string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start a game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()
			if offline {
				a.cfg.Provider = config.ProviderOffline
			}

			ctx := cmd.Context()
			deps, err := a.newEngine(ctx)
			if err != nil {
				return err
			}
			defer deps.Close()

			var resume *models.Session
			if resumeID != "" {
				resume, err = models.LoadSession(a.cfg.SaveDir, resumeID)
				if err != nil {
					return fmt.Errorf("resume %s: %w", resumeID, err)
				}
			}

			if a.cfg.MetricsAddr != "" {
				stop := serveMetrics(a.cfg.MetricsAddr, deps.metrics.Handler(), a.logger)
				defer stop()
			}

			return tui.Run(tui.Options{
				Engine:     deps.engine,
				PlayerName: a.cfg.PlayerName,
				SaveDir:    a.cfg.SaveDir,
				Resume:     resume,
				Logger:     a.logger,
			})
		},
	}

	flags := cmd.Flags()
	flags.String("player", "", "your name (asked at start when empty)")
	flags.BoolVar(&offline, "offline", false, "play against a canned E.V.A. without an API key")
	flags.StringVar(&resumeID, "resume", "", "continue a saved session by id")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	_ = v.BindPFlag("player_name", flags.Lookup("player"))
	_ = v.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
	return cmd
}

// serveMetrics exposes /metrics in the background and returns a func that
// shuts the server down.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
