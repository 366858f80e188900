package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	"github.com/tzl-ops/flightarchive/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	f := &extractFlags{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-extract whenever workbooks in the archive change",
		Long: `Run an extraction, then watch the archive and extract again after
workbooks are added, saved or removed. With metrics.listen set, Prometheus
metrics are served on /metrics while watching.

Examples:
  flightarchive watch --root /srv/archive --year 2025 -o flights.json --checkpoint file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)
			f.progress = false
			ctx := cmd.Context()

			if _, err := a.extract(ctx, f); err != nil && apperrors.IsFatal(err) {
				return err
			} else if err != nil {
				a.log.Error("Extraction failed", zap.Error(err))
			}

			w, err := watch.NewWatcher(a.cfg.Archive.Root, debounce, a.log)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeArchiveRootMissing, "watch archive")
			}
			w.OnChange = func(ctx context.Context, changed []string) error {
				a.log.Info("Re-extracting", zap.Strings("changed", changed))
				_, err := a.extract(ctx, f)
				return err
			}

			if addr := a.cfg.Metrics.Listen; addr != "" {
				srv := &http.Server{Addr: addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("Metrics server failed", zap.Error(err))
					}
				}()
				defer srv.Shutdown(context.Background())
				a.log.Info("Serving metrics", zap.String("addr", addr))
			}

			a.log.Info("Watching archive", zap.String("root", a.cfg.Archive.Root))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before re-extracting")
	return cmd
}

func metricsMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
