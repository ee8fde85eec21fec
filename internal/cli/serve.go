package cli

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ecoresiduos/internal/adapters/reports"
	"ecoresiduos/internal/blob"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/sources"
)

const shutdownTimeout = 10 * time.Second

// server bundles the HTTP listener with the export worker and the stores
// it owns.
type server struct {
	http    *http.Server
	worker  *reports.Worker
	records sources.Store
	blobs   blob.Store
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve aggregations, charts, exports and reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			srv, err := a.newServer(ctx)
			if err != nil {
				return err
			}
			return srv.run(ctx, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func (a *app) newServer(ctx context.Context) (*server, error) {
	prom := observability.NewPrometheusRecorder("")
	metrics := observability.MultiRecorder{prom, observability.NewExpvarRecorder("")}

	exporter, records, err := a.exporter(ctx, metrics)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx, a.cfg.Blob.StoreConfig())
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	worker := reports.NewWorker(exporter, blobs, reports.WorkerOptions{
		Audit:     reports.LogAuditLogger{Logger: a.logger},
		Logger:    a.logger,
		Metrics:   metrics,
		QueueSize: a.cfg.Export.QueueSize,
	})

	api := reports.NewHandler(exporter)
	api.Exports = worker
	api.Store = blobs
	api.Metrics = prom.Handler()
	api.Logger = a.logger

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/", api)

	return &server{
		http: &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		worker:  worker,
		records: records,
		blobs:   blobs,
	}, nil
}

// run serves until ctx is cancelled or the listener fails, then drains the
// export queue and closes the record store.
func (s *server) run(ctx context.Context, logger observability.Logger) error {
	s.worker.Start()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.http.Addr, "artifacts", s.blobs.Driver())
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := s.worker.Stop(shutdownCtx); err != nil {
		logger.Warn("export worker stop", "error", err)
	}
	if err := s.records.Close(); err != nil {
		logger.Warn("close records store", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
