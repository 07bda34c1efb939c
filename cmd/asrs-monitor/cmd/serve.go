package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"asrs-monitor/internal/alarms/notify"
	apihttp "asrs-monitor/internal/api/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the log, alarm and export API",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	handlers, err := apihttp.NewHandlers(a.service, a.dict, a.catalog, a.categories, a.location, a.logger)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	handlers.Register(mux)
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           apihttp.LoggingMiddleware(mux, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.cfg.Report.Enabled {
		reporter, err := a.reporter(ctx)
		if err != nil {
			return err
		}
		scheduler := notify.NewScheduler(reporter, a.cfg.Report.DailyAt, a.location, a.logger)
		group.Go(func() error {
			scheduler.Start(ctx)
			return nil
		})
	}
	group.Go(func() error {
		a.logger.Infow("http server listening", "addr", server.Addr, "source", a.cfg.Source.Kind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("http server shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
