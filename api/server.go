package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/gymtrack/occupancy-data/sensor"
	"github.com/gymtrack/occupancy-data/tracker"
)

type ServerOptions struct {
	Host                string
	Port                uint
	ShutdownGracePeriod time.Duration

	APIHandlerOptions
}

func ListenAndServe(ctx context.Context, opts ServerOptions, query *tracker.Reconstructor, reader sensor.Reader, poller *tracker.Poller) error {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: NewHandler(opts.APIHandlerOptions, query, reader, poller),
	}
	glog.Infof("Listening on addr=%q", addr)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			if closeErr := srv.Close(); closeErr != nil {
				err = fmt.Errorf("shutdownErr=%w closeErr=%q", err, closeErr)
			}
			return fmt.Errorf("api server shutdown error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("api server listen and serve error: %w", err)
		}
		return nil
	})
	return eg.Wait()
}
