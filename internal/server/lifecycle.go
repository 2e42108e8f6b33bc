package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/logger"
)

// ShutdownTimeout bounds how long in-flight requests get to finish.
const ShutdownTimeout = 10 * time.Second

// Runner is a long-running component that stops when its context is done.
type Runner interface {
	Run(ctx context.Context) error
}

// Serve runs srv on ln together with the background workers until ctx is
// done or one of them fails, then shuts the server down gracefully.
//
// The dispatcher is stopped last, after Shutdown has returned and every
// worker has exited, so events emitted while requests drain are still
// published.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, dispatcher Runner, workers ...Runner) error {
	log := logger.Get()

	g, ctx := errgroup.WithContext(ctx)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	var producers sync.WaitGroup
	producers.Add(1 + len(workers))

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer producers.Done()
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	for _, w := range workers {
		g.Go(func() error {
			defer producers.Done()
			return w.Run(ctx)
		})
	}

	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})

	g.Go(func() error {
		producers.Wait()
		stopDispatch()
		return nil
	})

	return g.Wait()
}
