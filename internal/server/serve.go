package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cloo-solutions/skumatch/internal/jobs"
)

const shutdownTimeout = 30 * time.Second

// ListenAndServe runs srv until ctx is canceled or the listener fails, then
// stops the workers and drains in-flight requests.
func ListenAndServe(ctx context.Context, srv *http.Server, workers ...*jobs.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}
	log.Println("shutting down...")

	for _, w := range workers {
		w.Stop()
	}

	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
