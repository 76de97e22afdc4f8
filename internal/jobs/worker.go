package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/skumatch/internal/telemetry"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// ProcessorFunc adapts a function to the JobProcessor interface.
type ProcessorFunc func(ctx context.Context) error

func (f ProcessorFunc) ProcessJobs(ctx context.Context) error { return f(ctx) }

// Worker runs a JobProcessor once at start and then on every tick until it
// is stopped or its context ends.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop and blocks until it ends.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started with poll interval: %v", w.name, w.pollInterval)
	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped: stop signal received", w.name)
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	ctx, span := telemetry.StartTransaction(ctx, "worker."+w.name, "queue.task")
	defer span.End()

	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("%s worker: %v", w.name, err)
		span.SetError(err)
		return
	}
	span.SetStatus(sentry.SpanStatusOK)
}

// Stop signals the loop to end and waits for it. It is safe to call more
// than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
