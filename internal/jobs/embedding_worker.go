package jobs

import (
	"context"
	"log"
)

const (
	DefaultEmbeddingBatch = 64
	// maxRoundsPerTick bounds how much of a large backlog one tick drains.
	maxRoundsPerTick = 10
)

// ProductEmbedder stores embeddings for products that lack one.
type ProductEmbedder interface {
	EmbedPending(ctx context.Context, batch int) (int, error)
}

// EmbeddingWorker fills in missing catalog embeddings
type EmbeddingWorker struct {
	embedder ProductEmbedder
	batch    int
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(embedder ProductEmbedder, batch int) *EmbeddingWorker {
	if batch <= 0 {
		batch = DefaultEmbeddingBatch
	}
	return &EmbeddingWorker{embedder: embedder, batch: batch}
}

// ProcessJobs implements the JobProcessor interface. Full batches are
// followed by another round so a fresh import is embedded quickly.
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	total := 0
	for round := 0; round < maxRoundsPerTick; round++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stored, err := w.embedder.EmbedPending(ctx, w.batch)
		total += stored
		if err != nil {
			return err
		}
		if stored < w.batch {
			break
		}
	}

	if total > 0 {
		log.Printf("Embedded %d catalog products", total)
	}
	return nil
}
