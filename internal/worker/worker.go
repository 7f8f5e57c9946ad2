package worker

import (
	"context"
	"log"
	"time"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/pipeline"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Worker consumes process_order jobs and runs the assembly pipeline for
// each. Jobs for different orders run concurrently, one pipeline run per
// job; a single run is strictly sequential inside.
type Worker struct {
	queue    *queue.Queue
	pipeline *pipeline.Pipeline
}

func New(q *queue.Queue, p *pipeline.Pipeline) *Worker {
	return &Worker{
		queue:    q,
		pipeline: p,
	}
}

// Start runs concurrency dequeue loops and blocks until the context is
// cancelled and every in-flight loop has returned.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Worker stopped with error: %v", err)
	}
	log.Println("Worker shut down")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueProcessOrder, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing from %s: %v", queue.QueueProcessOrder, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (order: %s)", job.ID, job.OrderID)

			// The run outlives queue shutdown semantics: once started it is
			// never cancelled mid-flight, matching the fire-and-forget
			// contract. Failures land on the order row, not here.
			if err := w.pipeline.Run(context.Background(), job.OrderID); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
			} else {
				log.Printf("Job %s completed successfully", job.ID)
			}
		}
	}
}
