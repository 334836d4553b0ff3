package jobs

import (
	"context"
	"log"
	"sync"

	"github.com/Waqasabid99/agiAI/internal/queue"
)

// DeliverySource yields queued messages until ctx is done
type DeliverySource interface {
	Subscribe(ctx context.Context) (<-chan queue.Delivery, error)
}

// DeliveryHandler processes and acknowledges one message
type DeliveryHandler interface {
	Handle(ctx context.Context, d queue.Delivery) error
}

// Worker represents a background queue consumer
type Worker struct {
	source  DeliverySource
	handler DeliveryHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a new Worker instance
func NewWorker(source DeliverySource, handler DeliveryHandler) *Worker {
	return &Worker{
		source:  source,
		handler: handler,
	}
}

// Start subscribes and handles deliveries in the background until Stop is called
// or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	deliveries, err := w.source.Subscribe(workerCtx)
	if err != nil {
		cancel()
		return err
	}
	w.cancel = cancel

	log.Println("Worker started")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for d := range deliveries {
			if err := w.handler.Handle(workerCtx, d); err != nil {
				log.Printf("Error handling delivery: %v", err)
			}
		}
		log.Println("Worker stopped: delivery channel closed")
	}()

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	log.Println("Worker shutdown complete")
}
