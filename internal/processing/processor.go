// Package processing runs submitted-order jobs on an in-process goroutine
// pool when no Redis queue is configured.
package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the job buffer has no room.
var ErrQueueFull = errors.New("processing queue full")

// jobTimeout bounds a single job.
const jobTimeout = 30 * time.Second

// Handler processes one submitted order.
type Handler interface {
	Process(ctx context.Context, orderID string) error
}

// Job represents background processing work.
type Job struct {
	OrderID string
}

// Processor consumes Jobs on a fixed number of goroutines.
type Processor struct {
	handler Handler
	queue   chan Job
	workers int
	log     *zap.Logger
}

// New builds a Processor with queue capacity tied to worker count.
func New(handler Handler, workers int, log *zap.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		handler: handler,
		queue:   make(chan Job, workers*4),
		workers: workers,
		log:     log,
	}
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has returned. Jobs still buffered at that point are dropped.
func (p *Processor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()
	return nil
}

// OrderSubmitted queues a job without blocking the caller.
func (p *Processor) OrderSubmitted(_ context.Context, orderID string) error {
	select {
	case p.queue <- Job{OrderID: orderID}:
		return nil
	default:
		p.log.Warn("processor queue full, dropping job", zap.String("order_id", orderID))
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.process(ctx, job)
		}
	}
}

func (p *Processor) process(ctx context.Context, job Job) {
	jctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if err := p.handler.Process(jctx, job.OrderID); err != nil {
		p.log.Error("order job failed", zap.String("order_id", job.OrderID), zap.Error(err))
	}
}
