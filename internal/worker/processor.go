package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	"github.com/dharsanguruparan/PrintDrop/internal/queue"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

// Report summarises one check of a submitted order.
type Report struct {
	OrderID string
	Files   int
	Pages   int
	Missing []string
}

// Processor checks that a submitted order is ready to print. It only reads;
// order status stays under admin control.
type Processor struct {
	repo  repository.OrderRepository
	files storage.FileStore
	log   *zap.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo repository.OrderRepository, files storage.FileStore, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{repo: repo, files: files, log: log}
}

// Verify reloads the order and resolves each of its files.
func (p *Processor) Verify(ctx context.Context, orderID string) (*Report, error) {
	order, err := p.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	report := &Report{OrderID: order.OrderID, Files: len(order.Files)}
	for _, ref := range order.Files {
		report.Pages += ref.Pages
		_, err := p.files.Stat(ctx, ref.Key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			report.Missing = append(report.Missing, ref.Key)
			observability.FileChecks.WithLabelValues("missing").Inc()
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", ref.Key, err)
		default:
			observability.FileChecks.WithLabelValues("ok").Inc()
		}
	}
	if len(report.Missing) > 0 {
		p.log.Warn("order has missing files",
			zap.String("order_id", order.OrderID),
			zap.Strings("missing", report.Missing))
		return report, nil
	}
	p.log.Info("order ready to print",
		zap.String("order_id", order.OrderID),
		zap.String("print_type", string(order.PrintType)),
		zap.String("paper_size", string(order.PaperSize)),
		zap.String("print_side", string(order.PrintSide)),
		zap.String("selected_pages", order.SelectedPages),
		zap.Int("copies", order.Copies),
		zap.Int("files", report.Files),
		zap.Int("pages", report.Pages),
		zap.Float64("total_cost", order.TotalCost))
	return report, nil
}

// Process runs Verify and discards the report.
func (p *Processor) Process(ctx context.Context, orderID string) error {
	_, err := p.Verify(ctx, orderID)
	return err
}

// Handler registers the order job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.OrderSubmittedTask, p.handleOrderSubmitted)
	return mux
}

func (p *Processor) handleOrderSubmitted(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeOrderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	err = p.Process(ctx, payload.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		p.log.Error("order for job not found", zap.String("order_id", payload.OrderID))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err != nil {
		p.log.Error("order check failed", zap.String("order_id", payload.OrderID), zap.Error(err))
	}
	return err
}
