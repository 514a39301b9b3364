// Package orders implements quoting, submission and administration of print
// orders on top of the file store and the order repository.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/pricing"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

var (
	ErrNoFiles        = errors.New("order has no files")
	ErrMissingFile    = errors.New("uploaded file not found")
	ErrFileNotInOrder = errors.New("file does not belong to order")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrFileInUse      = errors.New("file belongs to a submitted order")
)

// idAttempts bounds retries when two submissions land in the same
// millisecond.
const idAttempts = 5

// Dispatcher hands a freshly persisted order to background processing.
type Dispatcher interface {
	OrderSubmitted(ctx context.Context, orderID string) error
}

// QuoteRequest is a price preview for the files uploaded so far.
type QuoteRequest struct {
	PrintType     model.PrintType `json:"printType" validate:"required,oneof=blackAndWhite color"`
	PrintSide     model.PrintSide `json:"printSide" validate:"required,oneof=single double"`
	Copies        int             `json:"copies" validate:"min=1,max=1000"`
	SelectedPages string          `json:"selectedPages"`
	FileKeys      []string        `json:"fileKeys" validate:"unique"`
}

// QuoteResult is the priced preview plus the total page count N of the
// files it was computed from.
type QuoteResult struct {
	pricing.Quote
	TotalPages int    `json:"totalPages"`
	Selection  string `json:"selection"`
}

// SubmitRequest is the customer's order form.
type SubmitRequest struct {
	FullName            string          `json:"fullName" validate:"required,min=2,max=120"`
	PhoneNumber         string          `json:"phoneNumber" validate:"required,min=10,max=20"`
	PrintType           model.PrintType `json:"printType" validate:"required,oneof=blackAndWhite color"`
	Copies              int             `json:"copies" validate:"min=1,max=1000"`
	PaperSize           model.PaperSize `json:"paperSize" validate:"required,oneof=a4 a3 letter legal"`
	PrintSide           model.PrintSide `json:"printSide" validate:"required,oneof=single double"`
	SelectedPages       string          `json:"selectedPages"`
	SpecialInstructions string          `json:"specialInstructions" validate:"max=1000"`
	FileKeys            []string        `json:"fileKeys" validate:"unique"`
}

// Service coordinates order operations.
type Service struct {
	repo       repository.OrderRepository
	files      storage.FileStore
	dispatcher Dispatcher
	mode       pages.CountMode
	validate   *validatorv10.Validate
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the order service. dispatcher may be nil, in which case
// submitted orders are not handed to background processing.
func NewService(repo repository.OrderRepository, files storage.FileStore, dispatcher Dispatcher, mode pages.CountMode, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		files:      files,
		dispatcher: dispatcher,
		mode:       mode,
		validate:   newValidator(),
		log:        log,
		now:        time.Now,
	}
}

// Quote prices req against the pages of its files. A request without files
// prices to zero.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	if len(req.FileKeys) == 0 {
		rate, err := pricing.Rate(req.PrintType, req.PrintSide)
		if err != nil {
			return nil, err
		}
		return &QuoteResult{Quote: pricing.Quote{Rate: rate, Copies: req.Copies}}, nil
	}
	_, total, err := s.resolveFiles(ctx, req.FileKeys)
	if err != nil {
		return nil, err
	}
	return s.price(req.PrintType, req.PrintSide, req.Copies, req.SelectedPages, total)
}

func (s *Service) price(pt model.PrintType, side model.PrintSide, copies int, selected string, total int) (*QuoteResult, error) {
	sel, err := pages.Parse(selected, total)
	if err != nil {
		return nil, err
	}
	q, err := pricing.Calculate(pricing.Input{
		PrintType: pt,
		PrintSide: side,
		Copies:    copies,
		Pages:     sel.Pages(s.mode),
	})
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: q, TotalPages: total, Selection: sel.String()}, nil
}

// Submit validates and persists a new order. Nothing is persisted unless
// every check passes.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*model.Order, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.SpecialInstructions = strings.TrimSpace(req.SpecialInstructions)

	order, err := s.build(ctx, req)
	if err != nil {
		observability.OrdersRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	if err := s.create(ctx, order); err != nil {
		observability.OrdersRejected.WithLabelValues("storage").Inc()
		return nil, err
	}
	observability.OrdersSubmitted.Inc()
	s.log.Info("order submitted",
		zap.String("order_id", order.OrderID),
		zap.Int("files", len(order.Files)),
		zap.Float64("total_cost", order.TotalCost))

	if s.dispatcher != nil {
		if err := s.dispatcher.OrderSubmitted(ctx, order.OrderID); err != nil {
			s.log.Warn("dispatch submitted order", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	return order, nil
}

func (s *Service) build(ctx context.Context, req SubmitRequest) (*model.Order, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	if len(req.FileKeys) == 0 {
		return nil, ErrNoFiles
	}
	refs, total, err := s.resolveFiles(ctx, req.FileKeys)
	if err != nil {
		return nil, err
	}
	q, err := s.price(req.PrintType, req.PrintSide, req.Copies, req.SelectedPages, total)
	if err != nil {
		return nil, err
	}
	selected := strings.TrimSpace(req.SelectedPages)
	if selected == "" {
		selected = model.AllPages
	}
	return &model.Order{
		FullName:            req.FullName,
		PhoneNumber:         req.PhoneNumber,
		PrintType:           req.PrintType,
		Copies:              req.Copies,
		PaperSize:           req.PaperSize,
		PrintSide:           req.PrintSide,
		SelectedPages:       selected,
		SpecialInstructions: req.SpecialInstructions,
		Files:               refs,
		Status:              model.StatusPending,
		TotalCost:           q.Total,
	}, nil
}

// create assigns the ORD-<unix ms> id and persists the order, stepping the
// id forward on collision.
func (s *Service) create(ctx context.Context, order *model.Order) error {
	now := s.now().UTC()
	order.OrderDate = now
	var err error
	for i := 0; i < idAttempts; i++ {
		order.OrderID = fmt.Sprintf("ORD-%d", now.UnixMilli()+int64(i))
		err = s.repo.Create(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("persist order: %w", err)
	}
	return nil
}

// resolveFiles looks up every key in the file store and returns the refs in
// request order together with their summed page count.
func (s *Service) resolveFiles(ctx context.Context, keys []string) ([]model.FileRef, int, error) {
	refs := make([]model.FileRef, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			f, err := s.files.Stat(gctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrMissingFile, key)
			}
			if err != nil {
				return fmt.Errorf("stat %s: %w", key, err)
			}
			refs[i] = f.Ref()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	total := 0
	for _, r := range refs {
		total += r.Pages
	}
	return refs, total, nil
}

func rejectReason(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrNoFiles):
		return "no_files"
	case errors.Is(err, ErrMissingFile):
		return "missing_file"
	case errors.Is(err, pages.ErrInvalidSelection):
		return "selection"
	case errors.Is(err, pricing.ErrInvalidInput):
		return "pricing"
	}
	return "internal"
}

// List returns every order in submission order.
func (s *Service) List(ctx context.Context) ([]model.Order, error) {
	return s.repo.List(ctx)
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	return s.repo.Get(ctx, id)
}

// ChangeStatus moves an order to status. Any known status may follow any
// other.
func (s *Service) ChangeStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	order, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	observability.StatusChanges.WithLabelValues(string(status)).Inc()
	s.log.Info("order status changed", zap.String("order_id", id), zap.String("status", string(status)))
	return order, nil
}

// StatFile returns the metadata of a file that belongs to order orderID.
func (s *Service) StatFile(ctx context.Context, orderID, key string) (*model.StoredFile, error) {
	if err := s.checkMembership(ctx, orderID, key); err != nil {
		return nil, err
	}
	return s.files.Stat(ctx, key)
}

// OpenFile returns the blob of a file that belongs to order orderID.
func (s *Service) OpenFile(ctx context.Context, orderID, key string) (*model.StoredFile, error) {
	if err := s.checkMembership(ctx, orderID, key); err != nil {
		return nil, err
	}
	return s.files.Get(ctx, key)
}

// CheckRemovable reports ErrFileInUse when a submitted order references key.
// Uploads that were never submitted may be removed freely.
func (s *Service) CheckRemovable(ctx context.Context, key string) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range all {
		if _, ok := o.HasFile(key); ok {
			return fmt.Errorf("%w: %s", ErrFileInUse, o.OrderID)
		}
	}
	return nil
}

func (s *Service) checkMembership(ctx context.Context, orderID, key string) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if _, ok := order.HasFile(key); !ok {
		return fmt.Errorf("%w: %s", ErrFileNotInOrder, key)
	}
	return nil
}
