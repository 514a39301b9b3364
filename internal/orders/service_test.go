package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) OrderSubmitted(_ context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, orderID)
	return d.err
}

type fixture struct {
	svc        *Service
	repo       *repository.JSONFileRepository
	files      *storage.MemoryStore
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, mode pages.CountMode) *fixture {
	t.Helper()
	repo, err := repository.NewJSONFileRepository(t.TempDir())
	require.NoError(t, err)
	files := storage.NewMemoryStore()
	d := &recordingDispatcher{}
	return &fixture{
		svc:        NewService(repo, files, d, mode, zap.NewNop()),
		repo:       repo,
		files:      files,
		dispatcher: d,
	}
}

func (f *fixture) upload(t *testing.T, key string, pageCount int) {
	t.Helper()
	require.NoError(t, f.files.Put(context.Background(), &model.StoredFile{
		Key:         key,
		Name:        key + ".pdf",
		ContentType: "application/pdf",
		Pages:       pageCount,
		Data:        []byte("%PDF-stub"),
	}))
}

func validSubmit(keys ...string) SubmitRequest {
	return SubmitRequest{
		FullName:    "Grace Hopper",
		PhoneNumber: "0123456789",
		PrintType:   model.PrintBlackAndWhite,
		Copies:      1,
		PaperSize:   model.PaperA4,
		PrintSide:   model.SideSingle,
		FileKeys:    keys,
	}
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 4)
	f.upload(t, "b", 6)

	q, err := f.svc.Quote(ctx, QuoteRequest{
		PrintType: model.PrintBlackAndWhite,
		PrintSide: model.SideSingle,
		Copies:    1,
		FileKeys:  []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, q.TotalPages)
	assert.Equal(t, 10, q.Pages)
	assert.InDelta(t, 15.0, q.Total, 1e-9)

	q, err = f.svc.Quote(ctx, QuoteRequest{
		PrintType: model.PrintColor,
		PrintSide: model.SideDouble,
		Copies:    1,
		FileKeys:  []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 65.0, q.Total, 1e-9)
}

func TestQuoteWithoutFilesIsZero(t *testing.T) {
	f := newFixture(t, pages.CountSpan)
	q, err := f.svc.Quote(context.Background(), QuoteRequest{
		PrintType: model.PrintColor,
		PrintSide: model.SideSingle,
		Copies:    3,
	})
	require.NoError(t, err)
	assert.Zero(t, q.Total)
	assert.Zero(t, q.Pages)
}

func TestQuoteCountModes(t *testing.T) {
	ctx := context.Background()
	req := QuoteRequest{
		PrintType:     model.PrintBlackAndWhite,
		PrintSide:     model.SideSingle,
		Copies:        1,
		SelectedPages: "1-5,8",
		FileKeys:      []string{"doc"},
	}

	span := newFixture(t, pages.CountSpan)
	span.upload(t, "doc", 10)
	q, err := span.svc.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 6, q.Pages)

	token := newFixture(t, pages.CountToken)
	token.upload(t, "doc", 10)
	q, err = token.svc.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Pages)
	assert.InDelta(t, 3.0, q.Total, 1e-9)
}

func TestQuoteSpanCountsOverlapOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "doc", 5)

	for _, expr := range []string{"1-5,3-4", "1-5,1-5", "5,1-4,2"} {
		q, err := f.svc.Quote(ctx, QuoteRequest{
			PrintType:     model.PrintBlackAndWhite,
			PrintSide:     model.SideSingle,
			Copies:        1,
			SelectedPages: expr,
			FileKeys:      []string{"doc"},
		})
		require.NoError(t, err, expr)
		assert.Equal(t, 5, q.Pages, expr)
		assert.InDelta(t, 7.5, q.Total, 1e-9, expr)
	}
}

func TestQuoteAndSubmitShareCopiesBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)

	_, err := f.svc.Quote(ctx, QuoteRequest{
		PrintType: model.PrintColor,
		PrintSide: model.SideSingle,
		Copies:    1001,
		FileKeys:  []string{"a"},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must be at most 1000", ve.Fields["copies"])

	req := validSubmit("a")
	req.Copies = 1001
	_, err = f.svc.Submit(ctx, req)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "copies")

	_, err = f.svc.Quote(ctx, QuoteRequest{
		PrintType: model.PrintColor,
		PrintSide: model.SideSingle,
		Copies:    1000,
		FileKeys:  []string{"a"},
	})
	require.NoError(t, err)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 3)
	f.upload(t, "b", 2)
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	req := validSubmit("a", "b")
	req.FullName = "  Grace Hopper "
	req.SelectedPages = "2-4"
	req.Copies = 2

	order, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1717236000000", order.OrderID)
	assert.Equal(t, "Grace Hopper", order.FullName)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, fixed, order.OrderDate)
	assert.Equal(t, "2-4", order.SelectedPages)
	assert.InDelta(t, 9.0, order.TotalCost, 1e-9)
	require.Len(t, order.Files, 2)
	assert.Equal(t, "a", order.Files[0].Key)
	assert.Equal(t, 3, order.Files[0].Pages)

	stored, err := f.repo.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, *order, *stored)
	assert.Equal(t, []string{order.OrderID}, f.dispatcher.ids)
}

func TestSubmitDefaultsSelectionToAll(t *testing.T) {
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 3)
	order, err := f.svc.Submit(context.Background(), validSubmit("a"))
	require.NoError(t, err)
	assert.Equal(t, model.AllPages, order.SelectedPages)
	assert.InDelta(t, 4.5, order.TotalCost, 1e-9)
}

func TestSubmitSameMillisecondGetsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)
	fixed := time.UnixMilli(1700000000000)
	f.svc.now = func() time.Time { return fixed }

	first, err := f.svc.Submit(ctx, validSubmit("a"))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, validSubmit("a"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000", first.OrderID)
	assert.Equal(t, "ORD-1700000000001", second.OrderID)
}

func TestSubmitFailuresPersistNothing(t *testing.T) {
	cases := map[string]struct {
		mutate func(*SubmitRequest)
		check  func(t *testing.T, err error)
	}{
		"no files": {
			mutate: func(r *SubmitRequest) { r.FileKeys = nil },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoFiles) },
		},
		"missing file": {
			mutate: func(r *SubmitRequest) { r.FileKeys = []string{"a", "gone"} },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMissingFile) },
		},
		"page out of range": {
			mutate: func(r *SubmitRequest) { r.SelectedPages = "1-4" },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, pages.ErrInvalidSelection) },
		},
		"reversed range": {
			mutate: func(r *SubmitRequest) { r.SelectedPages = "3-1" },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, pages.ErrInvalidSelection) },
		},
		"invalid fields": {
			mutate: func(r *SubmitRequest) {
				r.FullName = " G "
				r.PhoneNumber = "12345"
				r.Copies = 0
				r.PaperSize = "b5"
			},
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Contains(t, ve.Fields, "fullName")
				assert.Contains(t, ve.Fields, "phoneNumber")
				assert.Contains(t, ve.Fields, "copies")
				assert.Contains(t, ve.Fields, "paperSize")
				assert.Equal(t, "must be at least 10 characters", ve.Fields["phoneNumber"])
			},
		},
		"duplicate file": {
			mutate: func(r *SubmitRequest) { r.FileKeys = []string{"a", "a"} },
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Contains(t, ve.Fields, "fileKeys")
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, pages.CountSpan)
			f.upload(t, "a", 3)
			req := validSubmit("a")
			tc.mutate(&req)

			_, err := f.svc.Submit(ctx, req)
			require.Error(t, err)
			tc.check(t, err)

			all, err := f.repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, f.dispatcher.ids)
		})
	}
}

func TestSubmitAfterRemovingOnlyFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 3)
	require.NoError(t, f.files.Delete(ctx, "a"))

	q, err := f.svc.Quote(ctx, QuoteRequest{PrintType: model.PrintColor, PrintSide: model.SideSingle, Copies: 1})
	require.NoError(t, err)
	assert.Zero(t, q.Total)

	_, err = f.svc.Submit(ctx, validSubmit())
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestSubmitSurvivesDispatchFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)
	f.dispatcher.err = errors.New("queue down")

	order, err := f.svc.Submit(ctx, validSubmit("a"))
	require.NoError(t, err)
	_, err = f.repo.Get(ctx, order.OrderID)
	require.NoError(t, err)
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)
	var ids []string
	for i := 0; i < 3; i++ {
		f.svc.now = func() time.Time { return time.UnixMilli(int64(1000 + i)) }
		o, err := f.svc.Submit(ctx, validSubmit("a"))
		require.NoError(t, err)
		ids = append(ids, o.OrderID)
	}

	updated, err := f.svc.ChangeStatus(ctx, ids[1], model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, model.StatusPending, all[0].Status)
	assert.Equal(t, model.StatusCompleted, all[1].Status)
	assert.Equal(t, model.StatusPending, all[2].Status)

	_, err = f.svc.ChangeStatus(ctx, ids[0], "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.ChangeStatus(ctx, "ORD-0", model.StatusCancelled)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)
	f.upload(t, "other", 1)
	order, err := f.svc.Submit(ctx, validSubmit("a"))
	require.NoError(t, err)

	file, err := f.svc.OpenFile(ctx, order.OrderID, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-stub"), file.Data)

	meta, err := f.svc.StatFile(ctx, order.OrderID, "a")
	require.NoError(t, err)
	assert.Nil(t, meta.Data)
	assert.Equal(t, "a.pdf", meta.Name)

	_, err = f.svc.OpenFile(ctx, order.OrderID, "other")
	assert.ErrorIs(t, err, ErrFileNotInOrder)

	_, err = f.svc.OpenFile(ctx, "ORD-404", "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckRemovable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pages.CountSpan)
	f.upload(t, "a", 1)
	f.upload(t, "draft", 1)

	require.NoError(t, f.svc.CheckRemovable(ctx, "a"))
	order, err := f.svc.Submit(ctx, validSubmit("a"))
	require.NoError(t, err)

	err = f.svc.CheckRemovable(ctx, "a")
	assert.ErrorIs(t, err, ErrFileInUse)
	assert.Contains(t, err.Error(), order.OrderID)
	assert.NoError(t, f.svc.CheckRemovable(ctx, "draft"))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"copies": "must be at least 1", "fullName": "is required"}}
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed: copies"))
}
