// Package intake accepts customer documents: it checks the sniffed MIME type,
// stores the bytes and detects how many pages the document has.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/docx"
	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	pdfutil "github.com/dharsanguruparan/PrintDrop/internal/pdf"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

var (
	ErrEmptyFile       = errors.New("empty file")
	ErrTooLarge        = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("file type not allowed")
	// ErrPageCount wraps failures to read a page count from an allowed type.
	ErrPageCount = errors.New("could not determine page count")
)

// Uploader validates, stores and page-counts documents.
type Uploader struct {
	store        storage.FileStore
	maxSize      int64
	allowedTypes []string
	log          *zap.Logger
}

// NewUploader builds an Uploader writing into store.
func NewUploader(store storage.FileStore, maxSize int64, allowedTypes []string, log *zap.Logger) *Uploader {
	return &Uploader{
		store:        store,
		maxSize:      maxSize,
		allowedTypes: allowedTypes,
		log:          log,
	}
}

// Upload reads a document from r, rejects it unless its detected type is
// allowed and its pages can be counted, and stores it under a fresh key.
// A rejected upload leaves nothing behind in the store.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (*model.FileRef, error) {
	ref, err := u.upload(ctx, filename, r)
	if err != nil {
		observability.UploadsTotal.WithLabelValues(uploadOutcome(err)).Inc()
		u.log.Info("upload rejected", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}
	observability.UploadsTotal.WithLabelValues("accepted").Inc()
	u.log.Info("upload stored",
		zap.String("key", ref.Key),
		zap.String("filename", ref.Name),
		zap.String("mime", ref.MimeType),
		zap.Int("pages", ref.Pages),
	)
	return ref, nil
}

func (u *Uploader) upload(ctx context.Context, filename string, r io.Reader) (*model.FileRef, error) {
	// Read one byte past the limit so oversize input is detectable.
	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > u.maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, u.maxSize)
	}
	contentType, pages, err := Inspect(data, u.allowedTypes)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload"
		if m := mimetype.Lookup(contentType); m != nil {
			name += m.Extension()
		}
	}
	file := &model.StoredFile{
		Key:         uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Pages:       pages,
		Data:        data,
	}
	if err := u.store.Put(ctx, file); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	ref := file.Ref()
	return &ref, nil
}

// Remove deletes a previously uploaded document.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	if err := u.store.Delete(ctx, key); err != nil {
		return err
	}
	u.log.Info("upload removed", zap.String("key", key))
	return nil
}

// Inspect detects the type of data from its content and counts its pages.
// The returned content type is the matching entry of allowedTypes.
func Inspect(data []byte, allowedTypes []string) (string, int, error) {
	mime := mimetype.Detect(data)
	contentType := ""
	for _, allowed := range allowedTypes {
		if mime.Is(allowed) {
			contentType = allowed
			break
		}
	}
	if contentType == "" {
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}
	pages, err := CountPages(contentType, data)
	if err != nil {
		return "", 0, err
	}
	return contentType, pages, nil
}

// CountPages reads the page count of a document of the given MIME type.
func CountPages(contentType string, data []byte) (int, error) {
	var (
		n   int
		err error
	)
	switch contentType {
	case MimePDF:
		n, err = pdfutil.PageCount(data)
	case MimeDOCX:
		n, err = docx.PageCount(data)
	case MimeDOC:
		return 0, fmt.Errorf("%w: legacy .doc files are not supported, upload PDF or DOCX", ErrPageCount)
	default:
		return 0, fmt.Errorf("%w: no page counter for %s", ErrPageCount, contentType)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPageCount, err)
	}
	return n, nil
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrEmptyFile):
		return "empty"
	case errors.Is(err, ErrPageCount):
		return "unreadable"
	default:
		return "error"
	}
}
