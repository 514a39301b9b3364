package pdfutil

import (
	"bytes"
	"errors"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// ErrNoPages is returned for documents whose page tree is empty.
var ErrNoPages = errors.New("pdf has no pages")

// PageCount parses PDF bytes and returns the page count from the document's
// page tree.
func PageCount(data []byte) (n int, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("new pdf reader: %w", err)
	}
	n = doc.NumPage()
	if n < 1 {
		return 0, ErrNoPages
	}
	return n, nil
}
