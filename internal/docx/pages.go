// Package docx reads the page count Word stores in an OOXML package's
// extended properties (docProps/app.xml).
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

const appPropsPath = "docProps/app.xml"

var (
	// ErrNoPageCount means the package carries no usable Pages property,
	// typically because it was not last saved by a word processor that
	// paginates.
	ErrNoPageCount = errors.New("docx has no page count property")
)

type appProperties struct {
	Pages int `xml:"Pages"`
}

// PageCount returns the Pages property of a DOCX package.
func PageCount(data []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != appPropsPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", appPropsPath, err)
		}
		defer rc.Close()
		var props appProperties
		if err := xml.NewDecoder(io.LimitReader(rc, 1<<20)).Decode(&props); err != nil {
			return 0, fmt.Errorf("decode %s: %w", appPropsPath, err)
		}
		if props.Pages < 1 {
			return 0, ErrNoPageCount
		}
		return props.Pages, nil
	}
	return 0, ErrNoPageCount
}
