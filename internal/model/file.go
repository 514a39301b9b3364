// Package model contains the struct definitions shared across packages.
package model

import (
	"time"
)

// FileRef points at an uploaded document held in the file store. It is owned
// by the Order that lists it; the bytes live under Key.
type FileRef struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Key      string `json:"key"`
	Pages    int    `json:"pages"`
}

// StoredFile is a blob plus the metadata recorded when it was uploaded.
// Data is nil when only metadata was requested.
type StoredFile struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Data        []byte    `json:"-"`
}

// Ref converts stored metadata into the reference kept on an order.
func (f StoredFile) Ref() FileRef {
	return FileRef{
		Name:     f.Name,
		Size:     f.Size,
		MimeType: f.ContentType,
		Key:      f.Key,
		Pages:    f.Pages,
	}
}
