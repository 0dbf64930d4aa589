package model

import (
	"path"
	"strings"
	"time"
)

const (
	DefaultCategoryID   = "general"
	DefaultCategoryName = "לימודים כללי"
)

var documentMimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

type Document struct {
	Name          string `json:"name"`
	MimeType      string `json:"mimeType"`
	Data          string `json:"data"`
	Size          int64  `json:"size"`
	ExtractedText string `json:"extractedText,omitempty"`
}

func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MimeType, "image/")
}

type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Attachments []Document `json:"attachments"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (c *Category) DocumentIndex(name string) int {
	for i := range c.Attachments {
		if c.Attachments[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Category) Clone() Category {
	out := *c
	out.Attachments = make([]Document, len(c.Attachments))
	copy(out.Attachments, c.Attachments)
	return out
}

func NewDefaultCategory(now time.Time) Category {
	return Category{
		ID:          DefaultCategoryID,
		Name:        DefaultCategoryName,
		Attachments: []Document{},
		UpdatedAt:   now,
	}
}

// DocumentExtension returns the lower-cased extension of name without the dot.
func DocumentExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// MimeTypeFor reports the mime type for an accepted document name.
func MimeTypeFor(name string) (string, bool) {
	mime, ok := documentMimeTypes[DocumentExtension(name)]
	return mime, ok
}
