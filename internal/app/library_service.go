package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"studymate/internal/model"
	"studymate/internal/pkg/pdfextract"
	"studymate/internal/store"
)

const maxPDFPages = 300

// LibraryService manages categories and the documents uploaded to them.
type LibraryService struct {
	store        *store.Store
	maxFileBytes int64
	logger       *zap.Logger
}

type UploadFile struct {
	Name string
	Data []byte
}

type UploadRejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type CategorySummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Documents []DocumentSummary `json:"documents"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type DocumentSummary struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	HasText  bool   `json:"has_text"`
}

func NewLibraryService(st *store.Store, maxFileBytes int64, logger *zap.Logger) *LibraryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryService{store: st, maxFileBytes: maxFileBytes, logger: logger}
}

func Summarize(c model.Category) CategorySummary {
	out := CategorySummary{
		ID:        c.ID,
		Name:      c.Name,
		Documents: make([]DocumentSummary, 0, len(c.Attachments)),
		UpdatedAt: c.UpdatedAt,
	}
	for _, d := range c.Attachments {
		out.Documents = append(out.Documents, DocumentSummary{
			Name:     d.Name,
			MimeType: d.MimeType,
			Size:     d.Size,
			HasText:  d.ExtractedText != "",
		})
	}
	return out
}

func (s *LibraryService) Categories() []CategorySummary {
	cats := s.store.Categories()
	out := make([]CategorySummary, 0, len(cats))
	for _, c := range cats {
		out = append(out, Summarize(c))
	}
	return out
}

func (s *LibraryService) CreateCategory(name string) (CategorySummary, error) {
	c, err := s.store.CreateCategory(name)
	if errors.Is(err, store.ErrInvalidName) {
		return CategorySummary{}, ErrInvalidInput
	}
	if err != nil {
		return CategorySummary{}, err
	}
	return Summarize(c), nil
}

func (s *LibraryService) RenameCategory(id, name string) (CategorySummary, error) {
	c, err := s.store.RenameCategory(id, name)
	if errors.Is(err, store.ErrInvalidName) {
		return CategorySummary{}, ErrInvalidInput
	}
	if err != nil {
		return CategorySummary{}, err
	}
	return Summarize(c), nil
}

func (s *LibraryService) DeleteCategory(id string) error {
	return s.store.DeleteCategory(id)
}

// Upload validates and stores files in the category. Files that fail
// validation are reported back and the rest are still stored.
func (s *LibraryService) Upload(categoryID string, files []UploadFile) (CategorySummary, []UploadRejection, error) {
	if _, err := s.store.Category(categoryID); err != nil {
		return CategorySummary{}, nil, err
	}

	var (
		docs     []model.Document
		rejected []UploadRejection
	)
	for _, f := range files {
		doc, reason := s.prepare(f)
		if reason != "" {
			rejected = append(rejected, UploadRejection{Name: f.Name, Reason: reason})
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return CategorySummary{}, rejected, ErrNoValidFiles
	}

	c, err := s.store.AddDocuments(categoryID, docs)
	if err != nil {
		return CategorySummary{}, rejected, err
	}
	s.logger.Info("documents_uploaded",
		zap.String("category", categoryID),
		zap.Int("accepted", len(docs)),
		zap.Int("rejected", len(rejected)),
	)
	return Summarize(c), rejected, nil
}

func (s *LibraryService) prepare(f UploadFile) (model.Document, string) {
	name := strings.TrimSpace(f.Name)
	if name == "" || strings.ContainsAny(name, "/\\") {
		return model.Document{}, "invalid file name"
	}
	mime, ok := model.MimeTypeFor(name)
	if !ok {
		return model.Document{}, "unsupported file type"
	}
	if len(f.Data) == 0 {
		return model.Document{}, "file is empty"
	}
	if s.maxFileBytes > 0 && int64(len(f.Data)) > s.maxFileBytes {
		return model.Document{}, fmt.Sprintf("file exceeds %d bytes", s.maxFileBytes)
	}

	doc := model.Document{
		Name:     name,
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(f.Data),
		Size:     int64(len(f.Data)),
	}
	switch model.DocumentExtension(name) {
	case "txt", "md":
		if utf8.Valid(f.Data) {
			doc.ExtractedText = string(f.Data)
		}
	case "pdf":
		text, err := pdfextract.ExtractText(f.Data, maxPDFPages)
		if err != nil {
			s.logger.Warn("pdf_extract_failed", zap.String("name", name), zap.Error(err))
		}
		doc.ExtractedText = strings.TrimSpace(text)
	}
	return doc, ""
}

func (s *LibraryService) RemoveDocument(categoryID, name string) error {
	return s.store.RemoveDocument(categoryID, name)
}

// Document returns a stored document including its payload.
func (s *LibraryService) Document(categoryID, name string) (model.Document, error) {
	c, err := s.store.Category(categoryID)
	if err != nil {
		return model.Document{}, err
	}
	i := c.DocumentIndex(name)
	if i < 0 {
		return model.Document{}, store.ErrDocumentNotFound
	}
	return c.Attachments[i], nil
}

func (s *LibraryService) Category(id string) (CategorySummary, error) {
	c, err := s.store.Category(id)
	if err != nil {
		return CategorySummary{}, err
	}
	return Summarize(c), nil
}
