package store

import (
	"strings"

	"studymate/internal/model"
)

func (s *Store) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Category, 0, len(s.state.Categories))
	for i := range s.state.Categories {
		out = append(out, s.state.Categories[i].Clone())
	}
	return out
}

func (s *Store) Category(id string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCategory(id)
	if c == nil {
		return model.Category{}, ErrCategoryNotFound
	}
	return c.Clone(), nil
}

func (s *Store) CreateCategory(name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Category{
		ID:          s.newID(),
		Name:        name,
		Attachments: []model.Document{},
		UpdatedAt:   s.now(),
	}
	s.state.Categories = append(s.state.Categories, c)
	s.flush()
	return c.Clone(), nil
}

func (s *Store) RenameCategory(id, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCategory(id)
	if c == nil {
		return model.Category{}, ErrCategoryNotFound
	}
	c.Name = name
	c.UpdatedAt = s.now()
	s.flush()
	return c.Clone(), nil
}

// DeleteCategory removes the category together with every conversation
// filed under it.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.state.Categories {
		if s.state.Categories[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCategoryNotFound
	}
	if len(s.state.Categories) == 1 {
		return ErrLastCategory
	}
	s.state.Categories = append(s.state.Categories[:idx], s.state.Categories[idx+1:]...)

	kept := s.state.Conversations[:0]
	for _, conv := range s.state.Conversations {
		if conv.CategoryID != id {
			kept = append(kept, conv)
		}
	}
	s.state.Conversations = kept
	s.flush()
	return nil
}

// AddDocuments appends docs to the category. A document whose name is
// already present replaces the stored one in place.
func (s *Store) AddDocuments(categoryID string, docs []model.Document) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCategory(categoryID)
	if c == nil {
		return model.Category{}, ErrCategoryNotFound
	}
	for _, doc := range docs {
		if i := c.DocumentIndex(doc.Name); i >= 0 {
			c.Attachments[i] = doc
			continue
		}
		c.Attachments = append(c.Attachments, doc)
	}
	c.UpdatedAt = s.now()
	s.flush()
	return c.Clone(), nil
}

func (s *Store) RemoveDocument(categoryID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findCategory(categoryID)
	if c == nil {
		return ErrCategoryNotFound
	}
	i := c.DocumentIndex(name)
	if i < 0 {
		return ErrDocumentNotFound
	}
	c.Attachments = append(c.Attachments[:i], c.Attachments[i+1:]...)
	c.UpdatedAt = s.now()
	s.flush()
	return nil
}

func (s *Store) findCategory(id string) *model.Category {
	for i := range s.state.Categories {
		if s.state.Categories[i].ID == id {
			return &s.state.Categories[i]
		}
	}
	return nil
}
