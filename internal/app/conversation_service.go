package app

import (
	"context"
	"errors"
	"time"

	"studymate/internal/model"
	"studymate/internal/store"
)

type ConversationService struct {
	store    *store.Store
	renderer *RenderService
}

type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CategoryID   string    `json:"category_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type RenderedMessage struct {
	model.Message
	HTML string `json:"html"`
}

type ConversationView struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	CategoryID string            `json:"category_id"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Messages   []RenderedMessage `json:"messages"`
}

func NewConversationService(st *store.Store, renderer *RenderService) *ConversationService {
	return &ConversationService{store: st, renderer: renderer}
}

func (s *ConversationService) List(owner, categoryID string) []ConversationSummary {
	convs := s.store.Conversations(owner, categoryID)
	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationSummary{
			ID:           c.ID,
			Title:        c.Title,
			CategoryID:   c.CategoryID,
			UpdatedAt:    c.UpdatedAt,
			MessageCount: len(c.Messages),
		})
	}
	return out
}

func (s *ConversationService) Get(ctx context.Context, owner, id string) (*ConversationView, error) {
	conv, err := s.store.Conversation(owner, id)
	if err != nil {
		return nil, err
	}
	view := &ConversationView{
		ID:         conv.ID,
		Title:      conv.Title,
		CategoryID: conv.CategoryID,
		UpdatedAt:  conv.UpdatedAt,
		Messages:   make([]RenderedMessage, 0, len(conv.Messages)),
	}
	for _, m := range conv.Messages {
		view.Messages = append(view.Messages, RenderedMessage{
			Message: m,
			HTML:    s.renderer.Render(ctx, m.Text, m.IsStreaming),
		})
	}
	return view, nil
}

func (s *ConversationService) Rename(owner, id, title string) (model.Conversation, error) {
	conv, err := s.store.RenameConversation(owner, id, title)
	if errors.Is(err, store.ErrInvalidName) {
		return model.Conversation{}, ErrInvalidInput
	}
	return conv, err
}

func (s *ConversationService) Delete(owner, id string) error {
	return s.store.DeleteConversation(owner, id)
}
