package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studymate/internal/model"
)

// Keys of the first, unversioned layout. They were not namespaced.
const (
	LegacyCategoriesKey    = "study_v13_db"
	LegacyConversationsKey = "study_v13_chats"
	LegacyThemeKey         = "study_theme"
)

// Timestamps were epoch milliseconds and the owner field was userId.
type legacyMessage struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	IsStreaming bool   `json:"isStreaming"`
}

type legacyConversation struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Messages   []legacyMessage `json:"messages"`
	UpdatedAt  int64           `json:"updatedAt"`
	CategoryID string          `json:"categoryId"`
	UserID     string          `json:"userId"`
}

type legacyCategory struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Attachments []model.Document `json:"attachments"`
	UpdatedAt   int64            `json:"updatedAt"`
}

func (s *Snapshotter) readLegacy(ctx context.Context) (*model.State, bool, error) {
	found := false
	state := &model.State{}

	var categories []legacyCategory
	ok, err := s.readLegacyJSON(ctx, LegacyCategoriesKey, &categories)
	if err != nil {
		return nil, false, err
	}
	found = found || ok
	for _, c := range categories {
		state.Categories = append(state.Categories, model.Category{
			ID:          c.ID,
			Name:        c.Name,
			Attachments: c.Attachments,
			UpdatedAt:   fromMillis(c.UpdatedAt),
		})
	}

	var conversations []legacyConversation
	ok, err = s.readLegacyJSON(ctx, LegacyConversationsKey, &conversations)
	if err != nil {
		return nil, false, err
	}
	found = found || ok
	for _, c := range conversations {
		conv := model.Conversation{
			ID:         c.ID,
			Title:      c.Title,
			Messages:   make([]model.Message, 0, len(c.Messages)),
			UpdatedAt:  fromMillis(c.UpdatedAt),
			CategoryID: c.CategoryID,
			OwnerID:    c.UserID,
		}
		for _, m := range c.Messages {
			conv.Messages = append(conv.Messages, model.Message{
				ID:        m.ID,
				Role:      model.Role(m.Role),
				Text:      m.Text,
				Timestamp: fromMillis(m.Timestamp),
			})
		}
		state.Conversations = append(state.Conversations, conv)
	}

	theme, err := s.readTheme(ctx, LegacyThemeKey)
	if err != nil {
		return nil, false, err
	}
	if theme != "" {
		found = true
		state.Theme = theme
	}

	return state, found, nil
}

func (s *Snapshotter) readLegacyJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read legacy %s failed: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode legacy %s failed: %w", key, err)
	}
	return true, nil
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
