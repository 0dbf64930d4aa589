package store

import (
	"sort"
	"strings"

	"studymate/internal/model"
)

// Conversations lists the owner's conversations, most recently updated
// first. An empty categoryID lists every category.
func (s *Store) Conversations(owner, categoryID string) []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0)
	for i := range s.state.Conversations {
		conv := &s.state.Conversations[i]
		if conv.OwnerID != owner {
			continue
		}
		if categoryID != "" && conv.CategoryID != categoryID {
			continue
		}
		out = append(out, conv.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// HasConversationIn reports whether owner has any conversation filed under
// categoryID.
func (s *Store) HasConversationIn(owner, categoryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Conversations {
		if s.state.Conversations[i].OwnerID == owner && s.state.Conversations[i].CategoryID == categoryID {
			return true
		}
	}
	return false
}

func (s *Store) Conversation(owner, id string) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(owner, id)
	if conv == nil {
		return model.Conversation{}, ErrConversationNotFound
	}
	return conv.Clone(), nil
}

func (s *Store) CreateConversation(owner, categoryID, title string) (model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.PlaceholderTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findCategory(categoryID) == nil {
		return model.Conversation{}, ErrCategoryNotFound
	}
	conv := model.Conversation{
		ID:         s.newID(),
		Title:      title,
		Messages:   []model.Message{},
		UpdatedAt:  s.now(),
		CategoryID: categoryID,
		OwnerID:    owner,
	}
	s.state.Conversations = append([]model.Conversation{conv}, s.state.Conversations...)
	s.flush()
	return conv.Clone(), nil
}

func (s *Store) RenameConversation(owner, id, title string) (model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Conversation{}, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(owner, id)
	if conv == nil {
		return model.Conversation{}, ErrConversationNotFound
	}
	conv.Title = title
	conv.UpdatedAt = s.now()
	s.flush()
	return conv.Clone(), nil
}

// SetTitle replaces the title without touching UpdatedAt. It is used by
// background title generation, which may finish after the conversation
// was deleted.
func (s *Store) SetTitle(owner, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(owner, id)
	if conv == nil {
		return ErrConversationNotFound
	}
	conv.Title = title
	s.flush()
	return nil
}

func (s *Store) DeleteConversation(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Conversations {
		conv := &s.state.Conversations[i]
		if conv.ID == id && conv.OwnerID == owner {
			s.state.Conversations = append(s.state.Conversations[:i], s.state.Conversations[i+1:]...)
			s.flush()
			return nil
		}
	}
	return ErrConversationNotFound
}

func (s *Store) AppendMessages(owner, convID string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(owner, convID)
	if conv == nil {
		return ErrConversationNotFound
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = s.now()
	s.flush()
	return nil
}

// ReplaceText swaps the whole text of an in-flight model message. The
// completion service delivers cumulative text, so this is never an append.
func (s *Store) ReplaceText(owner, convID, msgID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findMessage(owner, convID, msgID)
	if err != nil {
		return err
	}
	if !msg.IsStreaming {
		return ErrNotStreaming
	}
	msg.Text = text
	s.flush()
	return nil
}

// FinalizeMessage sets the final text and clears the streaming flag.
func (s *Store) FinalizeMessage(owner, convID, msgID, text string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findMessage(owner, convID, msgID)
	if err != nil {
		return model.Message{}, err
	}
	msg.Text = text
	msg.IsStreaming = false
	if conv := s.findConversation(owner, convID); conv != nil {
		conv.UpdatedAt = s.now()
	}
	s.flush()
	return *msg, nil
}

func (s *Store) RemoveMessage(owner, convID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(owner, convID)
	if conv == nil {
		return ErrConversationNotFound
	}
	i := conv.MessageIndex(msgID)
	if i < 0 {
		return ErrMessageNotFound
	}
	conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
	s.flush()
	return nil
}

func (s *Store) findConversation(owner, id string) *model.Conversation {
	for i := range s.state.Conversations {
		conv := &s.state.Conversations[i]
		if conv.ID == id && conv.OwnerID == owner {
			return conv
		}
	}
	return nil
}

func (s *Store) findMessage(owner, convID, msgID string) (*model.Message, error) {
	conv := s.findConversation(owner, convID)
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	i := conv.MessageIndex(msgID)
	if i < 0 {
		return nil, ErrMessageNotFound
	}
	return &conv.Messages[i], nil
}
