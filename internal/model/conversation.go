package model

import "time"

const (
	GuestOwnerID = "guest"

	PlaceholderTitle = "שיחה חדשה..."
	FallbackTitle    = "שיחה חדשה"
)

type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	UpdatedAt  time.Time `json:"updatedAt"`
	CategoryID string    `json:"categoryId"`
	OwnerID    string    `json:"ownerId"`
}

// MessageIndex returns the position of the message with id, or -1.
func (c *Conversation) MessageIndex(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// LastModelText returns the text of the most recent model message.
func (c *Conversation) LastModelText() (string, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleModel {
			return c.Messages[i].Text, true
		}
	}
	return "", false
}

func (c *Conversation) Clone() Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusProcessing Status = "PROCESSING"
	StatusStreaming  Status = "STREAMING"
)
