package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	IsStreaming bool      `json:"isStreaming,omitempty"`
}

// ArchivedMessage is the row written by the archive worker once a model
// message has reached its final text.
type ArchivedMessage struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	MessageID      string    `gorm:"size:64;not null;uniqueIndex" json:"message_id"`
	ConversationID string    `gorm:"size:64;not null;index" json:"conversation_id"`
	CategoryID     string    `gorm:"size:64;not null;index" json:"category_id"`
	OwnerID        string    `gorm:"size:64;not null;index" json:"owner_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Text           string    `gorm:"type:mediumtext;not null" json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	CreatedAt      time.Time `json:"-"`
}
