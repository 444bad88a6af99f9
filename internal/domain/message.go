package domain

import (
	"strings"
	"time"

	"github.com/hilthontt/watchparty/internal/infrastructure/validate"
)

type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeVideoLink MessageType = "video_link"
	MessageTypeSystem    MessageType = "system"
)

const MaxMessageLength = 1000

var (
	validateContent     = validate.Compose(validate.Required(), validate.MaxLength(MaxMessageLength))
	validateMessageType = validate.OneOf(string(MessageTypeText), string(MessageTypeVideoLink), string(MessageTypeSystem))
)

type Message struct {
	ID          int64       `json:"id"`
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewMessage builds a chat line for user. An empty type defaults to text.
func NewMessage(user *User, content string, messageType MessageType, now time.Time) (*Message, error) {
	if messageType == "" {
		messageType = MessageTypeText
	}
	if err := validateMessageType(string(messageType)); err != nil {
		return nil, newValidationError("message_type", err)
	}

	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, newValidationError("content", err)
	}

	return &Message{
		UserID:      user.ID,
		Username:    user.Username,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   now,
	}, nil
}
