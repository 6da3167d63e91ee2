package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"

	MsgConnectionTrouble = "Sorry, I'm having trouble connecting right now. Please try again later."
)

type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one family member's chat support thread.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Viewer    string    `json:"-"`
	History   []Message `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
