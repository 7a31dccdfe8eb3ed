package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageNormal       MessageType = "normal"
	MessageNotification MessageType = "notification"
)

// ChatMessage is append-only per (sender, receiver) conversation; only the
// Read flag is ever mutated in place.
type ChatMessage struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Read       bool        `json:"read"`
	Type       MessageType `json:"type"`
}

func NewChatMessage(senderID, receiverID, content string) *ChatMessage {
	return &ChatMessage{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now(),
		Type:       MessageNormal,
	}
}

// PresenceEntry is one row of the online-user roster. Rosters are replaced
// wholesale on each broadcast, never merged field by field.
type PresenceEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Online bool   `json:"online"`
}

// TypingState is the payload of the "typing" chat event.
type TypingState struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

// ForwardedNotification is the payload of the "notification_forwarded" chat
// event, carried on the synthesized system message for detail-view lookup.
type ForwardedNotification struct {
	NotificationID string          `json:"notification_id"`
	ForwardedBy    string          `json:"forwarded_by"`
	EventType      EventType       `json:"event_type"`
	Details        json.RawMessage `json:"details,omitempty"`
}
