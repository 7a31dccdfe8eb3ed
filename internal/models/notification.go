package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventObjectDetection EventType = "object_detection"
	EventAudioDetection  EventType = "audio_detection"
	EventChatDetection   EventType = "chat_detection"
	EventStreamCreated   EventType = "stream_created"
)

// NotificationRecord is the canonical server-side alert entity. Uniqueness
// key is ID. Within the reconciler's set, Read is monotonic: once true it
// never reverts until the record is deleted.
type NotificationRecord struct {
	ID            string          `json:"id"`
	EventType     EventType       `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	Read          bool            `json:"read"`
	AssignedAgent string          `json:"assigned_agent,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
}

func NewNotificationRecord(eventType EventType, details json.RawMessage) *NotificationRecord {
	return &NotificationRecord{
		ID:        uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
		Details:   details,
	}
}
