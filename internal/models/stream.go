package models

import (
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformChaturbate Platform = "chaturbate"
	PlatformStripchat  Platform = "stripchat"
)

// StreamHandle identifies one monitored live stream. Identity is immutable
// after creation; only the agent assignment changes.
type StreamHandle struct {
	ID                string   `json:"id"`
	Platform          Platform `json:"platform"`
	StreamerUsername  string   `json:"streamer_username"`
	RoomURL           string   `json:"room_url"`
	ChaturbateM3U8URL string   `json:"chaturbate_m3u8_url,omitempty"`
	StripchatM3U8URL  string   `json:"stripchat_m3u8_url,omitempty"`
	AssignedAgent     string   `json:"assigned_agent,omitempty"`
}

// MediaURL returns the platform-specific playback URL, or "" when the
// backend did not supply one for the stream's platform.
func (h StreamHandle) MediaURL() string {
	switch h.Platform {
	case PlatformChaturbate:
		return h.ChaturbateM3U8URL
	case PlatformStripchat:
		return h.StripchatM3U8URL
	}
	return ""
}

func NewStreamHandle(platform Platform, streamer, roomURL string) *StreamHandle {
	return &StreamHandle{
		ID:               uuid.New().String(),
		Platform:         platform,
		StreamerUsername: streamer,
		RoomURL:          roomURL,
	}
}

type Agent struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAgent(username, role string) *Agent {
	return &Agent{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// Keyword is an operator-flagged term or object class used by the chat and
// object detectors.
type Keyword struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

func NewKeyword(value, kind string) *Keyword {
	return &Keyword{
		ID:    uuid.New().String(),
		Value: value,
		Kind:  kind,
	}
}
