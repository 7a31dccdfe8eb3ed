// Package chat tracks the online-user roster and exchanges messages and
// typing indicators with other operators over the WebSocket push channel.
package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/kdimtricp/streamguard/internal/models"
	"github.com/kdimtricp/streamguard/internal/push"
)

// Transport is the push-channel surface the chat protocol runs over.
// push.Socket satisfies it; tests substitute an in-memory pair.
type Transport interface {
	Events() <-chan push.Event
	Send(event string, v any) error
	Close()
}

// Identity is the viewer, sent as connection metadata when the socket is
// opened (userId and role query parameters).
type Identity struct {
	UserID string
	Role   string
}

const defaultTypingQuiet = 1 * time.Second

// Config tunes a channel beyond its transport and identity.
type Config struct {
	// TypingQuiet is how long after the last keystroke the trailing
	// typing:false is sent (default 1s).
	TypingQuiet time.Duration
	// OnForwarded fires for each notification_forwarded event, after the
	// system message has been appended. The dashboard uses it to poke the
	// notification reconciler.
	OnForwarded func(models.ForwardedNotification)
}

// Channel owns the derived chat collections: roster, message log, per-peer
// unread counters and typing states. It is their sole mutator.
type Channel struct {
	transport Transport
	self      Identity
	cfg       Config

	mu           sync.Mutex
	roster       []models.PresenceEntry
	messages     []models.ChatMessage
	unread       map[string]int
	typing       map[string]bool
	selectedPeer string
	typingTimers map[string]*time.Timer
	forwarded    map[string]models.ForwardedNotification
}

func NewChannel(transport Transport, self Identity, cfg Config) *Channel {
	if cfg.TypingQuiet <= 0 {
		cfg.TypingQuiet = defaultTypingQuiet
	}
	return &Channel{
		transport:    transport,
		self:         self,
		cfg:          cfg,
		unread:       make(map[string]int),
		typing:       make(map[string]bool),
		typingTimers: make(map[string]*time.Timer),
		forwarded:    make(map[string]models.ForwardedNotification),
	}
}

// Run consumes transport events until ctx is cancelled or the transport's
// event channel closes.
func (c *Channel) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.transport.Events():
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Channel) handle(ev push.Event) {
	switch ev.Kind {
	case push.KindParseError:
		log.Printf("[CHAT] dropping malformed event: %v", ev.Err)
		return
	case push.KindWarning:
		log.Printf("[CHAT] server warning on %s: %s", ev.Name, ev.Data)
		return
	}

	switch ev.Name {
	case "online_users":
		var roster []models.PresenceEntry
		if err := json.Unmarshal(ev.Data, &roster); err != nil {
			log.Printf("[CHAT] bad roster payload: %v", err)
			return
		}
		c.mu.Lock()
		// Authoritative snapshot wins wholesale, never merged.
		c.roster = roster
		c.mu.Unlock()

	case "receive_message":
		var msg models.ChatMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			log.Printf("[CHAT] bad message payload: %v", err)
			return
		}
		if msg.Type == "" {
			msg.Type = models.MessageNormal
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		if msg.SenderID != c.self.UserID && msg.SenderID != c.selectedPeer {
			c.unread[msg.SenderID]++
		}
		c.mu.Unlock()

	case "typing":
		var state models.TypingState
		if err := json.Unmarshal(ev.Data, &state); err != nil {
			log.Printf("[CHAT] bad typing payload: %v", err)
			return
		}
		c.mu.Lock()
		// Only the most recent state per peer is retained; it clears only
		// on an explicit typing:false from that peer.
		c.typing[state.From] = state.Typing
		c.mu.Unlock()

	case "notification_forwarded":
		var fwd models.ForwardedNotification
		if err := json.Unmarshal(ev.Data, &fwd); err != nil {
			log.Printf("[CHAT] bad forward payload: %v", err)
			return
		}
		msg := models.NewChatMessage(fwd.ForwardedBy, c.self.UserID, "Forwarded a notification")
		msg.Type = models.MessageNotification
		c.mu.Lock()
		c.messages = append(c.messages, *msg)
		c.forwarded[msg.ID] = fwd
		if fwd.ForwardedBy != c.selectedPeer {
			c.unread[fwd.ForwardedBy]++
		}
		c.mu.Unlock()
		if c.cfg.OnForwarded != nil {
			c.cfg.OnForwarded(fwd)
		}

	case "user_activity":
		// presence heartbeat; the roster broadcast carries the state
	default:
		log.Printf("[CHAT] ignoring unknown event %q", ev.Name)
	}
}

// Send posts a message to a peer, fire-and-forget. No optimistic local
// append: the sender's copy appears only when the server echoes it back on
// receive_message.
func (c *Channel) Send(receiverID, content string) {
	msg := models.NewChatMessage(c.self.UserID, receiverID, content)
	if err := c.transport.Send("send_message", msg); err != nil {
		log.Printf("[CHAT] send to %s failed: %v", receiverID, err)
	}
}

// NotifyTyping records one keystroke toward a peer. The first keystroke
// after a quiet period sends typing:true immediately; typing:false is
// scheduled one quiet period after the last keystroke, and each new
// keystroke cancels the previously scheduled false.
func (c *Channel) NotifyTyping(peerID string) {
	c.mu.Lock()
	prev, ok := c.typingTimers[peerID]
	// Stop returning false means the timer already fired: the quiet
	// period elapsed, so this keystroke starts a fresh burst.
	active := ok && prev.Stop()

	var timer *time.Timer
	timer = time.AfterFunc(c.cfg.TypingQuiet, func() {
		c.mu.Lock()
		if c.typingTimers[peerID] != timer {
			// Superseded by a newer keystroke's timer.
			c.mu.Unlock()
			return
		}
		delete(c.typingTimers, peerID)
		c.mu.Unlock()
		c.sendTyping(peerID, false)
	})
	c.typingTimers[peerID] = timer
	c.mu.Unlock()

	if !active {
		c.sendTyping(peerID, true)
	}
}

func (c *Channel) sendTyping(peerID string, typing bool) {
	state := models.TypingState{From: c.self.UserID, To: peerID, Typing: typing}
	if err := c.transport.Send("typing", state); err != nil {
		log.Printf("[CHAT] typing signal to %s failed: %v", peerID, err)
	}
}

// SelectPeer switches the open conversation and clears that peer's unread
// counter.
func (c *Channel) SelectPeer(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedPeer = peerID
	delete(c.unread, peerID)
}

func (c *Channel) Roster() []models.PresenceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PresenceEntry, len(c.roster))
	copy(out, c.roster)
	return out
}

// Conversation returns the messages exchanged with a peer, including
// synthesized notification messages from them, in arrival order.
func (c *Channel) Conversation(peerID string) []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.ChatMessage
	for _, msg := range c.messages {
		fromPeer := msg.SenderID == peerID && msg.ReceiverID == c.self.UserID
		toPeer := msg.SenderID == c.self.UserID && msg.ReceiverID == peerID
		if fromPeer || toPeer {
			out = append(out, msg)
		}
	}
	return out
}

func (c *Channel) Unread(peerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[peerID]
}

func (c *Channel) PeerTyping(peerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing[peerID]
}

// Forwarded looks up the payload behind a synthesized notification message
// for detail-view rendering.
func (c *Channel) Forwarded(messageID string) (models.ForwardedNotification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fwd, ok := c.forwarded[messageID]
	return fwd, ok
}

// Close stops typing timers and closes the transport. Idempotent through
// the transport's own idempotence.
func (c *Channel) Close() {
	c.mu.Lock()
	for peer, timer := range c.typingTimers {
		timer.Stop()
		delete(c.typingTimers, peer)
	}
	c.mu.Unlock()
	c.transport.Close()
}
