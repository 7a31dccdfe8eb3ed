package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SocketConfig configures one WebSocket push channel.
type SocketConfig struct {
	URL string
	// Query is appended to the URL on every (re)connect; the messaging
	// channel carries viewer identity (userId, role) here.
	Query  url.Values
	Retry  RetryPolicy
	Buffer int
}

// frame is the wire envelope for named WebSocket events.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Socket is a push channel over WebSocket with named events and a Send
// side. The reconnect contract matches SSEChannel: one physical connection
// at a time, fixed-delay retry until Close.
type Socket struct {
	cfg    SocketConfig
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

// OpenSocket starts the channel and its reconnect loop.
func OpenSocket(cfg SocketConfig) *Socket {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		cfg:    cfg,
		events: make(chan Event, cfg.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Socket) Events() <-chan Event {
	return s.events
}

// Send marshals v and writes it as the named event. Returns an error while
// disconnected; callers treat sends as fire-and-forget and log failures.
func (s *Socket) Send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("socket not connected")
	}
	if err := s.conn.WriteJSON(frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("writing %s event: %w", event, err)
	}
	return nil
}

// Close tears the connection down and stops reconnecting. Idempotent.
func (s *Socket) Close() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		<-s.done
		close(s.events)
	})
}

func (s *Socket) run(ctx context.Context) {
	defer close(s.done)

	attempt := 0
	for {
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		attempt++
		delay := s.cfg.Retry.NextDelay(attempt)
		log.Printf("[PUSH] socket %s dropped (%v), reconnecting in %v", s.cfg.URL, err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Socket) consume(ctx context.Context) error {
	target := s.cfg.URL
	if len(s.cfg.Query) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return fmt.Errorf("parsing url: %w", err)
		}
		q := u.Query()
		for k, vs := range s.cfg.Query {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dialing: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	// Close may have run between the dial and the store above; it found
	// no conn to close, and ReadMessage would block past cancellation.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading: %w", err)
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
			s.deliver(ctx, Event{Kind: KindParseError, Err: fmt.Errorf("malformed frame: %q", truncate(raw, 120))})
			continue
		}
		s.deliver(ctx, classify(f.Event, f.Data))
	}
}

func (s *Socket) deliver(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
