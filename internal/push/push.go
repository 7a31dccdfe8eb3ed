// Package push wraps the persistent server-push transports (SSE and
// WebSocket) behind one contract: open a channel, read typed events, close.
// A channel owns at most one physical connection at a time and reconnects on
// unexpected closure until it is explicitly closed.
package push

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind int

const (
	// KindData carries a decoded server payload.
	KindData EventKind = iota
	// KindParseError reports a malformed payload. The channel stays open.
	KindParseError
	// KindWarning reports a server-pushed {"error": ...} sentinel. It is a
	// non-fatal condition passed through to the handler.
	KindWarning
)

// Event is one delivery from a push channel. Name is the WebSocket event
// name, or "message" for SSE payloads.
type Event struct {
	Kind EventKind
	Name string
	Data json.RawMessage
	Err  error
}

// RetryPolicy controls the reconnect cadence. The default is the fixed
// delay the platform has always used; setting Multiplier > 1 and MaxDelay
// opts a channel into capped exponential backoff instead.
type RetryPolicy struct {
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NextDelay returns the wait before reconnect attempt n (n starts at 1).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := p.Delay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	if p.Multiplier <= 1 {
		return delay
	}
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// classify splits a raw JSON payload into a data or warning event. A
// payload that is not valid JSON becomes a parse-error event.
func classify(name string, raw []byte) Event {
	if len(raw) == 0 {
		return Event{Kind: KindData, Name: name}
	}
	if !json.Valid(raw) {
		return Event{Kind: KindParseError, Name: name, Err: fmt.Errorf("malformed payload: %q", truncate(raw, 120))}
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		if e, ok := probe["error"]; ok && string(e) != "null" {
			return Event{Kind: KindWarning, Name: name, Data: raw}
		}
	}
	return Event{Kind: KindData, Name: name, Data: raw}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
