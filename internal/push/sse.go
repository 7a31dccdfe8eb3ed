package push

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSEConfig configures one Server-Sent Events channel.
type SSEConfig struct {
	URL string
	// WithCredentials adds cookie headers from the given jar-backed client.
	// When nil, http.DefaultClient semantics apply with no cookies.
	Client *http.Client
	Retry  RetryPolicy
	// Buffer is the event channel capacity. Defaults to 64.
	Buffer int
}

// SSEChannel is a push channel over text/event-stream. All payloads arrive
// on the "message" event: the platform emits one JSON document per data
// frame with no custom event-type field.
type SSEChannel struct {
	cfg    SSEConfig
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// OpenSSE starts the channel and its reconnect loop. The caller must Close
// the channel on every teardown path to release the connection.
func OpenSSE(cfg SSEConfig) *SSEChannel {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := &SSEChannel{
		cfg:    cfg,
		events: make(chan Event, cfg.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go ch.run(ctx)
	return ch
}

// Events delivers decoded payloads, parse errors and server warnings. The
// channel is closed after Close returns the channel to idle.
func (ch *SSEChannel) Events() <-chan Event {
	return ch.events
}

// Close tears the connection down and stops reconnecting. Safe to call more
// than once.
func (ch *SSEChannel) Close() {
	ch.once.Do(func() {
		ch.cancel()
		<-ch.done
		close(ch.events)
	})
}

func (ch *SSEChannel) run(ctx context.Context) {
	defer close(ch.done)

	attempt := 0
	for {
		err := ch.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		attempt++
		delay := ch.cfg.Retry.NextDelay(attempt)
		log.Printf("[PUSH] SSE channel %s dropped (%v), reconnecting in %v", ch.cfg.URL, err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// consume holds one physical connection open and pumps its frames. Returns
// when the connection drops or the context is cancelled.
func (ch *SSEChannel) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ch.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := ch.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				ch.deliver(ctx, classify("message", []byte(data.String())))
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return fmt.Errorf("stream closed by server")
}

func (ch *SSEChannel) deliver(ctx context.Context, ev Event) {
	select {
	case ch.events <- ev:
	case <-ctx.Done():
	}
}
