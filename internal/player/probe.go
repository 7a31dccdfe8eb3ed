package player

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ProbeEngine is the headless console's streaming engine: it fetches the
// HLS manifest and reports the load outcome, without demuxing or decoding
// anything. A real playback surface would swap in a full engine behind the
// same interface.
type ProbeEngine struct {
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewProbeEngineFactory returns an EngineFactory producing probe engines
// that share the given HTTP client.
func NewProbeEngineFactory(client *http.Client) EngineFactory {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return func(sink MediaSink) Engine {
		return &ProbeEngine{client: client}
	}
}

func (e *ProbeEngine) Load(url string, onEvent func(EngineEvent)) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		ev := e.probe(ctx, url)
		if ctx.Err() != nil {
			return
		}
		onEvent(ev)
	}()
}

func (e *ProbeEngine) probe(ctx context.Context, url string) EngineEvent {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return EngineEvent{Kind: EnginePlaybackError, Fatal: true, Reason: err.Error()}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return EngineEvent{Kind: EnginePlaybackError, Fatal: true, Reason: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return EngineEvent{Kind: EngineStreamOffline, Reason: "stream not found"}
	case resp.StatusCode != http.StatusOK:
		return EngineEvent{Kind: EnginePlaybackError, Fatal: true, Reason: resp.Status}
	}

	scanner := bufio.NewScanner(resp.Body)
	if !scanner.Scan() || !strings.HasPrefix(strings.TrimSpace(scanner.Text()), "#EXTM3U") {
		return EngineEvent{Kind: EnginePlaybackError, Fatal: true, Reason: "not an HLS manifest"}
	}
	return EngineEvent{Kind: EngineManifestParsed}
}

// Destroy cancels an in-flight probe. Idempotent.
func (e *ProbeEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
