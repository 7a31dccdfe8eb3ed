// Package player drives adaptive live-stream playback for one monitored
// stream: a state machine over an injected streaming engine plus mute and
// volume control mirrored onto the media sink.
package player

import (
	"log"
	"sync"

	"github.com/kdimtricp/streamguard/internal/models"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhasePlaying Phase = "playing"
	PhaseErrored Phase = "errored"
	PhaseOffline Phase = "offline"
)

// defaultVolume is restored when unmuting from a zero volume.
const defaultVolume = 0.5

// State is the externally visible playback state. It is mutated only by
// the controller.
type State struct {
	Phase        Phase
	IsMuted      bool
	Volume       float64
	ErrorMessage string
}

// Controller owns playback for one stream at a time. The bound sink is
// exclusively owned: re-attachment tears down any prior engine first.
type Controller struct {
	factory EngineFactory

	mu       sync.Mutex
	sink     MediaSink
	engine   Engine
	streamID string
	state    State
}

func NewController(factory EngineFactory) *Controller {
	return &Controller{
		factory: factory,
		state:   State{Phase: PhaseIdle, Volume: defaultVolume, IsMuted: true},
	}
}

// Attach binds the controller to a sink and starts loading the stream's
// platform media URL. A handle without a URL for its platform transitions
// straight to Errored with no engine instantiated. Attaching the stream
// that is already attached is a no-op.
func (c *Controller) Attach(sink MediaSink, handle models.StreamHandle) {
	c.mu.Lock()

	if c.engine != nil && c.streamID == handle.ID {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()

	c.sink = sink
	c.streamID = handle.ID

	url := handle.MediaURL()
	if url == "" {
		log.Printf("[PLAYER] stream %s (%s) has no %s media URL", handle.ID, handle.StreamerUsername, handle.Platform)
		c.state.Phase = PhaseErrored
		c.state.ErrorMessage = "Invalid stream URL"
		c.mu.Unlock()
		return
	}

	c.state.Phase = PhaseLoading
	c.state.ErrorMessage = ""

	engine := c.factory(sink)
	c.engine = engine
	id := handle.ID
	c.mu.Unlock()

	// Load outside the lock: engines may deliver events synchronously.
	engine.Load(url, func(ev EngineEvent) {
		c.handleEngineEvent(id, ev)
	})
}

// Detach destroys the bound engine and returns the controller to idle.
// Idempotent: every teardown path may call it.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.state.Phase = PhaseIdle
	c.state.ErrorMessage = ""
}

func (c *Controller) teardownLocked() {
	if c.engine != nil {
		c.engine.Destroy()
		c.engine = nil
	}
	c.sink = nil
	c.streamID = ""
}

func (c *Controller) handleEngineEvent(streamID string, ev EngineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale engine callbacks after re-attachment are dropped.
	if c.streamID != streamID || c.engine == nil {
		return
	}

	switch ev.Kind {
	case EngineManifestParsed:
		c.state.Phase = PhasePlaying
		c.state.ErrorMessage = ""
		// Best-effort autoplay: rejection (autoplay policy) is logged and
		// swallowed, never surfaced as Errored.
		if err := c.sink.Play(); err != nil {
			log.Printf("[PLAYER] autoplay rejected for stream %s: %v", streamID, err)
		}
	case EnginePlaybackError:
		if !ev.Fatal {
			return
		}
		log.Printf("[PLAYER] fatal playback error for stream %s: %s", streamID, ev.Reason)
		c.state.Phase = PhaseErrored
		c.state.ErrorMessage = ev.Reason
	case EngineStreamOffline:
		log.Printf("[PLAYER] stream %s is offline", streamID)
		c.state.Phase = PhaseOffline
		c.state.ErrorMessage = ev.Reason
	}
}

// SetMuted mirrors the mute flag onto the sink and the state. Unmuting
// with a zero volume restores a default audible volume.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsMuted = muted
	if !muted && c.state.Volume == 0 {
		c.state.Volume = defaultVolume
		if c.sink != nil {
			c.sink.SetVolume(defaultVolume)
		}
	}
	if c.sink != nil {
		c.sink.SetMuted(muted)
	}
}

// SetVolume clamps v to [0,1] and mirrors it onto the sink. Setting volume
// to exactly zero implies muted.
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Volume = v
	if c.sink != nil {
		c.sink.SetVolume(v)
	}
	if v == 0 {
		c.state.IsMuted = true
		if c.sink != nil {
			c.sink.SetMuted(true)
		}
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StreamID returns the id of the attached stream, or "" when idle.
func (c *Controller) StreamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamID
}
