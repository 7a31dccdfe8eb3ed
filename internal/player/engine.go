package player

// EngineEventKind classifies signals from the adaptive streaming engine.
type EngineEventKind int

const (
	// EngineManifestParsed fires when the stream manifest has loaded and
	// playback can begin.
	EngineManifestParsed EngineEventKind = iota
	// EnginePlaybackError fires on a playback fault. Only fatal faults
	// change controller state; non-fatal ones are ignored.
	EnginePlaybackError
	// EngineStreamOffline fires when the source stream has gone away.
	EngineStreamOffline
)

type EngineEvent struct {
	Kind   EngineEventKind
	Fatal  bool
	Reason string
}

// Engine is the adaptive streaming engine bound to one media sink. The
// engine is an external capability; the controller only drives its
// lifecycle and reacts to its events.
type Engine interface {
	Load(url string, onEvent func(EngineEvent))
	Destroy()
}

// EngineFactory builds an engine bound to the given sink. Exactly one
// engine may be bound to a sink at a time.
type EngineFactory func(sink MediaSink) Engine

// MediaSink is the playback surface: the video element equivalent.
type MediaSink interface {
	Play() error
	SetMuted(muted bool)
	SetVolume(volume float64)
}
