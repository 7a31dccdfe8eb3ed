package detect

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kdimtricp/streamguard/internal/models"
)

const (
	defaultInterval = 1 * time.Second
	defaultCooldown = 10 * time.Second
)

// Config configures one per-stream detection loop.
type Config struct {
	StreamID string
	Streamer string
	// Allowed is the operator-flagged class allow-list, matched
	// case-insensitively.
	Allowed []string
	// Interval is the sampling cadence (default 1s).
	Interval time.Duration
	// Cooldown is the minimum gap between report emissions (default 10s):
	// at most one report per window per stream, an intentional rate limit.
	Cooldown time.Duration
	// Annotate optionally renders detections onto the captured frame for
	// the report's annotated image.
	Annotate func(frame Frame, detections []models.Detection) []byte
}

// Loop samples one stream. Cycles are strictly serialized: a tick is
// skipped entirely while the previous cycle's scorer calls are still in
// flight. Loops for different streams are fully independent.
type Loop struct {
	cfg     Config
	source  FrameSource
	scorers []Scorer
	reports chan *models.DetectionReport

	wg            sync.WaitGroup
	mu            sync.Mutex
	inFlight      bool
	cooldownUntil time.Time
}

// NewLoop builds a loop over the given source and scorers. A nil or empty
// scorer set is valid: every cycle simply yields nothing.
func NewLoop(cfg Config, source FrameSource, scorers ...Scorer) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Loop{
		cfg:     cfg,
		source:  source,
		scorers: scorers,
		reports: make(chan *models.DetectionReport, 8),
	}
}

// Reports delivers one report per emission. Closed when Run returns.
func (l *Loop) Reports() <-chan *models.DetectionReport {
	return l.reports
}

// Run drives the sampling ticker until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	// Drain the in-flight cycle before closing the report channel.
	defer close(l.reports)
	defer l.wg.Wait()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick runs at most one sampling cycle. The in-flight guard keeps cycles
// from overlapping when a scorer is slower than the interval.
func (l *Loop) tick(ctx context.Context) {
	if !l.source.Playing() {
		return
	}

	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return
	}
	l.inFlight = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			l.inFlight = false
			l.mu.Unlock()
		}()
		l.cycle(ctx)
	}()
}

func (l *Loop) cycle(ctx context.Context) {
	frame, ok := l.source.Frame()
	if !ok {
		return
	}

	// Union the outputs of every loaded scorer; a scorer failure skips
	// only that scorer's contribution.
	var union []models.Detection
	for _, scorer := range l.scorers {
		detections, err := scorer.Score(ctx, frame)
		if err != nil {
			log.Printf("[DETECT] stream %s: scorer %s failed: %v", l.cfg.StreamID, scorer.Name(), err)
			continue
		}
		union = append(union, detections...)
	}

	flagged := FilterAllowed(union, l.cfg.Allowed)
	if len(flagged) == 0 {
		return
	}

	l.mu.Lock()
	now := time.Now()
	if now.Before(l.cooldownUntil) {
		l.mu.Unlock()
		return
	}
	l.cooldownUntil = now.Add(l.cfg.Cooldown)
	l.mu.Unlock()

	report := models.NewDetectionReport(l.cfg.StreamID, l.cfg.Streamer, flagged)
	report.CapturedFrame = frame.Image
	if l.cfg.Annotate != nil {
		report.AnnotatedFrame = l.cfg.Annotate(frame, flagged)
	}

	select {
	case l.reports <- report:
		log.Printf("[DETECT] stream %s: flagged %d detection(s), cooldown %v", l.cfg.StreamID, len(flagged), l.cfg.Cooldown)
	case <-ctx.Done():
	}
}
