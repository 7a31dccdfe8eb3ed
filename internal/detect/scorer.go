// Package detect samples decoded video frames on a fixed cadence, runs the
// loaded detection scorers against each sample, and emits rate-limited
// reports for operator-flagged classes.
package detect

import (
	"context"
	"strings"

	"github.com/kdimtricp/streamguard/internal/models"
)

// Frame is one decoded video frame in display coordinates.
type Frame struct {
	Image  []byte
	Width  int
	Height int
}

// FrameSource supplies frames from a playing stream. Playing mirrors the
// media element state: the loop samples only while it reports true.
type FrameSource interface {
	Playing() bool
	Frame() (Frame, bool)
}

// Scorer maps a frame to labeled, scored, localized detections. Scorers are
// black boxes (object classes, hand pose, body segmentation); each is
// optional and independently loadable.
type Scorer interface {
	Name() string
	Score(ctx context.Context, frame Frame) ([]models.Detection, error)
}

// RescaleBox maps a box from the scorer's native resolution into display
// space. The factor is displayDimension / modelDimension per axis.
func RescaleBox(box models.BoundingBox, modelW, modelH, displayW, displayH int) models.BoundingBox {
	if modelW <= 0 || modelH <= 0 {
		return box
	}
	sx := float64(displayW) / float64(modelW)
	sy := float64(displayH) / float64(modelH)
	return models.BoundingBox{
		X:      box.X * sx,
		Y:      box.Y * sy,
		Width:  box.Width * sx,
		Height: box.Height * sy,
	}
}

// FilterAllowed keeps only detections whose label matches the allow-list by
// exact case-folded equality.
func FilterAllowed(detections []models.Detection, allowed []string) []models.Detection {
	if len(allowed) == 0 {
		return nil
	}
	index := make(map[string]bool, len(allowed))
	for _, label := range allowed {
		index[strings.ToLower(label)] = true
	}

	var kept []models.Detection
	for _, d := range detections {
		if index[strings.ToLower(d.Label)] {
			kept = append(kept, d)
		}
	}
	return kept
}
