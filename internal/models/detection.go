package models

import (
	"time"

	"github.com/google/uuid"
)

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one labeled, scored, localized hit from a detection scorer.
// The box is in displayed (CSS pixel) coordinate space.
type Detection struct {
	Label string      `json:"label"`
	Score float64     `json:"score"`
	Box   BoundingBox `json:"bbox"`
}

// DetectionReport is one emission of the per-stream detection loop. Reports
// are ephemeral: they are posted to the backend and not retained locally
// beyond the cooldown window.
type DetectionReport struct {
	ID             string      `json:"id"`
	StreamID       string      `json:"stream_id"`
	Streamer       string      `json:"streamer"`
	Detections     []Detection `json:"detections"`
	CapturedFrame  []byte      `json:"image_data,omitempty"`
	AnnotatedFrame []byte      `json:"annotated_image,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

func NewDetectionReport(streamID, streamer string, detections []Detection) *DetectionReport {
	return &DetectionReport{
		ID:         uuid.New().String(),
		StreamID:   streamID,
		Streamer:   streamer,
		Detections: detections,
		Timestamp:  time.Now(),
	}
}
