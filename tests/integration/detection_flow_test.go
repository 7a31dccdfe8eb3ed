package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/streamguard/internal/detect"
	"github.com/kdimtricp/streamguard/internal/models"
	"github.com/kdimtricp/streamguard/internal/notify"
	"github.com/kdimtricp/streamguard/internal/push"
)

// TestDetectionReportFlow drives the full loop-to-console path: a posted
// detection report becomes a notification record and a live SSE event, and
// the SSE event pokes the reconciler into refetching.
func TestDetectionReportFlow(t *testing.T) {
	ts := setupTestServer(t)

	sse := push.OpenSSE(push.SSEConfig{
		URL:    ts.Client.DetectionEventsURL(),
		Client: ts.Client.HTTPClient(),
		Retry:  push.RetryPolicy{Delay: 100 * time.Millisecond},
	})
	defer sse.Close()

	reconciler := notify.NewReconciler(ts.Client, notify.Viewer{Username: "admin", Role: "admin"}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.Run(ctx)

	go func() {
		for ev := range sse.Events() {
			if ev.Kind == push.KindData && strings.Contains(string(ev.Data), "detections") {
				reconciler.Poke()
			}
		}
	}()

	// SSE subscription races the report post; give it a moment to attach.
	time.Sleep(100 * time.Millisecond)

	report := models.NewDetectionReport("s1", "somemodel", []models.Detection{
		{Label: "phone", Score: 0.93, Box: models.BoundingBox{X: 100, Y: 50, Width: 80, Height: 120}},
	})
	if err := ts.Client.ReportDetection(ctx, report); err != nil {
		t.Fatalf("Failed to report detection: %v", err)
	}

	waitFor(t, func() bool {
		visible := reconciler.Visible()
		return len(visible) == 1 && visible[0].EventType == models.EventObjectDetection
	}, "reconciler never picked up the detection notification")

	if reconciler.UnreadCount() != 1 {
		t.Errorf("unread = %d, want 1", reconciler.UnreadCount())
	}
}

type staticFrameSource struct{}

func (staticFrameSource) Playing() bool { return true }
func (staticFrameSource) Frame() (detect.Frame, bool) {
	return detect.Frame{Width: 1280, Height: 720}, true
}

type staticScorer struct {
	detections []models.Detection
}

func (staticScorer) Name() string { return "static" }
func (s staticScorer) Score(ctx context.Context, frame detect.Frame) ([]models.Detection, error) {
	return s.detections, nil
}

// TestDetectionLoopReportsReachServer runs a sampling loop the way a console
// runs one per watched stream, with its reports drained into the client.
func TestDetectionLoopReportsReachServer(t *testing.T) {
	ts := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := detect.NewLoop(detect.Config{
		StreamID: "s1",
		Streamer: "somemodel",
		Allowed:  []string{"phone"},
		Interval: 20 * time.Millisecond,
	}, staticFrameSource{}, staticScorer{detections: []models.Detection{
		{Label: "phone", Score: 0.91, Box: models.BoundingBox{X: 10, Y: 20, Width: 64, Height: 64}},
	}})
	go loop.Run(ctx)
	go func() {
		for report := range loop.Reports() {
			if err := ts.Client.ReportDetection(ctx, report); err != nil {
				t.Errorf("Failed to report detection: %v", err)
			}
		}
	}()

	waitFor(t, func() bool {
		records, err := ts.App.Notifications.List()
		return err == nil && len(records) == 1 && records[0].EventType == models.EventObjectDetection
	}, "loop report never became a notification")
}

func TestMarkReadRoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	rec := models.NewNotificationRecord(models.EventAudioDetection, nil)
	if err := ts.App.Notifications.Insert(rec); err != nil {
		t.Fatal(err)
	}

	reconciler := notify.NewReconciler(ts.Client, notify.Viewer{Username: "admin", Role: "admin"}, time.Hour)
	if err := reconciler.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if reconciler.UnreadCount() != 1 {
		t.Fatalf("unread = %d, want 1", reconciler.UnreadCount())
	}

	reconciler.MarkRead(ctx, rec.ID)
	if reconciler.UnreadCount() != 0 {
		t.Error("mark read not applied optimistically")
	}

	// The fire-and-forget call lands server-side.
	waitFor(t, func() bool {
		records, err := ts.App.Notifications.List()
		return err == nil && len(records) == 1 && records[0].Read
	}, "mark read never reached the server")

	// A later refresh agrees with the server.
	if err := reconciler.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if reconciler.UnreadCount() != 0 {
		t.Error("record reverted to unread after refresh")
	}
}

func TestForwardAssignsAgentServerSide(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	rec := models.NewNotificationRecord(models.EventObjectDetection, nil)
	if err := ts.App.Notifications.Insert(rec); err != nil {
		t.Fatal(err)
	}

	reconciler := notify.NewReconciler(ts.Client, notify.Viewer{Username: "admin", Role: "admin"}, time.Hour)
	if err := reconciler.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	reconciler.Forward(ctx, rec.ID, "alice")

	waitFor(t, func() bool {
		records, err := ts.App.Notifications.List()
		return err == nil && len(records) == 1 && records[0].AssignedAgent == "alice"
	}, "forward never reached the server")
}
