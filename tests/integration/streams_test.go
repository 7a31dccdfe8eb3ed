package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kdimtricp/streamguard/internal/backend"
	"github.com/kdimtricp/streamguard/internal/models"
	"github.com/kdimtricp/streamguard/internal/push"
)

func TestStreamLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	handle := models.NewStreamHandle(models.PlatformChaturbate, "somemodel", "https://chaturbate.com/somemodel/")
	handle.ChaturbateM3U8URL = "https://edge.example.com/somemodel/playlist.m3u8"
	if err := ts.Client.CreateStream(ctx, handle); err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}

	streams, err := ts.Client.ListStreams(ctx)
	if err != nil {
		t.Fatalf("Failed to list streams: %v", err)
	}
	if len(streams) != 1 || streams[0].MediaURL() != handle.ChaturbateM3U8URL {
		t.Fatalf("streams = %+v", streams)
	}

	dash, err := ts.Client.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}
	if len(dash.Streams) != 1 {
		t.Errorf("dashboard streams = %d, want 1", len(dash.Streams))
	}

	if err := ts.Client.DeleteStream(ctx, streams[0].ID); err != nil {
		t.Fatalf("Failed to delete stream: %v", err)
	}
	streams, _ = ts.Client.ListStreams(ctx)
	if len(streams) != 0 {
		t.Errorf("streams after delete = %d, want 0", len(streams))
	}
}

func TestInteractiveCreateStreamsProgress(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	// Slow the job down so its progress feed is still live when the SSE
	// subscription attaches.
	ts.App.InteractiveStepDelay = 200 * time.Millisecond

	job, err := ts.Client.CreateStreamInteractive(ctx, "https://stripchat.com/othermodel/", models.PlatformStripchat, "")
	if err != nil {
		t.Fatalf("Failed to start interactive create: %v", err)
	}

	sse := push.OpenSSE(push.SSEConfig{
		URL:    ts.Client.InteractiveProgressURL(job.JobID),
		Client: ts.Client.HTTPClient(),
		Retry:  push.RetryPolicy{Delay: 50 * time.Millisecond},
	})
	defer sse.Close()

	var sawProgress bool
	timeout := time.After(3 * time.Second)
	for !sawProgress {
		select {
		case ev, ok := <-sse.Events():
			if !ok {
				t.Fatal("SSE channel closed before any progress event")
			}
			if ev.Kind != push.KindData {
				continue
			}
			var progress backend.InteractiveProgress
			if err := json.Unmarshal(ev.Data, &progress); err != nil {
				continue
			}
			if progress.Progress > 0 {
				sawProgress = true
			}
		case <-timeout:
			t.Fatal("no progress event arrived")
		}
	}

	waitFor(t, func() bool {
		streams, err := ts.Client.ListStreams(ctx)
		return err == nil && len(streams) == 1 && streams[0].StreamerUsername == "othermodel"
	}, "interactive job never created the stream")
}
