package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kdimtricp/streamguard/internal/models"
)

// recordingServer captures every request the client issues and answers with
// a canned JSON body per path.
type recordingServer struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]any
	status    int
}

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

func newRecordingServer(t *testing.T) *recordingServer {
	rs := &recordingServer{
		responses: make(map[string]any),
		status:    http.StatusOK,
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		rs.mu.Lock()
		rs.requests = append(rs.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		resp, ok := rs.responses[r.URL.Path]
		status := rs.status
		rs.mu.Unlock()

		w.WriteHeader(status)
		if ok {
			json.NewEncoder(w).Encode(resp)
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) respond(path string, v any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.responses[path] = v
}

func (rs *recordingServer) last(t *testing.T) recordedRequest {
	t.Helper()
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return rs.requests[len(rs.requests)-1]
}

func TestClient_GetSession(t *testing.T) {
	rs := newRecordingServer(t)
	rs.respond("/api/session", Session{UserID: "u1", Username: "alice", Role: "admin"})

	client := NewClient(rs.URL)
	session, err := client.GetSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if session.Username != "alice" || session.Role != "admin" {
		t.Errorf("session = %+v", session)
	}
	req := rs.last(t)
	if req.method != http.MethodGet || req.path != "/api/session" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
}

func TestClient_NotificationRoutes(t *testing.T) {
	rs := newRecordingServer(t)
	rs.respond("/api/notifications", []models.NotificationRecord{})
	client := NewClient(rs.URL)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantPath   string
	}{
		{"list", func() error { _, err := client.ListNotifications(ctx); return err }, http.MethodGet, "/api/notifications"},
		{"mark read", func() error { return client.MarkNotificationRead(ctx, "n1") }, http.MethodPut, "/api/notifications/n1/read"},
		{"mark all read", func() error { return client.MarkAllNotificationsRead(ctx) }, http.MethodPut, "/api/notifications/read-all"},
		{"delete", func() error { return client.DeleteNotification(ctx, "n1") }, http.MethodDelete, "/api/notifications/n1"},
		{"delete all", func() error { return client.DeleteAllNotifications(ctx) }, http.MethodDelete, "/api/notifications"},
		{"forward", func() error { return client.ForwardNotification(ctx, "n1", "a1") }, http.MethodPost, "/api/notifications/n1/forward"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatal(err)
			}
			req := rs.last(t)
			if req.method != tt.wantMethod || req.path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", req.method, req.path, tt.wantMethod, tt.wantPath)
			}
		})
	}
}

func TestClient_ForwardSendsAgentID(t *testing.T) {
	rs := newRecordingServer(t)
	client := NewClient(rs.URL)

	if err := client.ForwardNotification(context.Background(), "n1", "agent-7"); err != nil {
		t.Fatal(err)
	}
	req := rs.last(t)
	if req.body["agent_id"] != "agent-7" {
		t.Errorf("body = %v, want agent_id=agent-7", req.body)
	}
}

func TestClient_ReportDetection(t *testing.T) {
	rs := newRecordingServer(t)
	client := NewClient(rs.URL)

	report := models.NewDetectionReport("s1", "somemodel", []models.Detection{
		{Label: "phone", Score: 0.92},
	})
	if err := client.ReportDetection(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	req := rs.last(t)
	if req.method != http.MethodPost || req.path != "/api/detect-objects" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if req.body["stream_id"] != "s1" || req.body["streamer"] != "somemodel" {
		t.Errorf("body = %v", req.body)
	}
}

func TestClient_InteractiveCreateRequiresJobID(t *testing.T) {
	rs := newRecordingServer(t)
	rs.respond("/api/streams/interactive", InteractiveCreateJob{})
	client := NewClient(rs.URL)

	_, err := client.CreateStreamInteractive(context.Background(), "https://chaturbate.com/somemodel/", models.PlatformChaturbate, "a1")
	if err == nil {
		t.Fatal("expected an error for an empty job id")
	}

	rs.respond("/api/streams/interactive", InteractiveCreateJob{JobID: "job-1"})
	job, err := client.CreateStreamInteractive(context.Background(), "https://chaturbate.com/somemodel/", models.PlatformChaturbate, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if job.JobID != "job-1" {
		t.Errorf("job id = %q", job.JobID)
	}
	if got := client.InteractiveProgressURL(job.JobID); got != rs.URL+"/api/streams/interactive/sse?job_id=job-1" {
		t.Errorf("progress URL = %q", got)
	}
}

func TestClient_NonSuccessStatusIsError(t *testing.T) {
	rs := newRecordingServer(t)
	rs.status = http.StatusInternalServerError
	client := NewClient(rs.URL)

	if _, err := client.ListNotifications(context.Background()); err == nil {
		t.Fatal("expected an error on a 500 response")
	}
}

func TestClient_KeywordRoutesSplitByKind(t *testing.T) {
	rs := newRecordingServer(t)
	rs.respond("/api/keywords", []models.Keyword{})
	rs.respond("/api/objects", []models.Keyword{})
	client := NewClient(rs.URL)
	ctx := context.Background()

	if _, err := client.ListKeywords(ctx, "audio"); err != nil {
		t.Fatal(err)
	}
	if req := rs.last(t); req.path != "/api/keywords" {
		t.Errorf("audio keywords path = %s", req.path)
	}

	if _, err := client.ListKeywords(ctx, "object"); err != nil {
		t.Fatal(err)
	}
	if req := rs.last(t); req.path != "/api/objects" {
		t.Errorf("object keywords path = %s", req.path)
	}
}
