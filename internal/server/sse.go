package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kdimtricp/streamguard/internal/models"
)

// Broadcaster fans JSON events out to every subscribed SSE client.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan []byte]struct{})}
}

func (b *Broadcaster) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish marshals v and delivers it to every subscriber. Slow subscribers
// drop events rather than block the publisher.
func (b *Broadcaster) Publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[SERVER] marshaling broadcast: %v", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

func serveSSE(w http.ResponseWriter, r *http.Request, events <-chan []byte) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	clientGone := r.Context().Done()
	for {
		select {
		case data, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-clientGone:
			return
		}
	}
}

// DetectionEventsHandler streams live detection events to the console.
func (app *App) DetectionEventsHandler(w http.ResponseWriter, r *http.Request) {
	ch := app.Detections.Subscribe()
	defer app.Detections.Unsubscribe(ch)
	serveSSE(w, r, ch)
}

// DetectObjectsHandler ingests one detection report from a console's
// detection loop: it becomes a notification record and a live SSE event.
func (app *App) DetectObjectsHandler(w http.ResponseWriter, r *http.Request) {
	var report models.DetectionReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid report payload", http.StatusBadRequest)
		return
	}
	if len(report.Detections) == 0 {
		http.Error(w, "Report has no detections", http.StatusBadRequest)
		return
	}

	details, _ := json.Marshal(map[string]any{
		"streamer":   report.Streamer,
		"detections": report.Detections,
	})
	rec := models.NewNotificationRecord(models.EventObjectDetection, details)
	if err := app.Notifications.Insert(rec); err != nil {
		http.Error(w, "Failed to record detection", http.StatusInternalServerError)
		return
	}

	app.Detections.Publish(map[string]any{
		"stream_url": report.StreamID,
		"detections": report.Detections,
	})
	writeJSON(w, http.StatusCreated, rec)
}

func (app *App) TriggerDetectionHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StreamURL string `json:"stream_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StreamURL == "" {
		http.Error(w, "stream_url is required", http.StatusBadRequest)
		return
	}
	log.Printf("[SERVER] detection triggered for %s", body.StreamURL)
	w.WriteHeader(http.StatusAccepted)
}

func (app *App) StopDetectionHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StreamURL string `json:"stream_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StreamURL == "" {
		http.Error(w, "stream_url is required", http.StatusBadRequest)
		return
	}
	log.Printf("[SERVER] detection stopped for %s", body.StreamURL)
	w.WriteHeader(http.StatusAccepted)
}

// jobSet tracks interactive stream-creation jobs and their progress feeds.
type jobSet struct {
	mu   sync.Mutex
	jobs map[string]chan []byte
}

func newJobSet() *jobSet {
	return &jobSet{jobs: make(map[string]chan []byte)}
}

func (js *jobSet) create() (string, chan []byte) {
	id := uuid.New().String()
	ch := make(chan []byte, 16)
	js.mu.Lock()
	js.jobs[id] = ch
	js.mu.Unlock()
	return id, ch
}

func (js *jobSet) get(id string) (chan []byte, bool) {
	js.mu.Lock()
	defer js.mu.Unlock()
	ch, ok := js.jobs[id]
	return ch, ok
}

func (js *jobSet) remove(id string) {
	js.mu.Lock()
	delete(js.jobs, id)
	js.mu.Unlock()
}

// InteractiveCreateHandler starts an asynchronous stream-creation job and
// returns its id; progress is streamed on the job's SSE endpoint.
func (app *App) InteractiveCreateHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomURL  string `json:"room_url"`
		Platform string `json:"platform"`
		AgentID  string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RoomURL == "" {
		http.Error(w, "room_url is required", http.StatusBadRequest)
		return
	}

	jobID, progress := app.jobs.create()
	go app.runInteractiveJob(jobID, progress, body.RoomURL, models.Platform(body.Platform), body.AgentID)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (app *App) runInteractiveJob(jobID string, progress chan []byte, roomURL string, platform models.Platform, agentID string) {
	defer close(progress)
	defer app.jobs.remove(jobID)

	steps := []struct {
		pct int
		msg string
	}{
		{10, "Resolving room"},
		{40, "Probing stream"},
		{75, "Extracting playback URL"},
		{100, "Stream created"},
	}

	for _, step := range steps {
		update, _ := json.Marshal(map[string]any{
			"progress":       step.pct,
			"message":        step.msg,
			"estimated_time": (100 - step.pct) / 25,
		})
		select {
		case progress <- update:
		default:
		}
		time.Sleep(app.InteractiveStepDelay)
	}

	handle := models.NewStreamHandle(platform, streamerFromRoomURL(roomURL), roomURL)
	handle.AssignedAgent = agentID
	if err := app.Streams.Insert(handle); err != nil {
		log.Printf("[SERVER] interactive job %s: inserting stream: %v", jobID, err)
		return
	}
	app.notifyStreamCreated(handle)
}

// InteractiveProgressHandler streams one job's progress events.
func (app *App) InteractiveProgressHandler(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	progress, ok := app.jobs.get(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	serveSSE(w, r, progress)
}

func streamerFromRoomURL(roomURL string) string {
	trimmed := roomURL
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			return trimmed[i+1:]
		}
	}
	return trimmed
}
