// Package server is the dev backend: it implements the REST, SSE and
// WebSocket surface the console consumes, backed by sqlite. It exists so
// the client and its integration tests have a real peer to talk to.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kdimtricp/streamguard/internal/database"
)

type App struct {
	Agents        *database.AgentRepository
	Streams       *database.StreamRepository
	Notifications *database.NotificationRepository
	Keywords      *database.KeywordRepository

	// Detections fans detection events out to SSE subscribers.
	Detections *Broadcaster
	// Hub fans chat events out to WebSocket clients.
	Hub *Hub

	// Session is the identity handed to /api/session. The dev backend has
	// a single fixed viewer.
	SessionUserID   string
	SessionUsername string
	SessionRole     string

	// InteractiveStepDelay paces progress events of interactive stream
	// creation jobs.
	InteractiveStepDelay time.Duration

	jobs *jobSet
}

func NewApp(db *database.DB) *App {
	return &App{
		Agents:               database.NewAgentRepository(db),
		Streams:              database.NewStreamRepository(db),
		Notifications:        database.NewNotificationRepository(db),
		Keywords:             database.NewKeywordRepository(db),
		Detections:           NewBroadcaster(),
		Hub:                  NewHub(),
		SessionUserID:        "admin",
		SessionUsername:      "admin",
		SessionRole:          "admin",
		InteractiveStepDelay: 500 * time.Millisecond,
		jobs:                 newJobSet(),
	}
}

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", app.SessionHandler)
		r.Get("/dashboard", app.DashboardHandler)

		r.Get("/agents", app.ListAgentsHandler)
		r.Post("/agents", app.CreateAgentHandler)
		r.Put("/agents/{id}", app.UpdateAgentHandler)
		r.Delete("/agents/{id}", app.DeleteAgentHandler)

		r.Get("/streams", app.ListStreamsHandler)
		r.Post("/streams", app.CreateStreamHandler)
		r.Delete("/streams/{id}", app.DeleteStreamHandler)
		r.Post("/streams/interactive", app.InteractiveCreateHandler)
		r.Get("/streams/interactive/sse", app.InteractiveProgressHandler)

		r.Get("/notifications", app.ListNotificationsHandler)
		r.Put("/notifications/read-all", app.MarkAllNotificationsReadHandler)
		r.Put("/notifications/{id}/read", app.MarkNotificationReadHandler)
		r.Delete("/notifications", app.DeleteAllNotificationsHandler)
		r.Delete("/notifications/{id}", app.DeleteNotificationHandler)
		r.Post("/notifications/{id}/forward", app.ForwardNotificationHandler)

		r.Get("/keywords", app.ListKeywordsHandler("keyword"))
		r.Post("/keywords", app.CreateKeywordHandler("keyword"))
		r.Get("/objects", app.ListKeywordsHandler("object"))
		r.Post("/objects", app.CreateKeywordHandler("object"))

		r.Post("/detect-objects", app.DetectObjectsHandler)
		r.Post("/trigger-detection", app.TriggerDetectionHandler)
		r.Post("/stop-detection", app.StopDetectionHandler)
		r.Get("/detection-events", app.DetectionEventsHandler)
	})

	r.Get("/ws", app.Hub.ServeWS)

	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
