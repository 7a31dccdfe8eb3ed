package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/streamguard/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[SERVER] encoding response: %v", err)
		}
	}
}

func (app *App) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  app.SessionUserID,
		"username": app.SessionUsername,
		"role":     app.SessionRole,
	})
}

func (app *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	streams, err := app.Streams.List()
	if err != nil {
		http.Error(w, "Failed to list streams", http.StatusInternalServerError)
		return
	}
	agents, err := app.Agents.List()
	if err != nil {
		http.Error(w, "Failed to list agents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"streams": streams,
		"agents":  agents,
	})
}

func (app *App) ListAgentsHandler(w http.ResponseWriter, r *http.Request) {
	agents, err := app.Agents.List()
	if err != nil {
		http.Error(w, "Failed to list agents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (app *App) CreateAgentHandler(w http.ResponseWriter, r *http.Request) {
	var agent models.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		http.Error(w, "Invalid agent payload", http.StatusBadRequest)
		return
	}
	if agent.Username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}
	created := models.NewAgent(agent.Username, agent.Role)
	if agent.ID != "" {
		created.ID = agent.ID
	}
	if err := app.Agents.Insert(created); err != nil {
		http.Error(w, "Failed to create agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (app *App) UpdateAgentHandler(w http.ResponseWriter, r *http.Request) {
	var agent models.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		http.Error(w, "Invalid agent payload", http.StatusBadRequest)
		return
	}
	agent.ID = chi.URLParam(r, "id")
	if err := app.Agents.Update(&agent); err != nil {
		http.Error(w, "Failed to update agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (app *App) DeleteAgentHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Agents.Delete(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Failed to delete agent", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ListStreamsHandler(w http.ResponseWriter, r *http.Request) {
	streams, err := app.Streams.List()
	if err != nil {
		http.Error(w, "Failed to list streams", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (app *App) CreateStreamHandler(w http.ResponseWriter, r *http.Request) {
	var handle models.StreamHandle
	if err := json.NewDecoder(r.Body).Decode(&handle); err != nil {
		http.Error(w, "Invalid stream payload", http.StatusBadRequest)
		return
	}
	if handle.RoomURL == "" || handle.Platform == "" {
		http.Error(w, "Platform and room URL are required", http.StatusBadRequest)
		return
	}
	created := models.NewStreamHandle(handle.Platform, handle.StreamerUsername, handle.RoomURL)
	created.ChaturbateM3U8URL = handle.ChaturbateM3U8URL
	created.StripchatM3U8URL = handle.StripchatM3U8URL
	created.AssignedAgent = handle.AssignedAgent
	if handle.ID != "" {
		created.ID = handle.ID
	}
	if err := app.Streams.Insert(created); err != nil {
		http.Error(w, "Failed to create stream", http.StatusInternalServerError)
		return
	}

	app.notifyStreamCreated(created)
	writeJSON(w, http.StatusCreated, created)
}

func (app *App) DeleteStreamHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Streams.Delete(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Failed to delete stream", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := app.Notifications.List()
	if err != nil {
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (app *App) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Notifications.MarkRead(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Failed to mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Notifications.MarkAllRead(); err != nil {
		http.Error(w, "Failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Notifications.Delete(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Failed to delete notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) DeleteAllNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Notifications.DeleteAll(); err != nil {
		http.Error(w, "Failed to delete notifications", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ForwardNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AgentID == "" {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}
	if err := app.Notifications.Forward(id, body.AgentID); err != nil {
		http.Error(w, "Failed to forward notification", http.StatusNotFound)
		return
	}

	app.Hub.NotifyForwarded(body.AgentID, models.ForwardedNotification{
		NotificationID: id,
		ForwardedBy:    app.SessionUserID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ListKeywordsHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keywords, err := app.Keywords.List(kind)
		if err != nil {
			http.Error(w, "Failed to list keywords", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, keywords)
	}
}

func (app *App) CreateKeywordHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var keyword models.Keyword
		if err := json.NewDecoder(r.Body).Decode(&keyword); err != nil || keyword.Value == "" {
			http.Error(w, "Value is required", http.StatusBadRequest)
			return
		}
		created := models.NewKeyword(keyword.Value, kind)
		if err := app.Keywords.Insert(created); err != nil {
			http.Error(w, "Duplicate keyword", http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func (app *App) notifyStreamCreated(handle *models.StreamHandle) {
	details, _ := json.Marshal(handle)
	rec := models.NewNotificationRecord(models.EventStreamCreated, details)
	rec.AssignedAgent = handle.AssignedAgent
	if err := app.Notifications.Insert(rec); err != nil {
		log.Printf("[SERVER] recording stream_created notification: %v", err)
	}
}
