package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kdimtricp/streamguard/internal/backend"
	"github.com/kdimtricp/streamguard/internal/chat"
	"github.com/kdimtricp/streamguard/internal/detect"
	"github.com/kdimtricp/streamguard/internal/models"
	"github.com/kdimtricp/streamguard/internal/notify"
	"github.com/kdimtricp/streamguard/internal/player"
	"github.com/kdimtricp/streamguard/internal/push"
)

// consoleSink is the headless stand-in for a video element: it only keeps
// the mute/volume mirror honest.
type consoleSink struct{}

func (consoleSink) Play() error       { return nil }
func (consoleSink) SetMuted(bool)     {}
func (consoleSink) SetVolume(float64) {}

// playerFrameSource gates a stream's detection loop on its player state.
// Headless consoles have no decoder, so frames are empty placeholders;
// scorers loaded on top of this source still get the sampling cadence.
type playerFrameSource struct {
	controller *player.Controller
}

func (s playerFrameSource) Playing() bool {
	return s.controller.State().Phase == player.PhasePlaying
}

func (s playerFrameSource) Frame() (detect.Frame, bool) {
	if !s.Playing() {
		return detect.Frame{}, false
	}
	return detect.Frame{Width: 1280, Height: 720}, true
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backendURL)

	session, err := client.GetSession(ctx)
	if err != nil {
		log.Fatal("Failed to fetch session:", err)
	}
	log.Printf("Signed in as %s (%s)", session.Username, session.Role)

	viewer := notify.Viewer{Username: session.Username, Role: session.Role}
	reconciler := notify.NewReconciler(client, viewer, 60*time.Second)
	go reconciler.Run(ctx)

	// Detection events arrive over SSE; each one means the server created
	// a notification, so the reconciler refetches rather than patching.
	detectionChannel := push.OpenSSE(push.SSEConfig{
		URL:    client.DetectionEventsURL(),
		Client: client.HTTPClient(),
		Retry:  push.RetryPolicy{Delay: 5 * time.Second},
	})
	defer detectionChannel.Close()
	go func() {
		for ev := range detectionChannel.Events() {
			switch ev.Kind {
			case push.KindData:
				log.Printf("[EVENTS] detection event: %s", ev.Data)
				reconciler.Poke()
			case push.KindWarning:
				log.Printf("[EVENTS] server warning: %s", ev.Data)
			case push.KindParseError:
				log.Printf("[EVENTS] dropping malformed event: %v", ev.Err)
			}
		}
	}()

	messaging := chat.NewChannel(
		push.OpenSocket(push.SocketConfig{
			URL: websocketURL(backendURL),
			Query: url.Values{
				"userId": {session.UserID},
				"role":   {session.Role},
			},
			Retry: push.RetryPolicy{Delay: 3 * time.Second},
		}),
		chat.Identity{UserID: session.UserID, Role: session.Role},
		chat.Config{
			OnForwarded: func(fwd models.ForwardedNotification) {
				log.Printf("[EVENTS] notification %s forwarded by %s", fwd.NotificationID, fwd.ForwardedBy)
				reconciler.Poke()
			},
		},
	)
	defer messaging.Close()
	go messaging.Run(ctx)

	dash, err := client.GetDashboard(ctx)
	if err != nil {
		log.Fatal("Failed to fetch dashboard:", err)
	}

	var allowed []string
	if keywords, err := client.ListKeywords(ctx, "object"); err != nil {
		log.Printf("[DETECT] fetching object keywords failed: %v", err)
	} else {
		for _, kw := range keywords {
			allowed = append(allowed, kw.Value)
		}
	}

	factory := player.NewProbeEngineFactory(nil)
	controllers := make([]*player.Controller, 0, len(dash.Streams))
	for _, handle := range dash.Streams {
		if !viewer.IsAdmin() && !strings.EqualFold(handle.AssignedAgent, session.Username) {
			continue
		}
		controller := player.NewController(factory)
		controller.Attach(consoleSink{}, handle)
		controllers = append(controllers, controller)

		loop := detect.NewLoop(detect.Config{
			StreamID: handle.ID,
			Streamer: handle.StreamerUsername,
			Allowed:  allowed,
		}, playerFrameSource{controller: controller})
		go loop.Run(ctx)
		go func(streamer string) {
			for report := range loop.Reports() {
				if err := client.ReportDetection(ctx, report); err != nil {
					log.Printf("[DETECT] reporting detections for %s failed: %v", streamer, err)
				}
			}
		}(handle.StreamerUsername)

		if mediaURL := handle.MediaURL(); mediaURL != "" {
			if err := client.TriggerDetection(ctx, mediaURL); err != nil {
				log.Printf("[EVENTS] trigger detection for %s failed: %v", handle.StreamerUsername, err)
			}
		}
	}
	log.Printf("Watching %d stream(s)", len(controllers))

	status := time.NewTicker(30 * time.Second)
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, controller := range controllers {
				controller.Detach()
			}
			log.Printf("Shutting down")
			return
		case <-status.C:
			online := 0
			for _, entry := range messaging.Roster() {
				if entry.Online {
					online++
				}
			}
			log.Printf("[STATUS] unread=%d online=%d", reconciler.UnreadCount(), online)
			for _, controller := range controllers {
				state := controller.State()
				if state.Phase == player.PhaseErrored || state.Phase == player.PhaseOffline {
					log.Printf("[STATUS] stream %s: %s (%s)", controller.StreamID(), state.Phase, state.ErrorMessage)
				}
			}
		}
	}
}

func websocketURL(backendURL string) string {
	ws := strings.Replace(backendURL, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return ws + "/ws"
}
