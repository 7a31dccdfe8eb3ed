package integration

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/streamguard/internal/backend"
	"github.com/kdimtricp/streamguard/internal/database"
	"github.com/kdimtricp/streamguard/internal/push"
	"github.com/kdimtricp/streamguard/internal/server"
)

type TestServer struct {
	Server *httptest.Server
	App    *server.App
	DB     *database.DB
	Client *backend.Client
}

func setupTestServer(t *testing.T) *TestServer {
	t.Helper()

	db, err := database.NewDB(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	app := server.NewApp(db)
	app.InteractiveStepDelay = time.Millisecond

	srv := httptest.NewServer(server.NewRouter(app))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})

	return &TestServer{
		Server: srv,
		App:    app,
		DB:     db,
		Client: backend.NewClient(srv.URL),
	}
}

// openChatSocket dials the test server's WebSocket endpoint as one console
// viewer.
func (ts *TestServer) openChatSocket(t *testing.T, userID, role string) *push.Socket {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws"
	socket := push.OpenSocket(push.SocketConfig{
		URL:   wsURL,
		Query: url.Values{"userId": {userID}, "role": {role}},
		Retry: push.RetryPolicy{Delay: 100 * time.Millisecond},
	})
	t.Cleanup(socket.Close)
	return socket
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
