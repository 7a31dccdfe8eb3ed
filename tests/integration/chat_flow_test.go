package integration

import (
	"context"
	"testing"
	"time"

	"github.com/kdimtricp/streamguard/internal/chat"
	"github.com/kdimtricp/streamguard/internal/models"
	"github.com/kdimtricp/streamguard/internal/notify"
)

func startConsoleChat(t *testing.T, ts *TestServer, userID, role string, cfg chat.Config) *chat.Channel {
	t.Helper()
	socket := ts.openChatSocket(t, userID, role)
	ch := chat.NewChannel(socket, chat.Identity{UserID: userID, Role: role}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		ch.Close()
	})
	return ch
}

func TestChatMessageDelivery(t *testing.T) {
	ts := setupTestServer(t)

	alice := startConsoleChat(t, ts, "alice", "admin", chat.Config{})
	bob := startConsoleChat(t, ts, "bob", "agent", chat.Config{})

	waitFor(t, func() bool { return len(alice.Roster()) == 2 && len(bob.Roster()) == 2 }, "roster never settled at two users")

	alice.Send("bob", "please review stream 3")

	// Receiver gets the message and counts it unread.
	waitFor(t, func() bool { return bob.Unread("alice") == 1 }, "bob never received the message")

	// Sender's copy arrives only via the server echo.
	waitFor(t, func() bool { return len(alice.Conversation("bob")) == 1 }, "alice never received her echo")
	if alice.Unread("bob") != 0 {
		t.Error("sender's own echo counted as unread")
	}

	conv := bob.Conversation("alice")
	if len(conv) != 1 || conv[0].Content != "please review stream 3" {
		t.Fatalf("bob's conversation = %+v", conv)
	}

	bob.SelectPeer("alice")
	if bob.Unread("alice") != 0 {
		t.Error("selecting the peer did not clear unread")
	}
}

func TestTypingIndicatorCrossesConsoles(t *testing.T) {
	ts := setupTestServer(t)

	alice := startConsoleChat(t, ts, "alice", "admin", chat.Config{TypingQuiet: 100 * time.Millisecond})
	bob := startConsoleChat(t, ts, "bob", "agent", chat.Config{})

	waitFor(t, func() bool { return len(alice.Roster()) == 2 }, "roster never settled")

	alice.NotifyTyping("bob")
	waitFor(t, func() bool { return bob.PeerTyping("alice") }, "bob never saw typing:true")

	// After the quiet period the trailing typing:false clears the state.
	waitFor(t, func() bool { return !bob.PeerTyping("alice") }, "typing state never cleared")
}

func TestForwardedNotificationReachesAgentConsole(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	forwarded := make(chan models.ForwardedNotification, 1)
	reconcilerPoked := make(chan struct{}, 1)

	reconciler := notify.NewReconciler(ts.Client, notify.Viewer{Username: "bob", Role: "agent"}, time.Hour)
	bob := startConsoleChat(t, ts, "bob", "agent", chat.Config{
		OnForwarded: func(fwd models.ForwardedNotification) {
			forwarded <- fwd
			reconciler.Poke()
			select {
			case reconcilerPoked <- struct{}{}:
			default:
			}
		},
	})
	waitFor(t, func() bool { return len(bob.Roster()) == 1 }, "bob never connected")

	rec := models.NewNotificationRecord(models.EventObjectDetection, nil)
	if err := ts.App.Notifications.Insert(rec); err != nil {
		t.Fatal(err)
	}
	if err := ts.Client.ForwardNotification(ctx, rec.ID, "bob"); err != nil {
		t.Fatalf("Failed to forward notification: %v", err)
	}

	select {
	case fwd := <-forwarded:
		if fwd.NotificationID != rec.ID {
			t.Errorf("forwarded id = %s, want %s", fwd.NotificationID, rec.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bob's console never saw the forwarded notification")
	}

	// The synthesized system message lands in the conversation with the
	// forwarding admin.
	waitFor(t, func() bool {
		conv := bob.Conversation("admin")
		return len(conv) == 1 && conv[0].Type == models.MessageNotification
	}, "no synthesized notification message")

	// And the reconciler, once poked, sees the record assigned to bob.
	<-reconcilerPoked
	if err := reconciler.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	visible := reconciler.Visible()
	if len(visible) != 1 || visible[0].ID != rec.ID {
		t.Fatalf("reconciler visible = %+v, want the forwarded record", visible)
	}
}
