package database

import (
	"testing"

	"github.com/kdimtricp/streamguard/internal/models"
)

func TestStreamRepository_InsertAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewStreamRepository(db)

	handle := models.NewStreamHandle(models.PlatformChaturbate, "somemodel", "https://chaturbate.com/somemodel/")
	handle.ChaturbateM3U8URL = "https://edge.example.com/somemodel/playlist.m3u8"
	if err := repo.Insert(handle); err != nil {
		t.Fatalf("Failed to insert stream: %v", err)
	}

	streams, err := repo.List()
	if err != nil {
		t.Fatalf("Failed to list streams: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("Expected 1 stream, got %d", len(streams))
	}

	got := streams[0]
	if got.StreamerUsername != "somemodel" {
		t.Errorf("Expected streamer somemodel, got %s", got.StreamerUsername)
	}
	if got.MediaURL() != handle.ChaturbateM3U8URL {
		t.Errorf("Expected media URL %s, got %s", handle.ChaturbateM3U8URL, got.MediaURL())
	}
	if got.AssignedAgent != "" {
		t.Errorf("Expected no assigned agent, got %s", got.AssignedAgent)
	}
}

func TestStreamRepository_Assign(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewStreamRepository(db)
	handle := models.NewStreamHandle(models.PlatformStripchat, "othermodel", "https://stripchat.com/othermodel/")
	if err := repo.Insert(handle); err != nil {
		t.Fatalf("Failed to insert stream: %v", err)
	}

	if err := repo.Assign(handle.ID, "alice"); err != nil {
		t.Fatalf("Failed to assign stream: %v", err)
	}

	streams, _ := repo.List()
	if streams[0].AssignedAgent != "alice" {
		t.Errorf("Expected assigned agent alice, got %s", streams[0].AssignedAgent)
	}
}

func TestStreamRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewStreamRepository(db)
	handle := models.NewStreamHandle(models.PlatformChaturbate, "somemodel", "https://chaturbate.com/somemodel/")
	if err := repo.Insert(handle); err != nil {
		t.Fatalf("Failed to insert stream: %v", err)
	}

	if err := repo.Delete(handle.ID); err != nil {
		t.Fatalf("Failed to delete stream: %v", err)
	}

	streams, _ := repo.List()
	if len(streams) != 0 {
		t.Errorf("Expected empty table, got %d streams", len(streams))
	}
}
