package database

import (
	"database/sql"
	"fmt"

	"github.com/kdimtricp/streamguard/internal/models"
)

type StreamRepository struct {
	db *DB
}

func NewStreamRepository(db *DB) *StreamRepository {
	return &StreamRepository{db: db}
}

func (r *StreamRepository) Insert(h *models.StreamHandle) error {
	query := `INSERT INTO streams (id, platform, streamer_username, room_url, chaturbate_m3u8_url, stripchat_m3u8_url, assigned_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.conn.Exec(query, h.ID, string(h.Platform), h.StreamerUsername,
		h.RoomURL, h.ChaturbateM3U8URL, h.StripchatM3U8URL, h.AssignedAgent)
	if err != nil {
		return fmt.Errorf("inserting stream: %w", err)
	}
	return nil
}

func (r *StreamRepository) List() ([]models.StreamHandle, error) {
	query := `SELECT id, platform, streamer_username, room_url, chaturbate_m3u8_url, stripchat_m3u8_url, assigned_agent FROM streams`
	rows, err := r.db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing streams: %w", err)
	}
	defer rows.Close()

	streams := []models.StreamHandle{}
	for rows.Next() {
		var h models.StreamHandle
		var cb, sc, agent sql.NullString
		if err := rows.Scan(&h.ID, &h.Platform, &h.StreamerUsername, &h.RoomURL, &cb, &sc, &agent); err != nil {
			return nil, fmt.Errorf("scanning stream: %w", err)
		}
		h.ChaturbateM3U8URL = cb.String
		h.StripchatM3U8URL = sc.String
		h.AssignedAgent = agent.String
		streams = append(streams, h)
	}
	return streams, rows.Err()
}

func (r *StreamRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM streams WHERE id = ?`, id)
	return err
}

func (r *StreamRepository) Assign(id, agent string) error {
	_, err := r.db.conn.Exec(`UPDATE streams SET assigned_agent = ? WHERE id = ?`, agent, id)
	return err
}
