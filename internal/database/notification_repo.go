package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kdimtricp/streamguard/internal/models"
)

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(rec *models.NotificationRecord) error {
	query := `INSERT INTO notifications (id, event_type, timestamp, read, assigned_agent, details)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.conn.Exec(query, rec.ID, string(rec.EventType), rec.Timestamp,
		boolToInt(rec.Read), rec.AssignedAgent, string(rec.Details))
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) List() ([]models.NotificationRecord, error) {
	query := `SELECT id, event_type, timestamp, read, assigned_agent, details
		FROM notifications ORDER BY timestamp DESC`
	rows, err := r.db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	records := []models.NotificationRecord{}
	for rows.Next() {
		var rec models.NotificationRecord
		var read int
		var assigned, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Timestamp, &read, &assigned, &details); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		rec.Read = read != 0
		rec.AssignedAgent = assigned.String
		if details.String != "" {
			rec.Details = json.RawMessage(details.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *NotificationRepository) MarkRead(id string) error {
	_, err := r.db.conn.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

func (r *NotificationRepository) MarkAllRead() error {
	_, err := r.db.conn.Exec(`UPDATE notifications SET read = 1`)
	return err
}

func (r *NotificationRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM notifications WHERE id = ?`, id)
	return err
}

func (r *NotificationRepository) DeleteAll() error {
	_, err := r.db.conn.Exec(`DELETE FROM notifications`)
	return err
}

// Forward reassigns a notification to an agent without touching its read
// flag.
func (r *NotificationRepository) Forward(id, agent string) error {
	res, err := r.db.conn.Exec(`UPDATE notifications SET assigned_agent = ? WHERE id = ?`, agent, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("notification %s not found", id)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
