// Package database is the sqlite store behind the dev backend server.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

type Config struct {
	Path string
}

func NewDB(config Config) (*DB, error) {
	if config.Path == "" {
		config.Path = ":memory:"
	}
	conn, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS streams (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		streamer_username TEXT NOT NULL,
		room_url TEXT NOT NULL,
		chaturbate_m3u8_url TEXT,
		stripchat_m3u8_url TEXT,
		assigned_agent TEXT
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		assigned_agent TEXT,
		details TEXT
	);

	CREATE TABLE IF NOT EXISTS keywords (
		id TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		kind TEXT NOT NULL,
		UNIQUE(value, kind)
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
