package database

import (
	"fmt"

	"github.com/kdimtricp/streamguard/internal/models"
)

type AgentRepository struct {
	db *DB
}

func NewAgentRepository(db *DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Insert(a *models.Agent) error {
	query := `INSERT INTO agents (id, username, role, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.conn.Exec(query, a.ID, a.Username, a.Role, a.CreatedAt); err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

func (r *AgentRepository) List() ([]models.Agent, error) {
	rows, err := r.db.conn.Query(`SELECT id, username, role, created_at FROM agents ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (r *AgentRepository) Update(a *models.Agent) error {
	_, err := r.db.conn.Exec(`UPDATE agents SET username = ?, role = ? WHERE id = ?`, a.Username, a.Role, a.ID)
	return err
}

func (r *AgentRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM agents WHERE id = ?`, id)
	return err
}

type KeywordRepository struct {
	db *DB
}

func NewKeywordRepository(db *DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

func (r *KeywordRepository) Insert(k *models.Keyword) error {
	query := `INSERT INTO keywords (id, value, kind) VALUES (?, ?, ?)`
	if _, err := r.db.conn.Exec(query, k.ID, k.Value, k.Kind); err != nil {
		return fmt.Errorf("inserting keyword: %w", err)
	}
	return nil
}

func (r *KeywordRepository) List(kind string) ([]models.Keyword, error) {
	rows, err := r.db.conn.Query(`SELECT id, value, kind FROM keywords WHERE kind = ? ORDER BY value`, kind)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer rows.Close()

	keywords := []models.Keyword{}
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.Value, &k.Kind); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (r *KeywordRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM keywords WHERE id = ?`, id)
	return err
}
