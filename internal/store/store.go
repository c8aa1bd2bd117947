// Package store persists form configurations and per-user fill progress
// in PostgreSQL.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tributolabs/formfill/internal/form"
)

// Store wraps the database connection and exposes the query surface the
// server needs.
type Store struct {
	db *sql.DB
}

// Connect opens the database connection and runs migrations.
func Connect(host string, port int, user, password, dbname, sslmode string) (*Store, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS form_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			pdf_object_key TEXT NOT NULL,
			fields JSONB NOT NULL DEFAULT '{}',
			instructions TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS form_progress (
			user_id TEXT NOT NULL,
			form_id TEXT NOT NULL,
			field_values JSONB NOT NULL DEFAULT '{}',
			language TEXT NOT NULL DEFAULT 'en',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, form_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error running migration: %w", err)
		}
	}
	return nil
}

// ListForms returns every stored form configuration ordered by year then name.
func (s *Store) ListForms() ([]form.FormConfig, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, year, pdf_object_key, fields, instructions
		FROM form_configs ORDER BY year DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []form.FormConfig
	for rows.Next() {
		cfg, err := scanFormConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// GetForm returns a single form configuration by id. Returns sql.ErrNoRows
// when the id is unknown.
func (s *Store) GetForm(id string) (*form.FormConfig, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, year, pdf_object_key, fields, instructions
		FROM form_configs WHERE id = $1
	`, id)
	return scanFormConfig(row)
}

// SaveForm inserts or updates a form configuration.
func (s *Store) SaveForm(cfg *form.FormConfig) error {
	fields, err := json.Marshal(cfg.Fields)
	if err != nil {
		return fmt.Errorf("error encoding field overrides: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO form_configs (id, name, description, year, pdf_object_key, fields, instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			year = EXCLUDED.year,
			pdf_object_key = EXCLUDED.pdf_object_key,
			fields = EXCLUDED.fields,
			instructions = EXCLUDED.instructions,
			updated_at = NOW()
	`, cfg.ID, cfg.Name, cfg.Description, cfg.Year, cfg.PDFObjectKey, fields, cfg.Instructions)
	return err
}

// Progress is a saved partial fill for one user and form.
type Progress struct {
	UserID    string        `json:"user_id"`
	FormID    string        `json:"form_id"`
	Values    form.ValueSet `json:"values"`
	Language  string        `json:"language"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SaveProgress upserts the saved values for a user and form.
func (s *Store) SaveProgress(userID, formID string, values form.ValueSet, language string) error {
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("error encoding field values: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO form_progress (user_id, form_id, field_values, language, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, form_id) DO UPDATE SET
			field_values = EXCLUDED.field_values,
			language = EXCLUDED.language,
			updated_at = NOW()
	`, userID, formID, encoded, language)
	return err
}

// LoadProgress returns the saved values for a user and form. Returns
// sql.ErrNoRows when nothing was saved.
func (s *Store) LoadProgress(userID, formID string) (*Progress, error) {
	p := &Progress{UserID: userID, FormID: formID}
	var encoded []byte
	err := s.db.QueryRow(`
		SELECT field_values, language, updated_at
		FROM form_progress WHERE user_id = $1 AND form_id = $2
	`, userID, formID).Scan(&encoded, &p.Language, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(encoded, &p.Values); err != nil {
		return nil, fmt.Errorf("error decoding field values: %w", err)
	}
	return p, nil
}

// DeleteProgress removes the saved values for a user and form.
func (s *Store) DeleteProgress(userID, formID string) error {
	_, err := s.db.Exec(`DELETE FROM form_progress WHERE user_id = $1 AND form_id = $2`, userID, formID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFormConfig(row rowScanner) (*form.FormConfig, error) {
	cfg := &form.FormConfig{}
	var fields []byte
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Description, &cfg.Year, &cfg.PDFObjectKey, &fields, &cfg.Instructions)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &cfg.Fields); err != nil {
		return nil, fmt.Errorf("error decoding field overrides: %w", err)
	}
	return cfg, nil
}
