// Package sqlite implementa la persistencia embebida del chat sobre
// SQLite (driver puro Go). El chat es el único módulo con persistencia
// real fuera de Postgres: un archivo local alcanza para la demo.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // driver "sqlite"
)

type Store struct {
	DB *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// El driver no soporta escrituras concurrentes sobre la misma conexión.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		sender_role TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pair
		ON messages (sender_id, receiver_id, sent_at);
	`
	if _, err := s.DB.Exec(query); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
