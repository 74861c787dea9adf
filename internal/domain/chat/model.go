package chat

import (
	"time"

	"medisync/internal/ports/auth"
)

// Message es un mensaje persistido entre dos participantes.
// Es la única entidad con persistencia real: el repo puede ser
// in-memory, SQLite embebido o Postgres según configuración.
type Message struct {
	ID string

	SenderID   string
	ReceiverID string
	SenderRole auth.Role

	Text   string
	SentAt time.Time
}
