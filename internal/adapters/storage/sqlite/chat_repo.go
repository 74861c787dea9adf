package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medisync/internal/domain/chat"
	"medisync/internal/ports/auth"
)

// sentAtLayout es RFC3339 con fracción de ancho fijo (9 dígitos, siempre
// UTC). RFC3339Nano recorta los ceros finales y el orden lexicográfico de
// la columna deja de coincidir con el orden temporal; con ancho fijo el
// ORDER BY de texto ordena por fecha.
const sentAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type chatRepo struct {
	db *sql.DB
}

func NewChatRepo(s *Store) chat.Repository {
	return &chatRepo{db: s.DB}
}

func (r *chatRepo) Append(ctx context.Context, m chat.Message) error {
	const q = `
		INSERT INTO messages (id, sender_id, receiver_id, sender_role, text, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.SenderID, m.ReceiverID, string(m.SenderRole), m.Text, m.SentAt.UTC().Format(sentAtLayout))
	if err != nil {
		return fmt.Errorf("chat append: %w", err)
	}
	return nil
}

func (r *chatRepo) ListBetween(ctx context.Context, a, b string) ([]chat.Message, error) {
	const q = `
		SELECT id, sender_id, receiver_id, sender_role, text, sent_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY sent_at ASC`

	rows, err := r.db.QueryContext(ctx, q, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("chat list: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		var role, sentAt string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &role, &m.Text, &sentAt); err != nil {
			return nil, fmt.Errorf("chat scan: %w", err)
		}
		m.SenderRole = auth.Role(role)
		t, err := time.Parse(sentAtLayout, sentAt)
		if err != nil {
			return nil, fmt.Errorf("chat sent_at: %w", err)
		}
		m.SentAt = t
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *chatRepo) DeleteBetween(ctx context.Context, a, b string) (int, error) {
	const q = `
		DELETE FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`

	res, err := r.db.ExecContext(ctx, q, a, b, b, a)
	if err != nil {
		return 0, fmt.Errorf("chat delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("chat delete count: %w", err)
	}
	return int(n), nil
}
