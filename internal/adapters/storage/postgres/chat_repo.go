package postgres

import (
	"context"
	"database/sql"

	"medisync/internal/domain/chat"
	"medisync/internal/ports/auth"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Append(ctx context.Context, m chat.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, sender_role, text, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		m.ID, m.SenderID, m.ReceiverID, string(m.SenderRole), m.Text, m.SentAt,
	)
	return err
}

func (r *ChatRepo) ListBetween(ctx context.Context, a, b string) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, sender_role, text, sent_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at ASC
	`, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &role, &m.Text, &m.SentAt); err != nil {
			return nil, err
		}
		m.SenderRole = auth.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepo) DeleteBetween(ctx context.Context, a, b string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`, a, b)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
