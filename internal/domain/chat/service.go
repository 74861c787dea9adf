package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medisync/internal/ports/auth"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type SendInput struct {
	ReceiverID string
	Text       string
}

// Send persiste un mensaje y lo devuelve. El mensaje queda visible
// para el próximo History() del mismo par.
func (s *Service) Send(ctx context.Context, senderID string, senderRole auth.Role, in SendInput) (Message, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID := strings.TrimSpace(in.ReceiverID)
	text := strings.TrimSpace(in.Text)

	if senderID == "" || receiverID == "" || text == "" {
		return Message{}, ErrInvalidInput
	}
	if senderID == receiverID {
		return Message{}, ErrInvalidInput
	}

	m := Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		SenderRole: senderRole,
		Text:       text,
		SentAt:     s.now(),
	}

	if err := s.repo.Append(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// History devuelve la conversación completa entre a y b, ascendente por fecha.
// Solo matchean mensajes cuyo par {sender,receiver} es exactamente {a,b}.
func (s *Service) History(ctx context.Context, a, b string) ([]Message, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListBetween(ctx, a, b)
}

// Delete borra la conversación del par. Mensajes de otros pares no se tocan.
func (s *Service) Delete(ctx context.Context, a, b string) (int, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.DeleteBetween(ctx, a, b)
}

// SameConversation dice si el mensaje pertenece al par (a,b), en
// cualquier dirección. Lo usan los repos para filtrar.
func SameConversation(m Message, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}
