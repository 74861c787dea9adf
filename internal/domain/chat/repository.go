package chat

import "context"

type Repository interface {
	Append(ctx context.Context, m Message) error

	// ListBetween devuelve todos los mensajes del par (a,b) en cualquier
	// dirección, ordenados ascendente por SentAt.
	ListBetween(ctx context.Context, a, b string) ([]Message, error)

	// DeleteBetween borra todos los mensajes del par y devuelve cuántos borró.
	DeleteBetween(ctx context.Context, a, b string) (int, error)
}
