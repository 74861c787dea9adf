package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medisync/internal/domain/chat"
)

type chatRepo struct {
	mu   sync.RWMutex
	msgs []chat.Message
}

func NewChatRepo() chat.Repository {
	return &chatRepo{
		msgs: make([]chat.Message, 0),
	}
}

func (r *chatRepo) Append(ctx context.Context, m chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("message id required")
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *chatRepo) ListBetween(ctx context.Context, a, b string) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.Message, 0)
	for _, m := range r.msgs {
		if chat.SameConversation(m, a, b) {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})

	return out, nil
}

func (r *chatRepo) DeleteBetween(ctx context.Context, a, b string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]chat.Message, 0, len(r.msgs))
	deleted := 0
	for _, m := range r.msgs {
		if chat.SameConversation(m, a, b) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.msgs = kept
	return deleted, nil
}
