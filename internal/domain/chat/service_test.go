package chat

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"medisync/internal/ports/auth"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	msgs []Message
}

func newTestRepo() *testRepo {
	return &testRepo{msgs: []Message{}}
}

func (r *testRepo) Append(ctx context.Context, m Message) error {
	if m.ID == "" {
		return errors.New("repo: id required")
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *testRepo) ListBetween(ctx context.Context, a, b string) ([]Message, error) {
	out := make([]Message, 0)
	for _, m := range r.msgs {
		if SameConversation(m, a, b) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func (r *testRepo) DeleteBetween(ctx context.Context, a, b string) (int, error) {
	kept := make([]Message, 0, len(r.msgs))
	deleted := 0
	for _, m := range r.msgs {
		if SameConversation(m, a, b) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.msgs = kept
	return deleted, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_History_FiltersByPair(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	t1 := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t1 }

	if _, err := svc.Send(context.Background(), "p1", auth.RolePatient, SendInput{ReceiverID: "d1", Text: "hi"}); err != nil {
		t.Fatalf("send p1->d1: %v", err)
	}
	svc.now = func() time.Time { return t1.Add(time.Minute) }
	if _, err := svc.Send(context.Background(), "p1", auth.RolePatient, SendInput{ReceiverID: "d2", Text: "x"}); err != nil {
		t.Fatalf("send p1->d2: %v", err)
	}

	got, err := svc.History(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message for (p1,d1), got %d", len(got))
	}
	if got[0].Text != "hi" {
		t.Fatalf("expected 'hi', got %q", got[0].Text)
	}
}

func TestService_History_BothDirections_SortedAsc(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := svc.Send(context.Background(), "d1", auth.RoleDoctor, SendInput{ReceiverID: "p1", Text: "second"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	svc.now = func() time.Time { return base }
	if _, err := svc.Send(context.Background(), "p1", auth.RolePatient, SendInput{ReceiverID: "d1", Text: "first"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := svc.History(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("expected ascending order, got [%q, %q]", got[0].Text, got[1].Text)
	}
}

func TestService_Send_ImmediatelyVisible(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	sent, err := svc.Send(context.Background(), "p1", auth.RolePatient, SendInput{ReceiverID: "d1", Text: "hola"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ID == "" {
		t.Fatal("expected message id")
	}

	got, err := svc.History(context.Background(), "d1", "p1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 || got[0].ID != sent.ID {
		t.Fatalf("expected sent message visible, got %+v", got)
	}
}

func TestService_Delete_OnlyMatchingPair(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	pairs := [][2]string{{"p1", "d1"}, {"d1", "p1"}, {"p1", "d2"}, {"p2", "d1"}}
	for _, pr := range pairs {
		if _, err := svc.Send(context.Background(), pr[0], auth.RolePatient, SendInput{ReceiverID: pr[1], Text: "m"}); err != nil {
			t.Fatalf("send %v: %v", pr, err)
		}
	}

	n, err := svc.Delete(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted (both directions), got %d", n)
	}

	if got, _ := svc.History(context.Background(), "p1", "d1"); len(got) != 0 {
		t.Fatalf("expected empty conversation after delete, got %d", len(got))
	}
	if got, _ := svc.History(context.Background(), "p1", "d2"); len(got) != 1 {
		t.Fatalf("expected (p1,d2) untouched, got %d", len(got))
	}
	if got, _ := svc.History(context.Background(), "p2", "d1"); len(got) != 1 {
		t.Fatalf("expected (p2,d1) untouched, got %d", len(got))
	}
}

func TestService_Send_Validation(t *testing.T) {
	svc := NewService(newTestRepo())

	cases := []struct {
		name     string
		sender   string
		receiver string
		text     string
	}{
		{"empty sender", "", "d1", "hi"},
		{"empty receiver", "p1", "", "hi"},
		{"empty text", "p1", "d1", "   "},
		{"self message", "p1", "p1", "hi"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), tc.sender, auth.RolePatient, SendInput{ReceiverID: tc.receiver, Text: tc.text})
			if err != ErrInvalidInput {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
