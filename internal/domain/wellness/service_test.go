package wellness

import (
	"context"
	"errors"
	"testing"

	"medisync/internal/adapters/storage/memory"
	"medisync/internal/domain/chat"
	"medisync/internal/domain/medications"
	"medisync/internal/domain/users"
	"medisync/internal/ports/assistant"
	"medisync/internal/ports/auth"
)

// -------------------------
// Stub assistant
// -------------------------

var errStubNotWired = errors.New("stub: not wired")

type stubAssistant struct {
	replyFn        func(in assistant.ChatInput) (string, error)
	smartRepliesFn func(history []assistant.Turn) ([]string, error)
	dietPlanFn     func(p assistant.PatientProfile) (assistant.DietPlan, error)
	woundFn        func(img assistant.Image) (assistant.WoundAnalysis, error)
}

func (s *stubAssistant) Reply(ctx context.Context, in assistant.ChatInput) (string, error) {
	if s.replyFn == nil {
		return "", errStubNotWired
	}
	return s.replyFn(in)
}

func (s *stubAssistant) SmartReplies(ctx context.Context, history []assistant.Turn) ([]string, error) {
	if s.smartRepliesFn == nil {
		return nil, errStubNotWired
	}
	return s.smartRepliesFn(history)
}

func (s *stubAssistant) CheckInteractions(ctx context.Context, meds []string) (assistant.InteractionReport, error) {
	return assistant.InteractionReport{}, errStubNotWired
}

func (s *stubAssistant) AnalyzeWound(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	if s.woundFn == nil {
		return assistant.WoundAnalysis{}, errStubNotWired
	}
	return s.woundFn(img)
}

func (s *stubAssistant) IdentifyPill(ctx context.Context, img assistant.Image) (assistant.PillMatch, error) {
	return assistant.PillMatch{}, errStubNotWired
}

func (s *stubAssistant) ExtractPrescription(ctx context.Context, img assistant.Image) (assistant.ExtractedMedication, error) {
	return assistant.ExtractedMedication{}, errStubNotWired
}

func (s *stubAssistant) SearchProducts(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]string, error) {
	return nil, errStubNotWired
}

func (s *stubAssistant) BuildCart(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
	return nil, errStubNotWired
}

func (s *stubAssistant) DietPlan(ctx context.Context, p assistant.PatientProfile) (assistant.DietPlan, error) {
	if s.dietPlanFn == nil {
		return assistant.DietPlan{}, errStubNotWired
	}
	return s.dietPlanFn(p)
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	svc   *Service
	users *users.Service
	meds  *medications.Service
	chats *chat.Service
	stub  *stubAssistant
}

func newFixture() *fixture {
	usersSvc := users.NewService(memory.NewUserRepo())
	medsSvc := medications.NewService(memory.NewMedicationRepo(), memory.NewDoseLogRepo())
	chatSvc := chat.NewService(memory.NewChatRepo())
	stub := &stubAssistant{}

	return &fixture{
		svc:   NewService(usersSvc, medsSvc, chatSvc, stub),
		users: usersSvc,
		meds:  medsSvc,
		chats: chatSvc,
		stub:  stub,
	}
}

func (f *fixture) registerPatient(t *testing.T) users.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), users.RegisterInput{
		Name:     "Lucía Torres",
		Email:    "lucia@example.com",
		Password: "secret1",
		Role:     auth.RolePatient,
		Patient: &users.PatientDetails{
			Age:        58,
			Conditions: []string{"hypertension"},
			Allergies:  []string{"penicillin"},
		},
	})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return u
}

// -------------------------
// Tests
// -------------------------

func TestService_Profile_IncludesActiveMedicationsOnly(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	active, err := f.meds.Add(context.Background(), u.ID, medications.AddInput{
		Name: "Losartan", Dosage: "50mg", Frequency: "daily", Schedule: []string{"08:00"}, Stock: 10,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	paused, err := f.meds.Add(context.Background(), u.ID, medications.AddInput{
		Name: "Ibuprofen", Dosage: "400mg", Frequency: "daily", Schedule: []string{"20:00"}, Stock: 10,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.meds.SetStatus(context.Background(), u.ID, paused.ID, medications.StatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}

	p, err := f.svc.Profile(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Name != "Lucía Torres" || p.Age != 58 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Medications) != 1 || p.Medications[0] != active.Name {
		t.Fatalf("expected only active medication, got %v", p.Medications)
	}
}

func TestService_Chat_PassesProfileAndMessage(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	var got assistant.ChatInput
	f.stub.replyFn = func(in assistant.ChatInput) (string, error) {
		got = in
		return "drink water", nil
	}

	reply, err := f.svc.Chat(context.Background(), u.ID, "tengo sed", []assistant.Turn{{From: "me", Text: "hola"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "drink water" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Message != "tengo sed" {
		t.Fatalf("expected message forwarded, got %q", got.Message)
	}
	if got.Profile.Name != u.Name {
		t.Fatalf("expected profile in input, got %+v", got.Profile)
	}
	if len(got.History) != 1 || got.History[0].Text != "hola" {
		t.Fatalf("expected history forwarded, got %+v", got.History)
	}
}

func TestService_Chat_EmptyMessage(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	if _, err := f.svc.Chat(context.Background(), u.ID, "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_SmartReplies_UsesConversation(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	if _, err := f.chats.Send(context.Background(), "doc-1", auth.RoleDoctor, chat.SendInput{ReceiverID: u.ID, Text: "¿cómo sigue la presión?"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.chats.Send(context.Background(), u.ID, auth.RolePatient, chat.SendInput{ReceiverID: "doc-1", Text: "estable"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var seen []assistant.Turn
	f.stub.smartRepliesFn = func(history []assistant.Turn) ([]string, error) {
		seen = history
		return []string{"Gracias, doctor"}, nil
	}

	out, err := f.svc.SmartReplies(context.Background(), u.ID, "doc-1")
	if err != nil {
		t.Fatalf("smart replies: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 suggestion, got %v", out)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(seen))
	}
	if seen[0].From != "doctor" {
		t.Fatalf("expected peer turn tagged with role, got %q", seen[0].From)
	}
	if seen[1].From != "me" {
		t.Fatalf("expected own turn tagged 'me', got %q", seen[1].From)
	}
}

func TestService_SmartReplies_EmptyConversation(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	if _, err := f.svc.SmartReplies(context.Background(), u.ID, "doc-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_WoundScan_RequiresImage(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.WoundScan(context.Background(), assistant.Image{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	f.stub.woundFn = func(img assistant.Image) (assistant.WoundAnalysis, error) {
		return assistant.WoundAnalysis{Severity: 3, Analysis: "mild irritation"}, nil
	}
	out, err := f.svc.WoundScan(context.Background(), assistant.Image{MIMEType: "image/jpeg", Base64Data: "Zm9v"})
	if err != nil {
		t.Fatalf("wound scan: %v", err)
	}
	if out.Severity != 3 {
		t.Fatalf("unexpected analysis: %+v", out)
	}
}

func TestService_DietPlan_BuildsFromProfile(t *testing.T) {
	f := newFixture()
	u := f.registerPatient(t)

	f.stub.dietPlanFn = func(p assistant.PatientProfile) (assistant.DietPlan, error) {
		if len(p.Conditions) != 1 || p.Conditions[0] != "hypertension" {
			t.Fatalf("expected conditions in profile, got %+v", p)
		}
		return assistant.DietPlan{Summary: "low sodium"}, nil
	}

	plan, err := f.svc.DietPlan(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("diet plan: %v", err)
	}
	if plan.Summary != "low sodium" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}
