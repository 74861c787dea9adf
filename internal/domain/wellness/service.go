// Package wellness agrupa las funciones asistidas por el modelo
// generativo que no pertenecen a un módulo puntual: chat con el
// asistente, smart replies, análisis de heridas y plan de alimentación.
package wellness

import (
	"context"
	"errors"
	"strings"

	"medisync/internal/domain/chat"
	"medisync/internal/domain/medications"
	"medisync/internal/domain/users"
	"medisync/internal/ports/assistant"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	users  *users.Service
	meds   *medications.Service
	chats  *chat.Service
	assist assistant.MedicalAssistant
}

func NewService(usersSvc *users.Service, medsSvc *medications.Service, chatSvc *chat.Service, assist assistant.MedicalAssistant) *Service {
	return &Service{
		users:  usersSvc,
		meds:   medsSvc,
		chats:  chatSvc,
		assist: assist,
	}
}

// Profile arma el contexto clínico que viaja en los prompts: datos del
// paciente más los nombres de sus medicamentos activos.
func (s *Service) Profile(ctx context.Context, userID string) (assistant.PatientProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return assistant.PatientProfile{}, err
	}

	p := assistant.PatientProfile{Name: u.Name}
	if u.Patient != nil {
		p.Age = u.Patient.Age
		p.Conditions = u.Patient.Conditions
		p.Allergies = u.Patient.Allergies
	}

	meds, err := s.meds.ListByPatient(ctx, userID)
	if err != nil {
		return assistant.PatientProfile{}, err
	}
	for _, m := range meds {
		if m.Status == medications.StatusActive {
			p.Medications = append(p.Medications, m.Name)
		}
	}
	return p, nil
}

// Chat responde un turno contra el asistente. El historial lo maneja el
// cliente (la conversación con el asistente es transitoria, no se persiste).
func (s *Service) Chat(ctx context.Context, userID, message string, history []assistant.Turn) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}

	return s.assist.Reply(ctx, assistant.ChatInput{
		Profile: profile,
		History: history,
		Message: message,
	})
}

// SmartReplies sugiere respuestas cortas para la conversación persistida
// con un peer (doctor o paciente).
func (s *Service) SmartReplies(ctx context.Context, userID, peerID string) ([]string, error) {
	msgs, err := s.chats.History(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrInvalidInput
	}

	// Solo los últimos turnos: el modelo no necesita todo el historial.
	const window = 10
	if len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}

	turns := make([]assistant.Turn, 0, len(msgs))
	for _, m := range msgs {
		from := string(m.SenderRole)
		if m.SenderID == userID {
			from = "me"
		}
		turns = append(turns, assistant.Turn{From: from, Text: m.Text})
	}

	return s.assist.SmartReplies(ctx, turns)
}

func (s *Service) WoundScan(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	if strings.TrimSpace(img.Base64Data) == "" {
		return assistant.WoundAnalysis{}, ErrInvalidInput
	}
	return s.assist.AnalyzeWound(ctx, img)
}

func (s *Service) DietPlan(ctx context.Context, userID string) (assistant.DietPlan, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return assistant.DietPlan{}, err
	}
	return s.assist.DietPlan(ctx, profile)
}
