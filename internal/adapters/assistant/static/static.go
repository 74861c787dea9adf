// Package static es la implementación determinística del asistente:
// respuestas enlatadas para modo dev, tests y fallback cuando el
// backend generativo no está disponible.
package static

import (
	"context"
	"strings"

	"medisync/internal/ports/assistant"
)

type Assistant struct{}

var _ assistant.MedicalAssistant = Assistant{}

func New() Assistant {
	return Assistant{}
}

func (Assistant) Reply(ctx context.Context, in assistant.ChatInput) (string, error) {
	return "I'm sorry, the assistant is temporarily unavailable. " +
		"If this is urgent, please contact your doctor directly.", nil
}

func (Assistant) SmartReplies(ctx context.Context, history []assistant.Turn) ([]string, error) {
	return []string{"Thank you, doctor", "Understood", "Can we schedule a call?"}, nil
}

func (Assistant) CheckInteractions(ctx context.Context, medications []string) (assistant.InteractionReport, error) {
	return assistant.InteractionReport{
		Severity: 0,
		Summary: "No interaction data available for " + strings.Join(medications, ", ") +
			". Please confirm combinations with your doctor or pharmacist.",
		Recommendations: []string{"Consult your doctor or pharmacist before combining medications"},
	}, nil
}

func (Assistant) AnalyzeWound(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	return assistant.WoundAnalysis{
		Severity: 0,
		Analysis: "Automatic image analysis is unavailable.",
		Recommendations: []string{
			"Keep the area clean and covered",
			"See a doctor if there is swelling, pus or fever",
		},
	}, nil
}

func (Assistant) IdentifyPill(ctx context.Context, img assistant.Image) (assistant.PillMatch, error) {
	return assistant.PillMatch{
		Name:        "unknown",
		Description: "Automatic identification is unavailable. Check the package or ask a pharmacist.",
		Confidence:  0,
	}, nil
}

func (Assistant) ExtractPrescription(ctx context.Context, img assistant.Image) (assistant.ExtractedMedication, error) {
	// Sin backend no hay nada razonable que extraer; devolvemos un
	// template vacío para que el cliente cargue los campos a mano.
	return assistant.ExtractedMedication{
		Name:         "",
		Dosage:       "",
		Frequency:    "",
		Instructions: "Automatic extraction unavailable; enter the prescription manually.",
	}, nil
}

func (Assistant) SearchProducts(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]string, error) {
	// Búsqueda local por substring como fallback del modelo.
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0)
	for _, p := range catalog {
		hay := strings.ToLower(p.Name + " " + p.Description + " " + p.Category)
		if q != "" && strings.Contains(hay, q) {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

func (Assistant) BuildCart(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
	ids, _ := Assistant{}.SearchProducts(ctx, query, catalog)
	out := make([]assistant.CartSuggestion, 0, len(ids))
	for _, id := range ids {
		out = append(out, assistant.CartSuggestion{ProductID: id, Quantity: 1, Confidence: 0.1})
	}
	return out, nil
}

func (Assistant) DietPlan(ctx context.Context, profile assistant.PatientProfile) (assistant.DietPlan, error) {
	return assistant.DietPlan{
		Summary: "General balanced plan (assistant unavailable; not personalized).",
		Meals: []assistant.DietMeal{
			{Name: "Breakfast", Time: "08:00", Suggestions: []string{"Oatmeal with fruit", "Plain yogurt"}},
			{Name: "Lunch", Time: "13:00", Suggestions: []string{"Grilled chicken with vegetables", "Whole grains"}},
			{Name: "Dinner", Time: "20:00", Suggestions: []string{"Fish or legumes", "Leafy greens"}},
		},
		Hydration: "Around 2 liters of water across the day",
		Avoid:     []string{"Sugary drinks", "Ultra-processed snacks"},
	}, nil
}
