// Package fallback decora un MedicalAssistant con otro de respaldo:
// si el primario falla, loguea y responde con el secundario. Así los
// endpoints degradan a respuestas enlatadas en vez de cortar el flujo.
package fallback

import (
	"context"

	"medisync/internal/platform/logger"
	"medisync/internal/ports/assistant"
)

type Assistant struct {
	primary  assistant.MedicalAssistant
	fallback assistant.MedicalAssistant
	log      logger.Logger
}

var _ assistant.MedicalAssistant = (*Assistant)(nil)

func New(primary, fb assistant.MedicalAssistant, log logger.Logger) *Assistant {
	if log == nil {
		log = logger.Nop{}
	}
	return &Assistant{primary: primary, fallback: fb, log: log}
}

func (a *Assistant) warn(op string, err error) {
	a.log.Warn("assistant primary failed, using fallback", map[string]any{
		"op":  op,
		"err": err.Error(),
	})
}

func (a *Assistant) Reply(ctx context.Context, in assistant.ChatInput) (string, error) {
	out, err := a.primary.Reply(ctx, in)
	if err == nil {
		return out, nil
	}
	a.warn("reply", err)
	return a.fallback.Reply(ctx, in)
}

func (a *Assistant) SmartReplies(ctx context.Context, history []assistant.Turn) ([]string, error) {
	out, err := a.primary.SmartReplies(ctx, history)
	if err == nil {
		return out, nil
	}
	a.warn("smart_replies", err)
	return a.fallback.SmartReplies(ctx, history)
}

func (a *Assistant) CheckInteractions(ctx context.Context, medications []string) (assistant.InteractionReport, error) {
	out, err := a.primary.CheckInteractions(ctx, medications)
	if err == nil {
		return out, nil
	}
	a.warn("check_interactions", err)
	return a.fallback.CheckInteractions(ctx, medications)
}

func (a *Assistant) AnalyzeWound(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	out, err := a.primary.AnalyzeWound(ctx, img)
	if err == nil {
		return out, nil
	}
	a.warn("analyze_wound", err)
	return a.fallback.AnalyzeWound(ctx, img)
}

func (a *Assistant) IdentifyPill(ctx context.Context, img assistant.Image) (assistant.PillMatch, error) {
	out, err := a.primary.IdentifyPill(ctx, img)
	if err == nil {
		return out, nil
	}
	a.warn("identify_pill", err)
	return a.fallback.IdentifyPill(ctx, img)
}

func (a *Assistant) ExtractPrescription(ctx context.Context, img assistant.Image) (assistant.ExtractedMedication, error) {
	// El scan de recetas NO degrada: un template vacío como "extracción"
	// confunde más que un error claro.
	return a.primary.ExtractPrescription(ctx, img)
}

func (a *Assistant) SearchProducts(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]string, error) {
	out, err := a.primary.SearchProducts(ctx, query, catalog)
	if err == nil {
		return out, nil
	}
	a.warn("search_products", err)
	return a.fallback.SearchProducts(ctx, query, catalog)
}

func (a *Assistant) BuildCart(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
	out, err := a.primary.BuildCart(ctx, query, catalog)
	if err == nil {
		return out, nil
	}
	a.warn("build_cart", err)
	return a.fallback.BuildCart(ctx, query, catalog)
}

func (a *Assistant) DietPlan(ctx context.Context, profile assistant.PatientProfile) (assistant.DietPlan, error) {
	out, err := a.primary.DietPlan(ctx, profile)
	if err == nil {
		return out, nil
	}
	a.warn("diet_plan", err)
	return a.fallback.DietPlan(ctx, profile)
}
