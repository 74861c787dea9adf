package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medisync/internal/ports/assistant"
)

// Client implementa assistant.MedicalAssistant contra la API generateContent.
var _ assistant.MedicalAssistant = (*Client)(nil)

func (c *Client) Reply(ctx context.Context, in assistant.ChatInput) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", fmt.Errorf("%w: empty message", ErrBadResponse)
	}
	return c.generate(ctx, chatPrompt(in), nil, false)
}

func (c *Client) SmartReplies(ctx context.Context, history []assistant.Turn) ([]string, error) {
	raw, err := c.generate(ctx, smartRepliesPrompt(history), nil, true)
	if err != nil {
		return nil, err
	}

	var out []string
	if err := decodeModelJSON(raw, &out); err != nil {
		return nil, err
	}

	// Cortamos a 3 y descartamos vacíos.
	clean := make([]string, 0, 3)
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
		if len(clean) == 3 {
			break
		}
	}
	return clean, nil
}

func (c *Client) CheckInteractions(ctx context.Context, medications []string) (assistant.InteractionReport, error) {
	raw, err := c.generate(ctx, interactionsPrompt(medications), nil, true)
	if err != nil {
		return assistant.InteractionReport{}, err
	}

	var rep assistant.InteractionReport
	if err := decodeModelJSON(raw, &rep); err != nil {
		return assistant.InteractionReport{}, err
	}
	rep.Severity = clampSeverity(rep.Severity)
	return rep, nil
}

func (c *Client) AnalyzeWound(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	raw, err := c.generate(ctx, woundPrompt, toInline(img), true)
	if err != nil {
		return assistant.WoundAnalysis{}, err
	}

	var out assistant.WoundAnalysis
	if err := decodeModelJSON(raw, &out); err != nil {
		return assistant.WoundAnalysis{}, err
	}
	out.Severity = clampSeverity(out.Severity)
	return out, nil
}

func (c *Client) IdentifyPill(ctx context.Context, img assistant.Image) (assistant.PillMatch, error) {
	raw, err := c.generate(ctx, pillPrompt, toInline(img), true)
	if err != nil {
		return assistant.PillMatch{}, err
	}

	var out assistant.PillMatch
	if err := decodeModelJSON(raw, &out); err != nil {
		return assistant.PillMatch{}, err
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return out, nil
}

func (c *Client) ExtractPrescription(ctx context.Context, img assistant.Image) (assistant.ExtractedMedication, error) {
	raw, err := c.generate(ctx, prescriptionPrompt, toInline(img), true)
	if err != nil {
		return assistant.ExtractedMedication{}, err
	}

	var out assistant.ExtractedMedication
	if err := decodeModelJSON(raw, &out); err != nil {
		return assistant.ExtractedMedication{}, err
	}
	if strings.TrimSpace(out.Name) == "" {
		return assistant.ExtractedMedication{}, fmt.Errorf("%w: missing medication name", ErrBadResponse)
	}
	return out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]string, error) {
	raw, err := c.generate(ctx, productSearchPrompt(query, catalog), nil, true)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := decodeModelJSON(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) BuildCart(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
	raw, err := c.generate(ctx, buildCartPrompt(query, catalog), nil, true)
	if err != nil {
		return nil, err
	}

	var out []assistant.CartSuggestion
	if err := decodeModelJSON(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DietPlan(ctx context.Context, profile assistant.PatientProfile) (assistant.DietPlan, error) {
	raw, err := c.generate(ctx, dietPlanPrompt(profile), nil, true)
	if err != nil {
		return assistant.DietPlan{}, err
	}

	var out assistant.DietPlan
	if err := decodeModelJSON(raw, &out); err != nil {
		return assistant.DietPlan{}, err
	}
	return out, nil
}

func toInline(img assistant.Image) *inlineData {
	mime := strings.TrimSpace(img.MIMEType)
	if mime == "" {
		mime = "image/jpeg"
	}
	return &inlineData{MIMEType: mime, Data: img.Base64Data}
}

func clampSeverity(s int) int {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// decodeModelJSON tolera que el modelo envuelva el JSON en fences de
// markdown o le agregue texto alrededor.
func decodeModelJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if i := strings.LastIndex(raw, "```"); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.TrimSpace(raw)
	}

	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}

	// Último intento: recortar al primer {...} o [...] balanceado por índices.
	start := strings.IndexAny(raw, "{[")
	end := strings.LastIndexAny(raw, "}]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: invalid json", ErrBadResponse)
}
