package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"medisync/internal/ports/assistant"
)

// Los prompts piden SIEMPRE JSON con un shape fijo; generationConfig
// además fuerza responseMimeType=application/json donde aplica.

func chatPrompt(in assistant.ChatInput) string {
	var sb strings.Builder
	sb.WriteString("You are a careful medical assistant in a telehealth app. ")
	sb.WriteString("Answer briefly and in plain language. Always recommend seeing a doctor for anything serious. ")
	sb.WriteString("Never prescribe controlled substances.\n\n")

	writeProfile(&sb, in.Profile)

	if len(in.History) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, t := range in.History {
			fmt.Fprintf(&sb, "- %s: %s\n", t.From, t.Text)
		}
	}

	fmt.Fprintf(&sb, "\nPatient message: %s\n", in.Message)
	sb.WriteString("Respond with the assistant's reply as plain text, no JSON.")
	return sb.String()
}

func smartRepliesPrompt(history []assistant.Turn) string {
	var sb strings.Builder
	sb.WriteString("Suggest 3 short reply options (max 8 words each) the user could send next in this medical chat.\n")
	sb.WriteString("Conversation:\n")
	for _, t := range history {
		fmt.Fprintf(&sb, "- %s: %s\n", t.From, t.Text)
	}
	sb.WriteString("\nReturn ONLY a JSON array of strings, e.g. [\"Thanks, doctor\",\"When should I take it?\"]")
	return sb.String()
}

func interactionsPrompt(medications []string) string {
	var sb strings.Builder
	sb.WriteString("Check for drug-drug interactions between the following medications:\n")
	for _, m := range medications {
		fmt.Fprintf(&sb, "- %s\n", m)
	}
	sb.WriteString("\nReturn ONLY JSON with this exact shape:\n")
	sb.WriteString(`{"severity": <0-10 integer>, "summary": "<one paragraph>", "recommendations": ["<action>", ...]}`)
	return sb.String()
}

const woundPrompt = `Analyze the wound or skin condition in this photo.
Return ONLY JSON with this exact shape:
{"severity": <0-10 integer>, "analysis": "<what you see>", "recommendations": ["<care step>", ...]}
If the image is not a wound, use severity 0 and say so in the analysis.`

const pillPrompt = `Identify the pill or medication package in this photo.
Return ONLY JSON with this exact shape:
{"name": "<most likely name>", "description": "<what it is used for>", "confidence": <0.0-1.0>}
If you cannot identify it, use name "unknown" and confidence 0.`

const prescriptionPrompt = `Extract the prescribed medication from this prescription photo.
Return ONLY JSON with this exact shape:
{"name": "...", "dosage": "...", "frequency": "...", "schedule_times": ["HH:MM", ...], "instructions": "..."}
schedule_times must be 24h clock times matching the frequency (e.g. twice daily => ["08:00","20:00"]).`

func productSearchPrompt(query string, catalog []assistant.ProductSummary) string {
	cat, _ := json.Marshal(catalog)
	var sb strings.Builder
	sb.WriteString("A user of a pharmacy storefront searches for: ")
	sb.WriteString(query)
	sb.WriteString("\nCatalog (JSON):\n")
	sb.Write(cat)
	sb.WriteString("\n\nReturn ONLY a JSON array with the ids of matching products, best match first, e.g. [\"id1\",\"id2\"]. Use only ids present in the catalog.")
	return sb.String()
}

func buildCartPrompt(query string, catalog []assistant.ProductSummary) string {
	cat, _ := json.Marshal(catalog)
	var sb strings.Builder
	sb.WriteString("A pharmacy customer describes a need: ")
	sb.WriteString(query)
	sb.WriteString("\nCatalog (JSON):\n")
	sb.Write(cat)
	sb.WriteString("\n\nPick the products they should buy. Return ONLY a JSON array with this shape:\n")
	sb.WriteString(`[{"product_id": "<id from catalog>", "quantity": <integer >= 1>, "confidence": <0.0-1.0>}, ...]`)
	return sb.String()
}

func dietPlanPrompt(profile assistant.PatientProfile) string {
	var sb strings.Builder
	sb.WriteString("Create a one-day diet plan for this patient.\n")
	writeProfile(&sb, profile)
	sb.WriteString("\nReturn ONLY JSON with this exact shape:\n")
	sb.WriteString(`{"summary": "...", "meals": [{"name": "...", "time": "HH:MM", "suggestions": ["...", ...]}, ...], "hydration": "...", "avoid": ["...", ...]}`)
	return sb.String()
}

func writeProfile(sb *strings.Builder, p assistant.PatientProfile) {
	if p.Name == "" && p.Age == 0 && len(p.Conditions) == 0 && len(p.Allergies) == 0 && len(p.Medications) == 0 {
		return
	}
	sb.WriteString("Patient profile:\n")
	if p.Name != "" {
		fmt.Fprintf(sb, "- name: %s\n", p.Name)
	}
	if p.Age > 0 {
		fmt.Fprintf(sb, "- age: %d\n", p.Age)
	}
	if len(p.Conditions) > 0 {
		fmt.Fprintf(sb, "- conditions: %s\n", strings.Join(p.Conditions, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(sb, "- allergies: %s\n", strings.Join(p.Allergies, ", "))
	}
	if len(p.Medications) > 0 {
		fmt.Fprintf(sb, "- current medications: %s\n", strings.Join(p.Medications, ", "))
	}
}
