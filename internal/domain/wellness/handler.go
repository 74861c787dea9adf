package wellness

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medisync/internal/middleware"
	"medisync/internal/ports/assistant"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/assistant", func(ar chi.Router) {
		ar.Post("/chat", chatHandler(svc))
		ar.Get("/smart-replies/{peerID}", smartRepliesHandler(svc))
		ar.Post("/wound-scan", woundScanHandler(svc))
		ar.Get("/diet-plan", dietPlanHandler(svc))
	})
}

type chatRequest struct {
	Message string     `json:"message"`
	History []chatTurn `json:"history"`
}

type chatTurn struct {
	From string `json:"from"`
	Text string `json:"text"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type smartRepliesResponse struct {
	Suggestions []string `json:"suggestions"`
}

type imageRequest struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type woundScanResponse struct {
	Severity        int      `json:"severity"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
}

type dietMealResponse struct {
	Name        string   `json:"name"`
	Time        string   `json:"time"`
	Suggestions []string `json:"suggestions"`
}

type dietPlanResponse struct {
	Summary   string             `json:"summary"`
	Meals     []dietMealResponse `json:"meals"`
	Hydration string             `json:"hydration"`
	Avoid     []string           `json:"avoid,omitempty"`
}

// chatHandler godoc
// @Summary Conversación con el asistente de salud
// @Tags assistant
// @Accept json
// @Produce json
// @Success 200 {object} wellness.chatResponse
// @Router /assistant/chat [post]
func chatHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		history := make([]assistant.Turn, 0, len(req.History))
		for _, t := range req.History {
			history = append(history, assistant.Turn{From: t.From, Text: t.Text})
		}

		reply, err := svc.Chat(r.Context(), claims.UserID, req.Message, history)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

func smartRepliesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		peerID := chi.URLParam(r, "peerID")
		suggestions, err := svc.SmartReplies(r.Context(), claims.UserID, peerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, smartRepliesResponse{Suggestions: suggestions})
	}
}

// woundScanHandler godoc
// @Summary Análisis preliminar de una foto de herida
// @Tags assistant
// @Accept json
// @Produce json
// @Success 200 {object} wellness.woundScanResponse
// @Router /assistant/wound-scan [post]
func woundScanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req imageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		out, err := svc.WoundScan(r.Context(), assistant.Image{
			MIMEType:   req.MIMEType,
			Base64Data: req.Data,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, woundScanResponse{
			Severity:        out.Severity,
			Analysis:        out.Analysis,
			Recommendations: out.Recommendations,
		})
	}
}

func dietPlanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		plan, err := svc.DietPlan(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := dietPlanResponse{
			Summary:   plan.Summary,
			Hydration: plan.Hydration,
			Avoid:     plan.Avoid,
			Meals:     make([]dietMealResponse, 0, len(plan.Meals)),
		}
		for _, m := range plan.Meals {
			out.Meals = append(out.Meals, dietMealResponse{
				Name:        m.Name,
				Time:        m.Time,
				Suggestions: m.Suggestions,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
