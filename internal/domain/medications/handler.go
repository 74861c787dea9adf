package medications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medisync/internal/domain/chat"
	"medisync/internal/middleware"
	"medisync/internal/platform/logger"
	"medisync/internal/ports/assistant"
	"medisync/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, chats *chat.Service, assist assistant.MedicalAssistant, log logger.Logger) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", addMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))

		// AI: chequeo de interacciones y scans
		mr.Post("/interactions", checkInteractionsHandler(svc, assist, log))
		mr.Post("/scan", scanPrescriptionHandler(svc, assist, log))
		mr.Post("/identify", identifyPillHandler(assist, log))

		mr.Get("/{medicationID}", getMedicationHandler(svc))
		mr.Post("/{medicationID}/take", takeDoseHandler(svc))
		mr.Post("/{medicationID}/skip", skipDoseHandler(svc))
		mr.Post("/{medicationID}/refill", refillHandler(svc))
		mr.Patch("/{medicationID}/status", setStatusHandler(svc))
	})

	r.Get("/doses", listDoseLogsHandler(svc))
	r.Get("/schedule", dayScheduleHandler(svc))
	r.Get("/adherence", adherenceHandler(svc))

	// Prescripción: doctor => paciente
	r.Post("/patients/{patientID}/prescriptions", prescribeHandler(svc, chats, log))
	r.Get("/patients/{patientID}/medications", listPatientMedicationsHandler(svc))
	r.Get("/patients/{patientID}/adherence", patientAdherenceHandler(svc))
}

type addMedicationRequest struct {
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Schedule     []string `json:"schedule"` // "HH:MM"
	Stock        int      `json:"stock"`
	RefillAmount int      `json:"refill_amount"`
	Instructions string   `json:"instructions"`
}

type medicationResponse struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	PrescribedBy string    `json:"prescribed_by,omitempty"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Schedule     []string  `json:"schedule"`
	Stock        int       `json:"stock"`
	RefillAmount int       `json:"refill_amount"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	Instructions string    `json:"instructions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type doseLogResponse struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medication_id"`
	PatientID    string     `json:"patient_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	Status       string     `json:"status"`
	RecordedAt   time.Time  `json:"recorded_at"`
}

type doseRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type takeDoseResponse struct {
	Medication medicationResponse `json:"medication"`
	Log        doseLogResponse    `json:"log"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type dueDoseResponse struct {
	Medication  medicationResponse `json:"medication"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Log         *doseLogResponse   `json:"log,omitempty"`
}

type adherenceResponse struct {
	Scheduled int     `json:"scheduled"`
	Taken     int     `json:"taken"`
	Skipped   int     `json:"skipped"`
	Late      int     `json:"late"`
	Ratio     float64 `json:"ratio"`
}

type interactionsRequest struct {
	// Opcional: si viene vacío, se usan los medicamentos del paciente.
	Medications []string `json:"medications"`
}

type scanImageRequest struct {
	MIMEType    string `json:"mime_type"`
	ImageBase64 string `json:"image_base64"`
}

type scanPrescriptionResponse struct {
	Extracted  assistant.ExtractedMedication `json:"extracted"`
	Medication medicationResponse            `json:"medication"`
}

// addMedicationHandler godoc
// @Summary Alta manual de un medicamento del paciente autenticado
// @Tags medications
// @Accept json
// @Produce json
// @Success 201 {object} medications.medicationResponse
// @Router /medications [post]
func addMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req addMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Add(r.Context(), claims.UserID, AddInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Schedule:     req.Schedule,
			Stock:        req.Stock,
			RefillAmount: req.RefillAmount,
			Instructions: req.Instructions,
			Source:       SourceManual,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		// Solo el dueño o un doctor pueden verlo.
		if m.PatientID != claims.UserID && claims.Role != auth.RoleDoctor {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func takeDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req doseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, log, err := svc.TakeDose(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), req.ScheduledAt)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, takeDoseResponse{
			Medication: toMedicationResponse(m),
			Log:        toDoseLogResponse(log),
		})
	}
}

func skipDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req doseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		log, err := svc.SkipDose(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), req.ScheduledAt)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoseLogResponse(log))
	}
}

func refillHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.Refill(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req setStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.SetStatus(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), Status(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func listDoseLogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter, err := logFilterFromQuery(r)
		if err != nil {
			http.Error(w, "from/to must be RFC3339", http.StatusBadRequest)
			return
		}

		logs, err := svc.ListDoseLogs(r.Context(), claims.UserID, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]doseLogResponse, 0, len(logs))
		for _, l := range logs {
			out = append(out, toDoseLogResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func dayScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		day := time.Now()
		if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = parsed
		}

		due, err := svc.DaySchedule(r.Context(), claims.UserID, day)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]dueDoseResponse, 0, len(due))
		for _, d := range due {
			out = append(out, toDueDoseResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func adherenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		writeAdherence(w, r, svc, claims.UserID)
	}
}

func patientAdherenceHandler(svc *Service) http.HandlerFunc {
	// Vista del doctor sobre un paciente.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || claims.Role != auth.RoleDoctor {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeAdherence(w, r, svc, chi.URLParam(r, "patientID"))
	}
}

func writeAdherence(w http.ResponseWriter, r *http.Request, svc *Service, patientID string) {
	filter, err := logFilterFromQuery(r)
	if err != nil {
		http.Error(w, "from/to must be RFC3339", http.StatusBadRequest)
		return
	}

	rep, err := svc.Adherence(r.Context(), patientID, filter.From, filter.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adherenceResponse{
		Scheduled: rep.Scheduled,
		Taken:     rep.Taken,
		Skipped:   rep.Skipped,
		Late:      rep.Late,
		Ratio:     rep.Ratio,
	})
}

func prescribeHandler(svc *Service, chats *chat.Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleDoctor {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req addMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Prescribe(r.Context(), claims.UserID, chi.URLParam(r, "patientID"), AddInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Schedule:     req.Schedule,
			Stock:        req.Stock,
			RefillAmount: req.RefillAmount,
			Instructions: req.Instructions,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		// Aviso en el chat del par doctor-paciente. Si falla no tira
		// la prescripción, solo queda el warning.
		notice := fmt.Sprintf("Te prescribí %s. Ya lo tenés en tu lista de medicamentos.", m.Name)
		if m.Dosage != "" {
			notice = fmt.Sprintf("Te prescribí %s (%s). Ya lo tenés en tu lista de medicamentos.", m.Name, m.Dosage)
		}
		_, err = chats.Send(r.Context(), claims.UserID, auth.RoleDoctor, chat.SendInput{
			ReceiverID: m.PatientID,
			Text:       notice,
		})
		if err != nil {
			log.Warn("prescription notice failed", map[string]any{"err": err.Error(), "patient_id": m.PatientID})
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listPatientMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || claims.Role != auth.RoleDoctor {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func checkInteractionsHandler(svc *Service, assist assistant.MedicalAssistant, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req interactionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		names := req.Medications
		if len(names) == 0 {
			meds, err := svc.ListByPatient(r.Context(), claims.UserID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			for _, m := range meds {
				if m.Status == StatusActive {
					names = append(names, m.Name)
				}
			}
		}

		if len(names) < 2 {
			http.Error(w, "at least two medications required", http.StatusBadRequest)
			return
		}

		rep, err := assist.CheckInteractions(r.Context(), names)
		if err != nil {
			log.Warn("interaction check failed", map[string]any{"err": err.Error()})
			http.Error(w, "assistant unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, rep)
	}
}

// scanPrescriptionHandler extrae los campos del medicamento desde la foto
// de una receta y lo da de alta para el paciente (Source=scan).
func scanPrescriptionHandler(svc *Service, assist assistant.MedicalAssistant, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		img, ok := decodeImage(w, r)
		if !ok {
			return
		}

		extracted, err := assist.ExtractPrescription(r.Context(), img)
		if err != nil {
			log.Warn("prescription scan failed", map[string]any{"err": err.Error()})
			http.Error(w, "assistant unavailable", http.StatusBadGateway)
			return
		}

		m, err := svc.Add(r.Context(), claims.UserID, AddInput{
			Name:         extracted.Name,
			Dosage:       extracted.Dosage,
			Frequency:    extracted.Frequency,
			Schedule:     extracted.ScheduleTimes,
			Instructions: extracted.Instructions,
			Source:       SourceScan,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, scanPrescriptionResponse{
			Extracted:  extracted,
			Medication: toMedicationResponse(m),
		})
	}
}

func identifyPillHandler(assist assistant.MedicalAssistant, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		img, ok := decodeImage(w, r)
		if !ok {
			return
		}

		match, err := assist.IdentifyPill(r.Context(), img)
		if err != nil {
			log.Warn("pill identification failed", map[string]any{"err": err.Error()})
			http.Error(w, "assistant unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, match)
	}
}

func decodeImage(w http.ResponseWriter, r *http.Request) (assistant.Image, bool) {
	var req scanImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return assistant.Image{}, false
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		http.Error(w, "image_base64 required", http.StatusBadRequest)
		return assistant.Image{}, false
	}
	mime := strings.TrimSpace(req.MIMEType)
	if mime == "" {
		mime = "image/jpeg"
	}
	return assistant.Image{MIMEType: mime, Base64Data: req.ImageBase64}, true
}

func logFilterFromQuery(r *http.Request) (LogFilter, error) {
	var filter LogFilter
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return LogFilter{}, err
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return LogFilter{}, err
		}
		filter.To = &t
	}
	filter.MedicationID = strings.TrimSpace(q.Get("medication_id"))
	return filter, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrNotFound:
		http.Error(w, "medication not found", http.StatusNotFound)
	case ErrForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	case ErrBadState:
		http.Error(w, "dose already taken", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:           m.ID,
		PatientID:    m.PatientID,
		PrescribedBy: m.PrescribedBy,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Frequency:    m.Frequency,
		Schedule:     m.Schedule,
		Stock:        m.Stock,
		RefillAmount: m.RefillAmount,
		Status:       string(m.Status),
		Source:       string(m.Source),
		Instructions: m.Instructions,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDoseLogResponse(l DoseLog) doseLogResponse {
	return doseLogResponse{
		ID:           l.ID,
		MedicationID: l.MedicationID,
		PatientID:    l.PatientID,
		ScheduledAt:  l.ScheduledAt,
		TakenAt:      l.TakenAt,
		Status:       string(l.Status),
		RecordedAt:   l.RecordedAt,
	}
}

func toDueDoseResponse(d DueDose) dueDoseResponse {
	out := dueDoseResponse{
		Medication:  toMedicationResponse(d.Medication),
		ScheduledAt: d.ScheduledAt,
	}
	if d.Log != nil {
		l := toDoseLogResponse(*d.Log)
		out.Log = &l
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
