package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medisync/internal/adapters/assistant/static"
	"medisync/internal/platform/logger"
	"medisync/internal/router"
)

func newTestServer(t *testing.T, seed bool) *httptest.Server {
	t.Helper()

	app, err := router.New(router.Options{
		AuthVerifier: nil, // modo dev: X-Debug-*
		Assistant:    static.New(),
		SeedDemo:     seed,
		Log:          logger.Nop{},
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	ts := httptest.NewServer(app.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_SignupAndProfile(t *testing.T) {
	ts := newTestServer(t, false)

	st, body := doReq(t, ts.URL, "POST", "/auth/signup", "", "", map[string]any{
		"name":       "Ana",
		"email":      "ana@example.com",
		"password":   "secret1",
		"age":        60,
		"conditions": []string{"hypertension"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 signup, got %d body=%s", st, string(body))
	}
	userID := extractID(t, body)

	// Email duplicado => 409
	st, _ = doReq(t, ts.URL, "POST", "/auth/signup", "", "", map[string]any{
		"name": "Ana 2", "email": "ana@example.com", "password": "secret1",
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 duplicate email, got %d", st)
	}

	st, body = doReq(t, ts.URL, "POST", "/auth/login", "", "", map[string]any{
		"email": "ana@example.com", "password": "secret1",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "POST", "/auth/login", "", "", map[string]any{
		"email": "ana@example.com", "password": "wrong",
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad password, got %d", st)
	}

	// PATCH /me actualiza solo lo enviado
	st, body = doReq(t, ts.URL, "PATCH", "/me", userID, "", map[string]any{
		"age": 61,
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 patch, got %d body=%s", st, string(body))
	}
	var me struct {
		Age        int      `json:"age"`
		Conditions []string `json:"conditions"`
	}
	_ = json.Unmarshal(body, &me)
	if me.Age != 61 || len(me.Conditions) != 1 {
		t.Fatalf("expected patched age only, got %s", string(body))
	}
}

func TestHTTP_EndToEnd_MedicationFlow(t *testing.T) {
	ts := newTestServer(t, false)

	patientID := signup(t, ts.URL, "pat@example.com", "patient")

	st, body := doReq(t, ts.URL, "POST", "/medications", patientID, "", map[string]any{
		"name":      "Metformin",
		"dosage":    "500mg",
		"frequency": "twice daily",
		"schedule":  []string{"08:00", "20:00"},
		"stock":     10,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 add medication, got %d body=%s", st, string(body))
	}
	medID := extractID(t, body)

	scheduledAt := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)

	// Tomar dosis: stock 10 -> 9
	st, body = doReq(t, ts.URL, "POST", "/medications/"+medID+"/take", patientID, "", map[string]any{
		"scheduled_at": scheduledAt,
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 take dose, got %d body=%s", st, string(body))
	}
	var took struct {
		Medication struct {
			Stock int `json:"stock"`
		} `json:"medication"`
		Log struct {
			Status string `json:"status"`
		} `json:"log"`
	}
	_ = json.Unmarshal(body, &took)
	if took.Medication.Stock != 9 {
		t.Fatalf("expected stock 9 after take, got %d", took.Medication.Stock)
	}
	if took.Log.Status != "taken" {
		t.Fatalf("expected log status taken, got %q", took.Log.Status)
	}

	// Doble toma de la misma dosis => 409
	st, _ = doReq(t, ts.URL, "POST", "/medications/"+medID+"/take", patientID, "", map[string]any{
		"scheduled_at": scheduledAt,
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 double take, got %d", st)
	}

	// Otro usuario no puede tocar el medicamento
	st, _ = doReq(t, ts.URL, "POST", "/medications/"+medID+"/refill", "other-user", "", nil)
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 refill by other, got %d", st)
	}

	// Adherence refleja la dosis tomada
	st, body = doReq(t, ts.URL, "GET", "/adherence", patientID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 adherence, got %d body=%s", st, string(body))
	}
	var adh struct {
		Taken int `json:"taken"`
	}
	_ = json.Unmarshal(body, &adh)
	if adh.Taken != 1 {
		t.Fatalf("expected 1 taken, got %s", string(body))
	}
}

func TestHTTP_EndToEnd_DoctorPrescribes(t *testing.T) {
	ts := newTestServer(t, false)

	patientID := signup(t, ts.URL, "pat2@example.com", "patient")
	doctorID := signup(t, ts.URL, "doc@example.com", "doctor")

	// El roster de pacientes es solo para doctores
	st, _ := doReq(t, ts.URL, "GET", "/patients", patientID, "", nil)
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 roster as patient, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "GET", "/patients", doctorID, "doctor", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 roster as doctor, got %d", st)
	}

	// Prescripción doctor => paciente
	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/prescriptions", doctorID, "doctor", map[string]any{
		"name":      "Losartan",
		"dosage":    "50mg",
		"frequency": "once daily",
		"schedule":  []string{"08:00"},
		"stock":     30,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 prescribe, got %d body=%s", st, string(body))
	}
	var med struct {
		Source       string `json:"source"`
		PrescribedBy string `json:"prescribed_by"`
	}
	_ = json.Unmarshal(body, &med)
	if med.Source != "prescription" || med.PrescribedBy != doctorID {
		t.Fatalf("expected prescription source, got %s", string(body))
	}

	// La prescripción deja el aviso en el chat del par
	st, body = doReq(t, ts.URL, "GET", "/chat/"+doctorID, patientID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 chat history, got %d body=%s", st, string(body))
	}
	var notices []struct {
		SenderID string `json:"sender_id"`
		Text     string `json:"text"`
	}
	_ = json.Unmarshal(body, &notices)
	if len(notices) != 1 {
		t.Fatalf("expected 1 prescription notice, got %d body=%s", len(notices), string(body))
	}
	if notices[0].SenderID != doctorID || !strings.Contains(notices[0].Text, "Losartan") {
		t.Fatalf("expected notice from doctor mentioning Losartan, got %+v", notices[0])
	}

	// Un paciente no puede prescribir
	st, _ = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/prescriptions", patientID, "", map[string]any{
		"name": "X", "dosage": "1", "frequency": "daily", "schedule": []string{"08:00"},
	})
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 prescribe as patient, got %d", st)
	}

	// El paciente ve la prescripción en su lista
	st, body = doReq(t, ts.URL, "GET", "/medications", patientID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list medications, got %d body=%s", st, string(body))
	}
	var list []json.RawMessage
	_ = json.Unmarshal(body, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 medication, got %d", len(list))
	}
}

func TestHTTP_EndToEnd_ChatFlow(t *testing.T) {
	ts := newTestServer(t, false)

	patientID := signup(t, ts.URL, "pat3@example.com", "patient")
	doctorID := signup(t, ts.URL, "doc3@example.com", "doctor")

	st, body := doReq(t, ts.URL, "POST", "/chat/"+doctorID, patientID, "", map[string]any{
		"text": "hola doctor",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 send, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/chat/"+patientID, doctorID, "doctor", map[string]any{
		"text": "hola, ¿cómo sigue?",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 reply, got %d body=%s", st, string(body))
	}

	// Ambos lados ven la misma conversación, ascendente
	st, body = doReq(t, ts.URL, "GET", "/chat/"+patientID, doctorID, "doctor", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 history, got %d body=%s", st, string(body))
	}
	var msgs []struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(body, &msgs)
	if len(msgs) != 2 || msgs[0].Text != "hola doctor" {
		t.Fatalf("expected 2 messages ascending, got %s", string(body))
	}

	// Smart replies sobre la conversación (fallback estático)
	st, body = doReq(t, ts.URL, "GET", "/assistant/smart-replies/"+doctorID, patientID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 smart replies, got %d body=%s", st, string(body))
	}
	var sr struct {
		Suggestions []string `json:"suggestions"`
	}
	_ = json.Unmarshal(body, &sr)
	if len(sr.Suggestions) == 0 {
		t.Fatalf("expected suggestions, got %s", string(body))
	}

	// Borrar conversación: ambas direcciones
	st, body = doReq(t, ts.URL, "DELETE", "/chat/"+doctorID, patientID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 delete, got %d body=%s", st, string(body))
	}
	var del struct {
		Deleted int `json:"deleted"`
	}
	_ = json.Unmarshal(body, &del)
	if del.Deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", del.Deleted)
	}
}

func TestHTTP_EndToEnd_MarketplaceFlow(t *testing.T) {
	ts := newTestServer(t, true) // seed: catálogo de demo

	userID := signup(t, ts.URL, "shopper@example.com", "patient")

	st, body := doReq(t, ts.URL, "GET", "/products", userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 products, got %d body=%s", st, string(body))
	}
	var products []struct {
		ID    string `json:"id"`
		Stock int    `json:"stock"`
	}
	_ = json.Unmarshal(body, &products)
	if len(products) == 0 {
		t.Fatal("expected seeded products")
	}
	productID := products[0].ID
	initialStock := products[0].Stock

	st, body = doReq(t, ts.URL, "POST", "/cart/items", userID, "", map[string]any{
		"product_id": productID,
		"quantity":   2,
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 add item, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/cart/checkout", userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 checkout, got %d body=%s", st, string(body))
	}
	var order struct {
		TotalCents int64 `json:"total_cents"`
		Lines      []struct {
			Quantity int `json:"quantity"`
		} `json:"lines"`
	}
	_ = json.Unmarshal(body, &order)
	if len(order.Lines) != 1 || order.Lines[0].Quantity != 2 || order.TotalCents == 0 {
		t.Fatalf("unexpected order: %s", string(body))
	}

	// Stock del producto descontado
	st, body = doReq(t, ts.URL, "GET", "/products/"+productID, userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 product, got %d body=%s", st, string(body))
	}
	var p struct {
		Stock int `json:"stock"`
	}
	_ = json.Unmarshal(body, &p)
	if p.Stock != initialStock-2 {
		t.Fatalf("expected stock %d, got %d", initialStock-2, p.Stock)
	}

	// Checkout con carrito vacío => 400
	st, _ = doReq(t, ts.URL, "POST", "/cart/checkout", userID, "", nil)
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 empty cart, got %d", st)
	}
}

func TestHTTP_EndToEnd_AssistantEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	userID := signup(t, ts.URL, "ai@example.com", "patient")

	// Chat con el asistente (respuesta enlatada)
	st, body := doReq(t, ts.URL, "POST", "/assistant/chat", userID, "", map[string]any{
		"message": "me duele la cabeza",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 assistant chat, got %d body=%s", st, string(body))
	}
	var chat struct {
		Reply string `json:"reply"`
	}
	_ = json.Unmarshal(body, &chat)
	if chat.Reply == "" {
		t.Fatalf("expected reply, got %s", string(body))
	}

	// Mensaje vacío => 400
	st, _ = doReq(t, ts.URL, "POST", "/assistant/chat", userID, "", map[string]any{
		"message": "  ",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 empty message, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/assistant/diet-plan", userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 diet plan, got %d body=%s", st, string(body))
	}
	var plan struct {
		Meals []json.RawMessage `json:"meals"`
	}
	_ = json.Unmarshal(body, &plan)
	if len(plan.Meals) == 0 {
		t.Fatalf("expected meals in plan, got %s", string(body))
	}

	// Sin user => 401
	st, _ = doReq(t, ts.URL, "GET", "/assistant/diet-plan", "", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}

	// Chequeo de interacciones con lista explícita
	st, body = doReq(t, ts.URL, "POST", "/medications/interactions", userID, "", map[string]any{
		"medications": []string{"Metformin", "Losartan"},
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 interactions, got %d body=%s", st, string(body))
	}
	var report struct {
		Summary string `json:"summary"`
	}
	_ = json.Unmarshal(body, &report)
	if report.Summary == "" {
		t.Fatalf("expected summary, got %s", string(body))
	}
}

func signup(t *testing.T, baseURL, email, role string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/auth/signup", "", "", map[string]any{
		"name":     "User " + email,
		"email":    email,
		"password": "secret1",
		"role":     role,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 signup %s, got %d body=%s", email, st, string(body))
	}
	return extractID(t, body)
}

func extractID(t *testing.T, body []byte) string {
	t.Helper()

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("missing id in body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID, debugRole string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}
	if debugRole != "" {
		req.Header.Set("X-Debug-Role", debugRole)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
