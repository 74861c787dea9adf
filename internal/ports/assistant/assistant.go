package assistant

import "context"

// MedicalAssistant es el puerto hacia el modelo generativo externo.
// Cada método arma su prompt, llama al backend y parsea la respuesta
// a un shape tipado. Las implementaciones devuelven error explícito;
// decidir el fallback es responsabilidad del caller.
type MedicalAssistant interface {
	// Reply genera la respuesta del asistente para un turno de chat.
	Reply(ctx context.Context, in ChatInput) (string, error)

	// SmartReplies sugiere respuestas cortas para el último mensaje recibido.
	SmartReplies(ctx context.Context, history []Turn) ([]string, error)

	// CheckInteractions evalúa interacciones entre los medicamentos dados.
	CheckInteractions(ctx context.Context, medications []string) (InteractionReport, error)

	// AnalyzeWound analiza una foto de herida/lesión.
	AnalyzeWound(ctx context.Context, img Image) (WoundAnalysis, error)

	// IdentifyPill identifica una pastilla a partir de una foto.
	IdentifyPill(ctx context.Context, img Image) (PillMatch, error)

	// ExtractPrescription extrae los campos de un medicamento desde la
	// foto de una receta.
	ExtractPrescription(ctx context.Context, img Image) (ExtractedMedication, error)

	// SearchProducts devuelve IDs de productos del catálogo que matchean
	// la búsqueda en lenguaje natural.
	SearchProducts(ctx context.Context, query string, catalog []ProductSummary) ([]string, error)

	// BuildCart arma un carrito sugerido a partir de una necesidad
	// descrita en lenguaje natural.
	BuildCart(ctx context.Context, query string, catalog []ProductSummary) ([]CartSuggestion, error)

	// DietPlan genera un plan de alimentación para el perfil dado.
	DietPlan(ctx context.Context, profile PatientProfile) (DietPlan, error)
}

// Image es una imagen inline (base64, sin data-URI prefix).
type Image struct {
	MIMEType   string
	Base64Data string
}

type Turn struct {
	From string // "patient" | "doctor" | "assistant"
	Text string
}

type ChatInput struct {
	Profile PatientProfile
	History []Turn
	Message string
}

// PatientProfile es el contexto clínico mínimo que viaja en los prompts.
type PatientProfile struct {
	Name        string
	Age         int
	Conditions  []string
	Allergies   []string
	Medications []string
}

// InteractionReport es el shape estructurado de checkDrugInteractions.
// Severity va de 0 (sin interacción) a 10 (contraindicado).
type InteractionReport struct {
	Severity        int      `json:"severity"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

type WoundAnalysis struct {
	Severity        int      `json:"severity"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
}

type PillMatch struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ExtractedMedication es el objeto medication-field de un scan de receta.
type ExtractedMedication struct {
	Name          string   `json:"name"`
	Dosage        string   `json:"dosage"`
	Frequency     string   `json:"frequency"`
	ScheduleTimes []string `json:"schedule_times"`
	Instructions  string   `json:"instructions"`
}

// ProductSummary es la vista del catálogo que se incluye en los prompts
// de búsqueda (no mandamos el producto completo).
type ProductSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type CartSuggestion struct {
	ProductID  string  `json:"product_id"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"`
}

type DietPlan struct {
	Summary   string     `json:"summary"`
	Meals     []DietMeal `json:"meals"`
	Hydration string     `json:"hydration"`
	Avoid     []string   `json:"avoid"`
}

type DietMeal struct {
	Name        string   `json:"name"`
	Time        string   `json:"time"` // HH:MM
	Suggestions []string `json:"suggestions"`
}
