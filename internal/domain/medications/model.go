package medications

import "time"

// Medication representa un medicamento activo de un paciente.
// Nace por carga manual, por scan de receta (AI) o por prescripción
// de un doctor. Nunca se borra; se pausa.
type Medication struct {
	ID        string
	PatientID string

	// PrescribedBy es el user ID del doctor si vino por prescripción.
	PrescribedBy string

	Name      string
	Dosage    string   // "500mg", "2 puffs"
	Frequency string   // texto libre: "twice daily"
	Schedule  []string // horarios "HH:MM" en hora local del paciente

	Stock        int // unidades restantes, nunca negativo
	RefillAmount int // cuánto suma un refill

	Status       Status
	Source       Source
	Instructions string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DoseLog es el registro de una dosis programada o tomada.
// Hay a lo sumo un log por (medication, scheduledAt).
type DoseLog struct {
	ID           string
	MedicationID string
	PatientID    string

	ScheduledAt time.Time
	TakenAt     *time.Time

	Status     DoseStatus
	RecordedAt time.Time
}

// DueDose es una dosis que corresponde tomar ahora (o que ya venció).
type DueDose struct {
	Medication  Medication
	ScheduledAt time.Time
	Log         *DoseLog // nil si todavía no hay registro
}

// AdherenceReport resume la adherencia en una ventana de tiempo.
type AdherenceReport struct {
	Scheduled int
	Taken     int
	Skipped   int
	Late      int
	Ratio     float64 // Taken / Scheduled; 0 si no hubo dosis programadas
}
