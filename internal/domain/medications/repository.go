package medications

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	ListByPatient(ctx context.Context, patientID string) ([]Medication, error)

	// ListActive devuelve todos los medicamentos activos de todos los
	// pacientes. Lo usa el scheduler de recordatorios.
	ListActive(ctx context.Context) ([]Medication, error)
}

type DoseLogRepository interface {
	Create(ctx context.Context, d DoseLog) error
	Update(ctx context.Context, d DoseLog) error

	// GetByDose busca el log de una dosis puntual. Matchea por el
	// timestamp programado exacto, no por prefijo de string.
	GetByDose(ctx context.Context, medicationID string, scheduledAt time.Time) (DoseLog, error)

	ListByPatient(ctx context.Context, patientID string, filter LogFilter) ([]DoseLog, error)
}

type LogFilter struct {
	MedicationID string
	Statuses     []DoseStatus
	From         *time.Time
	To           *time.Time
	Limit        int
}
