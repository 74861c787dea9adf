package medications

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadState     = errors.New("invalid state")
)

const defaultRefillAmount = 30

type Service struct {
	repo  Repository
	doses DoseLogRepository
	now   func() time.Time
}

func NewService(repo Repository, doses DoseLogRepository) *Service {
	return &Service{
		repo:  repo,
		doses: doses,
		now:   time.Now,
	}
}

type AddInput struct {
	Name         string
	Dosage       string
	Frequency    string
	Schedule     []string // "HH:MM"
	Stock        int
	RefillAmount int
	Instructions string
	Source       Source
}

// Add registra un medicamento para el paciente (carga manual o scan).
func (s *Service) Add(ctx context.Context, patientID string, in AddInput) (Medication, error) {
	return s.create(ctx, patientID, "", in)
}

// Prescribe registra un medicamento prescripto por un doctor.
func (s *Service) Prescribe(ctx context.Context, doctorID, patientID string, in AddInput) (Medication, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return Medication{}, ErrInvalidInput
	}
	in.Source = SourcePrescription
	return s.create(ctx, patientID, doctorID, in)
}

func (s *Service) create(ctx context.Context, patientID, doctorID string, in AddInput) (Medication, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Medication{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}

	schedule, err := normalizeSchedule(in.Schedule)
	if err != nil {
		return Medication{}, err
	}

	if in.Stock < 0 {
		return Medication{}, ErrInvalidInput
	}

	refill := in.RefillAmount
	if refill <= 0 {
		refill = defaultRefillAmount
	}

	src := in.Source
	if src == "" {
		src = SourceManual
	}

	now := s.now()
	m := Medication{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		PrescribedBy: doctorID,
		Name:         strings.TrimSpace(in.Name),
		Dosage:       strings.TrimSpace(in.Dosage),
		Frequency:    strings.TrimSpace(in.Frequency),
		Schedule:     schedule,
		Stock:        in.Stock,
		RefillAmount: refill,
		Status:       StatusActive,
		Source:       src,
		Instructions: strings.TrimSpace(in.Instructions),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// TakeDose marca una dosis como tomada: descuenta una unidad de stock
// (con piso en cero) y deja exactamente un dose log para esa dosis.
func (s *Service) TakeDose(ctx context.Context, patientID, medicationID string, scheduledAt time.Time) (Medication, DoseLog, error) {
	m, err := s.ownedMedication(ctx, patientID, medicationID)
	if err != nil {
		return Medication{}, DoseLog{}, err
	}
	if scheduledAt.IsZero() {
		return Medication{}, DoseLog{}, ErrInvalidInput
	}

	now := s.now()
	taken := now

	log, err := s.doses.GetByDose(ctx, m.ID, scheduledAt)
	if err == nil {
		if log.Status == DoseStatusTaken {
			return Medication{}, DoseLog{}, ErrBadState
		}
		log.Status = DoseStatusTaken
		log.TakenAt = &taken
		log.RecordedAt = now
		if err := s.doses.Update(ctx, log); err != nil {
			return Medication{}, DoseLog{}, err
		}
	} else {
		log = DoseLog{
			ID:           uuid.NewString(),
			MedicationID: m.ID,
			PatientID:    m.PatientID,
			ScheduledAt:  scheduledAt,
			TakenAt:      &taken,
			Status:       DoseStatusTaken,
			RecordedAt:   now,
		}
		if err := s.doses.Create(ctx, log); err != nil {
			return Medication{}, DoseLog{}, err
		}
	}

	// Stock con piso en cero.
	if m.Stock > 0 {
		m.Stock--
	}
	m.UpdatedAt = now
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, DoseLog{}, err
	}

	return m, log, nil
}

// SkipDose marca una dosis como salteada. No toca el stock.
func (s *Service) SkipDose(ctx context.Context, patientID, medicationID string, scheduledAt time.Time) (DoseLog, error) {
	m, err := s.ownedMedication(ctx, patientID, medicationID)
	if err != nil {
		return DoseLog{}, err
	}
	if scheduledAt.IsZero() {
		return DoseLog{}, ErrInvalidInput
	}

	now := s.now()

	log, err := s.doses.GetByDose(ctx, m.ID, scheduledAt)
	if err == nil {
		if log.Status == DoseStatusTaken {
			return DoseLog{}, ErrBadState
		}
		log.Status = DoseStatusSkipped
		log.RecordedAt = now
		if err := s.doses.Update(ctx, log); err != nil {
			return DoseLog{}, err
		}
		return log, nil
	}

	log = DoseLog{
		ID:           uuid.NewString(),
		MedicationID: m.ID,
		PatientID:    m.PatientID,
		ScheduledAt:  scheduledAt,
		Status:       DoseStatusSkipped,
		RecordedAt:   now,
	}
	if err := s.doses.Create(ctx, log); err != nil {
		return DoseLog{}, err
	}
	return log, nil
}

// Refill suma RefillAmount al stock. No afecta otros medicamentos.
func (s *Service) Refill(ctx context.Context, patientID, medicationID string) (Medication, error) {
	m, err := s.ownedMedication(ctx, patientID, medicationID)
	if err != nil {
		return Medication{}, err
	}

	m.Stock += m.RefillAmount
	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// SetStatus pausa o reactiva un medicamento.
func (s *Service) SetStatus(ctx context.Context, patientID, medicationID string, status Status) (Medication, error) {
	if status != StatusActive && status != StatusPaused {
		return Medication{}, ErrInvalidInput
	}

	m, err := s.ownedMedication(ctx, patientID, medicationID)
	if err != nil {
		return Medication{}, err
	}

	m.Status = status
	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) ListDoseLogs(ctx context.Context, patientID string, filter LogFilter) ([]DoseLog, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.doses.ListByPatient(ctx, patientID, filter)
}

// DaySchedule arma la vista de dosis del día para un paciente:
// cada horario de cada medicamento activo, con su log si existe.
func (s *Service) DaySchedule(ctx context.Context, patientID string, day time.Time) ([]DueDose, error) {
	meds, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out := make([]DueDose, 0)
	for _, m := range meds {
		if m.Status != StatusActive {
			continue
		}
		for _, hhmm := range m.Schedule {
			at, err := scheduleTimeOn(day, hhmm)
			if err != nil {
				continue
			}
			due := DueDose{Medication: m, ScheduledAt: at}
			if log, err := s.doses.GetByDose(ctx, m.ID, at); err == nil {
				l := log
				due.Log = &l
			}
			out = append(out, due)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

// DueForReminder devuelve las dosis vencidas y sin resolver (sin log o
// pending) de todos los pacientes. Lo consume el scheduler.
func (s *Service) DueForReminder(ctx context.Context, now time.Time) ([]DueDose, error) {
	meds, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DueDose, 0)
	for _, m := range meds {
		for _, hhmm := range m.Schedule {
			at, err := scheduleTimeOn(now, hhmm)
			if err != nil {
				continue
			}
			if at.After(now) {
				continue
			}

			log, err := s.doses.GetByDose(ctx, m.ID, at)
			if err == nil && log.Status != DoseStatusPending {
				continue
			}
			due := DueDose{Medication: m, ScheduledAt: at}
			if err == nil {
				l := log
				due.Log = &l
			}
			out = append(out, due)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

// MarkOverdueLate registra como "late" toda dosis vencida hace más de
// grace que siga sin resolverse. Devuelve cuántas marcó.
func (s *Service) MarkOverdueLate(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	due, err := s.DueForReminder(ctx, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, d := range due {
		if now.Sub(d.ScheduledAt) <= grace {
			continue
		}

		if d.Log != nil {
			log := *d.Log
			log.Status = DoseStatusLate
			log.RecordedAt = now
			if err := s.doses.Update(ctx, log); err != nil {
				return marked, err
			}
			marked++
			continue
		}

		log := DoseLog{
			ID:           uuid.NewString(),
			MedicationID: d.Medication.ID,
			PatientID:    d.Medication.PatientID,
			ScheduledAt:  d.ScheduledAt,
			Status:       DoseStatusLate,
			RecordedAt:   now,
		}
		if err := s.doses.Create(ctx, log); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// Adherence calcula tomadas / programadas sobre los dose logs de la ventana.
func (s *Service) Adherence(ctx context.Context, patientID string, from, to *time.Time) (AdherenceReport, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return AdherenceReport{}, ErrInvalidInput
	}

	logs, err := s.doses.ListByPatient(ctx, patientID, LogFilter{From: from, To: to})
	if err != nil {
		return AdherenceReport{}, err
	}

	var rep AdherenceReport
	for _, l := range logs {
		rep.Scheduled++
		switch l.Status {
		case DoseStatusTaken:
			rep.Taken++
		case DoseStatusSkipped:
			rep.Skipped++
		case DoseStatusLate:
			rep.Late++
		}
	}
	if rep.Scheduled > 0 {
		rep.Ratio = float64(rep.Taken) / float64(rep.Scheduled)
	}
	return rep, nil
}

func (s *Service) ownedMedication(ctx context.Context, patientID, medicationID string) (Medication, error) {
	patientID = strings.TrimSpace(patientID)
	medicationID = strings.TrimSpace(medicationID)
	if patientID == "" || medicationID == "" {
		return Medication{}, ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, medicationID)
	if err != nil {
		return Medication{}, ErrNotFound
	}
	if m.PatientID != patientID {
		return Medication{}, ErrForbidden
	}
	return m, nil
}

func normalizeSchedule(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		hhmm := strings.TrimSpace(raw)
		if hhmm == "" {
			continue
		}
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return nil, ErrInvalidInput
		}
		if _, dup := seen[hhmm]; dup {
			continue
		}
		seen[hhmm] = struct{}{}
		out = append(out, hhmm)
	}
	sort.Strings(out)
	return out, nil
}

// scheduleTimeOn ancla un horario "HH:MM" al día de referencia,
// en la zona horaria de ese día.
func scheduleTimeOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
