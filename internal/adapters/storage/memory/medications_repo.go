package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medisync/internal/domain/medications"
)

type medicationRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Medication
}

func NewMedicationRepo() medications.Repository {
	return &medicationRepo{
		byID: make(map[string]medications.Medication),
	}
}

func (r *medicationRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicationRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicationRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *medicationRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *medicationRepo) ListActive(ctx context.Context) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.Status == medications.StatusActive {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

type doseLogRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.DoseLog
}

func NewDoseLogRepo() medications.DoseLogRepository {
	return &doseLogRepo{
		byID: make(map[string]medications.DoseLog),
	}
}

func (r *doseLogRepo) Create(ctx context.Context, d medications.DoseLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dose log id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dose log already exists")
	}
	r.byID[d.ID] = d
	return nil
}

func (r *doseLogRepo) Update(ctx context.Context, d medications.DoseLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *doseLogRepo) GetByDose(ctx context.Context, medicationID string, scheduledAt time.Time) (medications.DoseLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.byID {
		if d.MedicationID == medicationID && d.ScheduledAt.Equal(scheduledAt) {
			return d, nil
		}
	}
	return medications.DoseLog{}, ErrNotFound
}

func (r *doseLogRepo) ListByPatient(ctx context.Context, patientID string, filter medications.LogFilter) ([]medications.DoseLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.DoseLog, 0)
	for _, d := range r.byID {
		if d.PatientID != patientID {
			continue
		}
		if filter.MedicationID != "" && d.MedicationID != filter.MedicationID {
			continue
		}
		if len(filter.Statuses) > 0 {
			ok := false
			for _, s := range filter.Statuses {
				if d.Status == s {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		if filter.From != nil && d.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}
