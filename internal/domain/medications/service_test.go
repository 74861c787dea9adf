package medications

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testMedRepo struct {
	byID map[string]Medication
}

func newTestMedRepo() *testMedRepo {
	return &testMedRepo{byID: map[string]Medication{}}
}

func (r *testMedRepo) Create(ctx context.Context, m Medication) error {
	if m.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testMedRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testMedRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, errRepoNotFound
	}
	return m, nil
}

func (r *testMedRepo) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testMedRepo) ListActive(ctx context.Context) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.Status == StatusActive {
			out = append(out, m)
		}
	}
	return out, nil
}

type testDoseRepo struct {
	byID map[string]DoseLog
}

func newTestDoseRepo() *testDoseRepo {
	return &testDoseRepo{byID: map[string]DoseLog{}}
}

func (r *testDoseRepo) Create(ctx context.Context, d DoseLog) error {
	if d.ID == "" {
		return errors.New("repo: id required")
	}
	r.byID[d.ID] = d
	return nil
}

func (r *testDoseRepo) Update(ctx context.Context, d DoseLog) error {
	if _, ok := r.byID[d.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *testDoseRepo) GetByDose(ctx context.Context, medicationID string, scheduledAt time.Time) (DoseLog, error) {
	for _, d := range r.byID {
		if d.MedicationID == medicationID && d.ScheduledAt.Equal(scheduledAt) {
			return d, nil
		}
	}
	return DoseLog{}, errRepoNotFound
}

func (r *testDoseRepo) ListByPatient(ctx context.Context, patientID string, filter LogFilter) ([]DoseLog, error) {
	out := make([]DoseLog, 0)
	for _, d := range r.byID {
		if d.PatientID != patientID {
			continue
		}
		if filter.From != nil && d.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func newTestService() (*Service, *testMedRepo, *testDoseRepo) {
	medRepo := newTestMedRepo()
	doseRepo := newTestDoseRepo()
	return NewService(medRepo, doseRepo), medRepo, doseRepo
}

func mustAdd(t *testing.T, svc *Service, patientID string, in AddInput) Medication {
	t.Helper()
	m, err := svc.Add(context.Background(), patientID, in)
	if err != nil {
		t.Fatalf("add medication: %v", err)
	}
	return m
}

// -------------------------
// Tests
// -------------------------

func TestService_TakeDose_DecrementsStock_AppendsOneLog(t *testing.T) {
	svc, _, doseRepo := newTestService()

	now := time.Date(2025, 11, 3, 8, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m := mustAdd(t, svc, "p1", AddInput{Name: "Metformin", Dosage: "500mg", Schedule: []string{"08:00"}, Stock: 10})

	scheduled := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	updated, log, err := svc.TakeDose(context.Background(), "p1", m.ID, scheduled)
	if err != nil {
		t.Fatalf("take dose: %v", err)
	}

	if updated.Stock != 9 {
		t.Fatalf("expected stock 9, got %d", updated.Stock)
	}
	if log.Status != DoseStatusTaken {
		t.Fatalf("expected status taken, got %s", log.Status)
	}
	if log.TakenAt == nil || !log.TakenAt.Equal(now) {
		t.Fatalf("expected taken_at=%v, got %v", now, log.TakenAt)
	}
	if len(doseRepo.byID) != 1 {
		t.Fatalf("expected exactly 1 dose log, got %d", len(doseRepo.byID))
	}
}

func TestService_TakeDose_StockFlooredAtZero(t *testing.T) {
	svc, _, _ := newTestService()

	m := mustAdd(t, svc, "p1", AddInput{Name: "Aspirin", Schedule: []string{"08:00", "20:00"}, Stock: 0})

	updated, _, err := svc.TakeDose(context.Background(), "p1", m.ID, time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("take dose: %v", err)
	}
	if updated.Stock != 0 {
		t.Fatalf("expected stock clamped at 0, got %d", updated.Stock)
	}
}

func TestService_TakeDose_Twice_SameDose_Conflict(t *testing.T) {
	svc, _, doseRepo := newTestService()

	m := mustAdd(t, svc, "p1", AddInput{Name: "Aspirin", Stock: 5})
	scheduled := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	if _, _, err := svc.TakeDose(context.Background(), "p1", m.ID, scheduled); err != nil {
		t.Fatalf("first take: %v", err)
	}
	if _, _, err := svc.TakeDose(context.Background(), "p1", m.ID, scheduled); err != ErrBadState {
		t.Fatalf("expected ErrBadState on double take, got %v", err)
	}
	if len(doseRepo.byID) != 1 {
		t.Fatalf("expected still 1 dose log, got %d", len(doseRepo.byID))
	}
}

func TestService_TakeDose_OtherPatient_Forbidden(t *testing.T) {
	svc, _, _ := newTestService()

	m := mustAdd(t, svc, "p1", AddInput{Name: "Aspirin", Stock: 5})

	_, _, err := svc.TakeDose(context.Background(), "p2", m.ID, time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC))
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Refill_OnlyTargetMedication(t *testing.T) {
	svc, medRepo, _ := newTestService()

	m1 := mustAdd(t, svc, "p1", AddInput{Name: "Metformin", Stock: 3, RefillAmount: 30})
	m2 := mustAdd(t, svc, "p1", AddInput{Name: "Aspirin", Stock: 7, RefillAmount: 30})

	updated, err := svc.Refill(context.Background(), "p1", m1.ID)
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if updated.Stock != 33 {
		t.Fatalf("expected stock 33, got %d", updated.Stock)
	}

	other, _ := medRepo.GetByID(context.Background(), m2.ID)
	if other.Stock != 7 {
		t.Fatalf("expected other medication untouched (7), got %d", other.Stock)
	}
}

func TestService_SkipDose_NoStockChange(t *testing.T) {
	svc, medRepo, _ := newTestService()

	m := mustAdd(t, svc, "p1", AddInput{Name: "Aspirin", Stock: 5})

	log, err := svc.SkipDose(context.Background(), "p1", m.ID, time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("skip dose: %v", err)
	}
	if log.Status != DoseStatusSkipped {
		t.Fatalf("expected skipped, got %s", log.Status)
	}

	got, _ := medRepo.GetByID(context.Background(), m.ID)
	if got.Stock != 5 {
		t.Fatalf("expected stock unchanged (5), got %d", got.Stock)
	}
}

func TestService_Add_RejectsBadSchedule(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Add(context.Background(), "p1", AddInput{Name: "Aspirin", Schedule: []string{"25:99"}})
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for bad schedule, got %v", err)
	}
}

func TestService_MarkOverdueLate(t *testing.T) {
	svc, _, doseRepo := newTestService()

	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// 08:00 está vencida hace 2h; 09:45 dentro de la gracia de 30m.
	mustAdd(t, svc, "p1", AddInput{Name: "Metformin", Schedule: []string{"08:00", "09:45"}, Stock: 10})

	marked, err := svc.MarkOverdueLate(context.Background(), now, 30*time.Minute)
	if err != nil {
		t.Fatalf("mark late: %v", err)
	}
	if marked != 1 {
		t.Fatalf("expected 1 marked late, got %d", marked)
	}

	var late int
	for _, d := range doseRepo.byID {
		if d.Status == DoseStatusLate {
			late++
		}
	}
	if late != 1 {
		t.Fatalf("expected 1 late log, got %d", late)
	}
}

func TestService_DueForReminder_SkipsResolvedDoses(t *testing.T) {
	svc, _, _ := newTestService()

	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m := mustAdd(t, svc, "p1", AddInput{Name: "Metformin", Schedule: []string{"08:00", "12:00", "20:00"}, Stock: 10})

	// 08:00 tomada; 12:00 pendiente; 20:00 todavía no venció.
	if _, _, err := svc.TakeDose(context.Background(), "p1", m.ID, time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("take dose: %v", err)
	}

	due, err := svc.DueForReminder(context.Background(), now)
	if err != nil {
		t.Fatalf("due for reminder: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due dose, got %d", len(due))
	}
	if !due[0].ScheduledAt.Equal(time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 12:00 dose due, got %v", due[0].ScheduledAt)
	}
}

func TestService_Adherence(t *testing.T) {
	svc, _, _ := newTestService()

	now := time.Date(2025, 11, 3, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m := mustAdd(t, svc, "p1", AddInput{Name: "Metformin", Schedule: []string{"08:00", "14:00", "20:00"}, Stock: 10})

	day := func(h int) time.Time { return time.Date(2025, 11, 3, h, 0, 0, 0, time.UTC) }
	if _, _, err := svc.TakeDose(context.Background(), "p1", m.ID, day(8)); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := svc.SkipDose(context.Background(), "p1", m.ID, day(14)); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, _, err := svc.TakeDose(context.Background(), "p1", m.ID, day(20)); err != nil {
		t.Fatalf("take: %v", err)
	}

	rep, err := svc.Adherence(context.Background(), "p1", nil, nil)
	if err != nil {
		t.Fatalf("adherence: %v", err)
	}
	if rep.Scheduled != 3 || rep.Taken != 2 || rep.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Ratio < 0.66 || rep.Ratio > 0.67 {
		t.Fatalf("expected ratio ~0.67, got %f", rep.Ratio)
	}
}
