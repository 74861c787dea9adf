package reminders

import (
	"context"
	"testing"
	"time"

	"medisync/internal/adapters/storage/memory"
	"medisync/internal/domain/medications"
	"medisync/internal/platform/logger"
)

func newMedsService(t *testing.T) *medications.Service {
	t.Helper()
	return medications.NewService(memory.NewMedicationRepo(), memory.NewDoseLogRepo())
}

func TestScheduler_Tick_NotifiesOncePerDose(t *testing.T) {
	meds := newMedsService(t)
	if _, err := meds.Add(context.Background(), "p1", medications.AddInput{
		Name: "Metformin", Dosage: "500mg", Frequency: "daily", Schedule: []string{"08:00"}, Stock: 10,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s := NewScheduler(meds, logger.Nop{}, time.Minute, 2*time.Hour)
	now := time.Date(2025, 11, 3, 8, 10, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sent, late := s.Tick(context.Background())
	if sent != 1 {
		t.Fatalf("expected 1 reminder on first tick, got %d", sent)
	}
	if late != 0 {
		t.Fatalf("expected no late doses inside grace, got %d", late)
	}

	// Mismo minuto de dosis: no se repite el aviso.
	now = now.Add(time.Minute)
	sent, _ = s.Tick(context.Background())
	if sent != 0 {
		t.Fatalf("expected no repeat reminder, got %d", sent)
	}
}

func TestScheduler_Tick_MarksOverdueLate(t *testing.T) {
	meds := newMedsService(t)
	if _, err := meds.Add(context.Background(), "p1", medications.AddInput{
		Name: "Losartan", Dosage: "50mg", Frequency: "daily", Schedule: []string{"08:00"}, Stock: 10,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s := NewScheduler(meds, logger.Nop{}, time.Minute, 30*time.Minute)
	now := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sent, late := s.Tick(context.Background())
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}
	if late != 1 {
		t.Fatalf("expected 1 dose marked late, got %d", late)
	}

	// Dosis resuelta (late): el siguiente tick no la vuelve a tocar.
	sent, late = s.Tick(context.Background())
	if sent != 0 || late != 0 {
		t.Fatalf("expected quiet tick after resolution, got sent=%d late=%d", sent, late)
	}

	logs, err := meds.ListDoseLogs(context.Background(), "p1", medications.LogFilter{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != medications.DoseStatusLate {
		t.Fatalf("expected single late log, got %+v", logs)
	}
}

func TestScheduler_Run_StopsOnCancel(t *testing.T) {
	s := NewScheduler(newMedsService(t), logger.Nop{}, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
