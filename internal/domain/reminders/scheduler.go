// Package reminders corre el loop de recordatorios de dosis: cada tick
// busca dosis vencidas sin resolver, emite un recordatorio (log) por
// cada una y marca como "late" las que superaron el período de gracia.
package reminders

import (
	"context"
	"sync"
	"time"

	"medisync/internal/domain/medications"
	"medisync/internal/platform/logger"
)

const (
	DefaultInterval = time.Minute
	DefaultGrace    = 30 * time.Minute
)

type Scheduler struct {
	meds     *medications.Service
	log      logger.Logger
	interval time.Duration
	grace    time.Duration

	now func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time // clave medicationID|scheduledAt -> último aviso
}

func NewScheduler(meds *medications.Service, log logger.Logger, interval, grace time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Scheduler{
		meds:     meds,
		log:      log,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		notified: make(map[string]time.Time),
	}
}

// Run bloquea hasta que el contexto se cancele.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("reminders: scheduler started", map[string]any{
		"interval": s.interval.String(),
		"grace":    s.grace.String(),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminders: scheduler stopped", nil)
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick procesa una pasada. Expuesto para poder dispararlo desde tests
// sin esperar al ticker.
func (s *Scheduler) Tick(ctx context.Context) (remindersSent, markedLate int) {
	now := s.now()

	due, err := s.meds.DueForReminder(ctx, now)
	if err != nil {
		s.log.Error("reminders: listing due doses", map[string]any{"error": err.Error()})
		return 0, 0
	}

	for _, d := range due {
		if !s.shouldNotify(d, now) {
			continue
		}
		s.log.Info("reminders: dose due", map[string]any{
			"patient_id":   d.Medication.PatientID,
			"medication":   d.Medication.Name,
			"scheduled_at": d.ScheduledAt.Format(time.RFC3339),
		})
		remindersSent++
	}

	markedLate, err = s.meds.MarkOverdueLate(ctx, now, s.grace)
	if err != nil {
		s.log.Error("reminders: marking overdue doses", map[string]any{"error": err.Error()})
	}
	if markedLate > 0 {
		s.log.Warn("reminders: doses marked late", map[string]any{"count": markedLate})
	}

	s.gc(now)
	return remindersSent, markedLate
}

// shouldNotify evita repetir el aviso de la misma dosis en ticks sucesivos.
func (s *Scheduler) shouldNotify(d medications.DueDose, now time.Time) bool {
	key := d.Medication.ID + "|" + d.ScheduledAt.Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.notified[key]; seen {
		return false
	}
	s.notified[key] = now
	return true
}

// gc descarta entradas de avisos de hace más de un día para que el mapa
// no crezca sin límite.
func (s *Scheduler) gc(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.notified {
		if now.Sub(at) > 24*time.Hour {
			delete(s.notified, key)
		}
	}
}
