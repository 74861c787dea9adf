package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medisync/internal/adapters/auth/authsvc"
	"medisync/internal/domain/reminders"
	"medisync/internal/platform/logger"
	"medisync/internal/ports/auth"
	"medisync/internal/router"
)

// @title MediSync API
// @version 0.1
// @description API de adherencia a medicación y telesalud: medicamentos y dosis, chat paciente-doctor, marketplace de farmacia y asistente generativo.
// @BasePath /
func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	// Verifier externo solo si está configurado; si no, modo dev.
	var verifier auth.AuthVerifier
	if authClient := authsvc.NewClient(authsvc.ConfigFromEnv()); authClient.IsConfigured() {
		verifier = authsvc.NewVerifier(authClient)
	}

	app, err := router.New(router.Options{
		AuthVerifier: verifier,
		SeedDemo:     router.SeedFromEnv(),
		Log:          log,
	})
	if err != nil {
		log.Error("startup failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := reminders.NewScheduler(app.Meds, log, reminderInterval(), reminders.DefaultGrace)
	go sched.Run(ctx)

	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", map[string]any{"error": err.Error()})
	}
	log.Info("server stopped", nil)
}

func reminderInterval() time.Duration {
	v := os.Getenv("REMINDER_INTERVAL")
	if v == "" {
		return reminders.DefaultInterval
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return reminders.DefaultInterval
	}
	return d
}
