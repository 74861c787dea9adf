// Package postgres implementa los repositorios sobre Postgres usando
// pgx vía database/sql. Se activa con DB_DSN; sin DSN la app corre
// con los repos in-memory.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("not found")
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// defaults razonables para la demo (ajustable luego)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema crea las tablas si no existen. Suficiente para una demo;
// un despliegue real usaría migraciones versionadas.
func InitSchema(ctx context.Context, db *sql.DB) error {
	const query = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,

		patient_age INT,
		patient_conditions JSONB,
		patient_allergies JSONB,
		patient_height_cm DOUBLE PRECISION,
		patient_weight_kg DOUBLE PRECISION,
		patient_blood_pressure TEXT,
		patient_blood_glucose DOUBLE PRECISION,

		doctor_specialty TEXT,
		doctor_license TEXT,

		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS medications (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL REFERENCES users(id),
		prescribed_by TEXT,
		name TEXT NOT NULL,
		dosage TEXT NOT NULL,
		frequency TEXT NOT NULL,
		schedule JSONB NOT NULL,
		stock INT NOT NULL,
		refill_amount INT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		instructions TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications (patient_id);

	CREATE TABLE IF NOT EXISTS dose_logs (
		id TEXT PRIMARY KEY,
		medication_id TEXT NOT NULL REFERENCES medications(id),
		patient_id TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		taken_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		UNIQUE (medication_id, scheduled_at)
	);
	CREATE INDEX IF NOT EXISTS idx_dose_logs_patient ON dose_logs (patient_id, scheduled_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		sender_role TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (sender_id, receiver_id, sent_at);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		price_cents BIGINT NOT NULL,
		stock INT NOT NULL,
		requires_prescription BOOLEAN NOT NULL DEFAULT FALSE,
		image_url TEXT
	);
	`
	_, err := db.ExecContext(ctx, query)
	return err
}
