package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"medisync/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	schedule, err := json.Marshal(m.Schedule)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, patient_id, prescribed_by,
			name, dosage, frequency, schedule,
			stock, refill_amount, status, source, instructions,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		m.ID, m.PatientID, toNullString(m.PrescribedBy),
		m.Name, m.Dosage, m.Frequency, schedule,
		m.Stock, m.RefillAmount, string(m.Status), string(m.Source), m.Instructions,
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	schedule, err := json.Marshal(m.Schedule)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $2,
			dosage = $3,
			frequency = $4,
			schedule = $5,
			stock = $6,
			refill_amount = $7,
			status = $8,
			source = $9,
			instructions = $10,
			updated_at = $11
		WHERE id = $1
	`,
		m.ID,
		m.Name, m.Dosage, m.Frequency, schedule,
		m.Stock, m.RefillAmount, string(m.Status), string(m.Source), m.Instructions,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectMedications = `
	SELECT
		id, patient_id, prescribed_by,
		name, dosage, frequency, schedule,
		stock, refill_amount, status, source, instructions,
		created_at, updated_at
	FROM medications`

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, selectMedications+` WHERE id = $1`, id)
	m, err := scanMedication(row)
	if err == sql.ErrNoRows {
		return medications.Medication{}, ErrNotFound
	}
	return m, err
}

func (r *MedicationsRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	return r.list(ctx, selectMedications+` WHERE patient_id = $1 ORDER BY created_at ASC`, patientID)
}

func (r *MedicationsRepo) ListActive(ctx context.Context) ([]medications.Medication, error) {
	return r.list(ctx, selectMedications+` WHERE status = $1 ORDER BY created_at ASC`, string(medications.StatusActive))
}

func (r *MedicationsRepo) list(ctx context.Context, query string, args ...any) ([]medications.Medication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMedication(s rowScanner) (medications.Medication, error) {
	var (
		m              medications.Medication
		prescribedBy   sql.NullString
		schedule       []byte
		status, source string
	)
	if err := s.Scan(
		&m.ID, &m.PatientID, &prescribedBy,
		&m.Name, &m.Dosage, &m.Frequency, &schedule,
		&m.Stock, &m.RefillAmount, &status, &source, &m.Instructions,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}
	m.PrescribedBy = prescribedBy.String
	m.Status = medications.Status(status)
	m.Source = medications.Source(source)
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &m.Schedule); err != nil {
			return medications.Medication{}, err
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------
// Dose logs
// ---------------------------------------------------------------------

type DoseLogsRepo struct {
	db *sql.DB
}

func NewDoseLogsRepo(db *sql.DB) *DoseLogsRepo {
	return &DoseLogsRepo{db: db}
}

func (r *DoseLogsRepo) Create(ctx context.Context, d medications.DoseLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_logs (
			id, medication_id, patient_id,
			scheduled_at, taken_at, status, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		d.ID, d.MedicationID, d.PatientID,
		d.ScheduledAt, toNullTime(d.TakenAt), string(d.Status), d.RecordedAt,
	)
	return err
}

func (r *DoseLogsRepo) Update(ctx context.Context, d medications.DoseLog) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dose_logs
		SET taken_at = $2, status = $3, recorded_at = $4
		WHERE id = $1
	`,
		d.ID, toNullTime(d.TakenAt), string(d.Status), d.RecordedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DoseLogsRepo) GetByDose(ctx context.Context, medicationID string, scheduledAt time.Time) (medications.DoseLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, patient_id, scheduled_at, taken_at, status, recorded_at
		FROM dose_logs
		WHERE medication_id = $1 AND scheduled_at = $2
	`, medicationID, scheduledAt)

	d, err := scanDoseLog(row)
	if err == sql.ErrNoRows {
		return medications.DoseLog{}, ErrNotFound
	}
	return d, err
}

func (r *DoseLogsRepo) ListByPatient(ctx context.Context, patientID string, filter medications.LogFilter) ([]medications.DoseLog, error) {
	query := `
		SELECT id, medication_id, patient_id, scheduled_at, taken_at, status, recorded_at
		FROM dose_logs
		WHERE patient_id = $1`
	args := []any{patientID}

	if filter.MedicationID != "" {
		args = append(args, filter.MedicationID)
		query += ` AND medication_id = $2`
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND scheduled_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND scheduled_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY scheduled_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.DoseLog, 0)
	for rows.Next() {
		d, err := scanDoseLog(rows)
		if err != nil {
			return nil, err
		}
		// El filtro de status se resuelve acá: la lista suele ser corta
		// y evita armar un IN dinámico.
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, d.Status) {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDoseLog(s rowScanner) (medications.DoseLog, error) {
	var (
		d       medications.DoseLog
		takenAt sql.NullTime
		status  string
	)
	if err := s.Scan(
		&d.ID, &d.MedicationID, &d.PatientID,
		&d.ScheduledAt, &takenAt, &status, &d.RecordedAt,
	); err != nil {
		return medications.DoseLog{}, err
	}
	if takenAt.Valid {
		t := takenAt.Time
		d.TakenAt = &t
	}
	d.Status = medications.DoseStatus(status)
	return d, nil
}

func containsStatus(list []medications.DoseStatus, s medications.DoseStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
