package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"medisync/internal/domain/users"
	"medisync/internal/ports/auth"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	row, err := toUserRow(u)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, role,
			patient_age, patient_conditions, patient_allergies,
			patient_height_cm, patient_weight_kg,
			patient_blood_pressure, patient_blood_glucose,
			doctor_specialty, doctor_license,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		row.id, row.name, row.email, row.passwordHash, row.role,
		row.patientAge, row.patientConditions, row.patientAllergies,
		row.heightCM, row.weightKG,
		row.bloodPressure, row.bloodGlucose,
		row.specialty, row.license,
		u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	row, err := toUserRow(u)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET
			name = $2,
			email = $3,
			password_hash = $4,
			role = $5,
			patient_age = $6,
			patient_conditions = $7,
			patient_allergies = $8,
			patient_height_cm = $9,
			patient_weight_kg = $10,
			patient_blood_pressure = $11,
			patient_blood_glucose = $12,
			doctor_specialty = $13,
			doctor_license = $14,
			updated_at = $15
		WHERE id = $1
	`,
		row.id, row.name, row.email, row.passwordHash, row.role,
		row.patientAge, row.patientConditions, row.patientAllergies,
		row.heightCM, row.weightKG,
		row.bloodPressure, row.bloodGlucose,
		row.specialty, row.license,
		u.UpdatedAt,
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

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, ErrNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return users.User{}, ErrNotFound
	}
	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *UsersRepo) ListByRole(ctx context.Context, role auth.Role) ([]users.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUsers+` WHERE role = $1 ORDER BY name ASC`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const selectUsers = `
	SELECT
		id, name, email, password_hash, role,
		patient_age, patient_conditions, patient_allergies,
		patient_height_cm, patient_weight_kg,
		patient_blood_pressure, patient_blood_glucose,
		doctor_specialty, doctor_license,
		created_at, updated_at
	FROM users`

func (r *UsersRepo) getOne(ctx context.Context, where string, arg any) (users.User, error) {
	row := r.db.QueryRowContext(ctx, selectUsers+" "+where, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return users.User{}, ErrNotFound
	}
	return u, err
}

// userRow aplana el modelo para las columnas nullable.
type userRow struct {
	id, name, email, passwordHash, role string

	patientAge        sql.NullInt64
	patientConditions []byte // JSON, nil si no es paciente
	patientAllergies  []byte
	heightCM          sql.NullFloat64
	weightKG          sql.NullFloat64
	bloodPressure     sql.NullString
	bloodGlucose      sql.NullFloat64

	specialty sql.NullString
	license   sql.NullString
}

func toUserRow(u users.User) (userRow, error) {
	row := userRow{
		id:           u.ID,
		name:         u.Name,
		email:        u.Email,
		passwordHash: u.PasswordHash,
		role:         string(u.Role),
	}

	if p := u.Patient; p != nil {
		row.patientAge = sql.NullInt64{Int64: int64(p.Age), Valid: true}
		conditions, err := json.Marshal(p.Conditions)
		if err != nil {
			return userRow{}, err
		}
		allergies, err := json.Marshal(p.Allergies)
		if err != nil {
			return userRow{}, err
		}
		row.patientConditions = conditions
		row.patientAllergies = allergies
		row.heightCM = sql.NullFloat64{Float64: p.Vitals.HeightCM, Valid: true}
		row.weightKG = sql.NullFloat64{Float64: p.Vitals.WeightKG, Valid: true}
		row.bloodPressure = sql.NullString{String: p.Vitals.BloodPressure, Valid: true}
		row.bloodGlucose = sql.NullFloat64{Float64: p.Vitals.BloodGlucose, Valid: true}
	}
	if d := u.Doctor; d != nil {
		row.specialty = sql.NullString{String: d.Specialty, Valid: true}
		row.license = sql.NullString{String: d.LicenseNumber, Valid: true}
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (users.User, error) {
	var (
		u    users.User
		role string
		row  userRow
	)
	if err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&row.patientAge, &row.patientConditions, &row.patientAllergies,
		&row.heightCM, &row.weightKG,
		&row.bloodPressure, &row.bloodGlucose,
		&row.specialty, &row.license,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return users.User{}, err
	}
	u.Role = auth.Role(role)

	switch u.Role {
	case auth.RolePatient:
		p := &users.PatientDetails{}
		if row.patientAge.Valid {
			p.Age = int(row.patientAge.Int64)
		}
		if len(row.patientConditions) > 0 {
			if err := json.Unmarshal(row.patientConditions, &p.Conditions); err != nil {
				return users.User{}, err
			}
		}
		if len(row.patientAllergies) > 0 {
			if err := json.Unmarshal(row.patientAllergies, &p.Allergies); err != nil {
				return users.User{}, err
			}
		}
		p.Vitals = users.Vitals{
			HeightCM:      row.heightCM.Float64,
			WeightKG:      row.weightKG.Float64,
			BloodPressure: row.bloodPressure.String,
			BloodGlucose:  row.bloodGlucose.Float64,
		}
		u.Patient = p
	case auth.RoleDoctor:
		u.Doctor = &users.DoctorDetails{
			Specialty:     row.specialty.String,
			LicenseNumber: row.license.String,
		}
	}

	return u, nil
}
