package users

import (
	"time"

	"medisync/internal/ports/auth"
)

// User es la identidad de la plataforma. Según el rol lleva detalles
// de paciente o de doctor (nunca los dos).
type User struct {
	ID    string
	Name  string
	Email string

	// PasswordHash es el hash bcrypt de la contraseña de demo.
	PasswordHash string

	Role auth.Role

	Patient *PatientDetails
	Doctor  *DoctorDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PatientDetails struct {
	Age        int
	Conditions []string
	Allergies  []string
	Vitals     Vitals
}

type Vitals struct {
	HeightCM      float64
	WeightKG      float64
	BloodPressure string // "120/80"
	BloodGlucose  float64
}

type DoctorDetails struct {
	Specialty     string
	LicenseNumber string
}
