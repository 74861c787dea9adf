package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"medisync/internal/ports/auth"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role

	Patient *PatientDetails
	Doctor  *DoctorDetails
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || !strings.Contains(email, "@") {
		return User{}, ErrInvalidInput
	}
	if len(in.Password) < 6 {
		return User{}, ErrInvalidInput
	}

	role := in.Role
	if role == "" {
		role = auth.RolePatient
	}
	switch role {
	case auth.RolePatient, auth.RoleDoctor, auth.RolePharmacy:
	default:
		return User{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch role {
	case auth.RolePatient:
		u.Patient = in.Patient
		if u.Patient == nil {
			u.Patient = &PatientDetails{}
		}
	case auth.RoleDoctor:
		u.Doctor = in.Doctor
		if u.Doctor == nil {
			u.Doctor = &DoctorDetails{}
		}
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login valida credenciales de demo contra los usuarios registrados.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

type UpdateProfileInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name *string

	Age        *int
	Conditions *[]string
	Allergies  *[]string
	Vitals     *Vitals

	Specialty     *string
	LicenseNumber *string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return User{}, ErrInvalidInput
		}
		u.Name = name
	}

	if u.Patient != nil {
		if in.Age != nil {
			if *in.Age < 0 || *in.Age > 150 {
				return User{}, ErrInvalidInput
			}
			u.Patient.Age = *in.Age
		}
		if in.Conditions != nil {
			u.Patient.Conditions = trimAll(*in.Conditions)
		}
		if in.Allergies != nil {
			u.Patient.Allergies = trimAll(*in.Allergies)
		}
		if in.Vitals != nil {
			u.Patient.Vitals = *in.Vitals
		}
	}

	if u.Doctor != nil {
		if in.Specialty != nil {
			u.Doctor.Specialty = strings.TrimSpace(*in.Specialty)
		}
		if in.LicenseNumber != nil {
			u.Doctor.LicenseNumber = strings.TrimSpace(*in.LicenseNumber)
		}
	}

	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ListPatients devuelve el roster para la vista del doctor.
func (s *Service) ListPatients(ctx context.Context) ([]User, error) {
	return s.repo.ListByRole(ctx, auth.RolePatient)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
