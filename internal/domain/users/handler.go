package users

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"medisync/internal/middleware"
	"medisync/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/auth/signup", signupHandler(svc))
	r.Post("/auth/login", loginHandler(svc))

	r.Get("/me", meHandler(svc))
	r.Patch("/me", updateProfileHandler(svc))

	// Roster de pacientes (vista del doctor)
	r.Get("/patients", listPatientsHandler(svc))

	// Vista pública mínima (para mostrar el peer de un chat)
	r.Get("/users/{userID}", getUserHandler(svc))
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // patient (default), doctor, pharmacy

	Age        int      `json:"age"`
	Conditions []string `json:"conditions"`
	Allergies  []string `json:"allergies"`

	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type vitalsPayload struct {
	HeightCM      float64 `json:"height_cm"`
	WeightKG      float64 `json:"weight_kg"`
	BloodPressure string  `json:"blood_pressure"`
	BloodGlucose  float64 `json:"blood_glucose"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	Age        int            `json:"age,omitempty"`
	Conditions []string       `json:"conditions,omitempty"`
	Allergies  []string       `json:"allergies,omitempty"`
	Vitals     *vitalsPayload `json:"vitals,omitempty"`

	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vista reducida para terceros (sin email ni detalle clínico).
type publicUserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Specialty string `json:"specialty,omitempty"`
}

type updateProfileRequest struct {
	Name *string `json:"name"`

	Age        *int           `json:"age"`
	Conditions *[]string      `json:"conditions"`
	Allergies  *[]string      `json:"allergies"`
	Vitals     *vitalsPayload `json:"vitals"`

	Specialty     *string `json:"specialty"`
	LicenseNumber *string `json:"license_number"`
}

// signupHandler godoc
// @Summary Alta de usuario de demo
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} users.userResponse
// @Router /auth/signup [post]
func signupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Role:     auth.Role(strings.TrimSpace(req.Role)),
		}
		switch in.Role {
		case auth.RoleDoctor:
			in.Doctor = &DoctorDetails{
				Specialty:     strings.TrimSpace(req.Specialty),
				LicenseNumber: strings.TrimSpace(req.LicenseNumber),
			}
		case auth.RolePharmacy:
		default:
			in.Patient = &PatientDetails{
				Age:        req.Age,
				Conditions: req.Conditions,
				Allergies:  req.Allergies,
			}
		}

		u, err := svc.Register(r.Context(), in)
		if err != nil {
			switch err {
			case ErrEmailTaken:
				http.Error(w, err.Error(), http.StatusConflict)
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			switch err {
			case ErrInvalidCredentials:
				http.Error(w, err.Error(), http.StatusUnauthorized)
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := svc.GetByID(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func updateProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateProfileRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateProfileInput{
			Name:          req.Name,
			Age:           req.Age,
			Conditions:    req.Conditions,
			Allergies:     req.Allergies,
			Specialty:     req.Specialty,
			LicenseNumber: req.LicenseNumber,
		}
		if req.Vitals != nil {
			in.Vitals = &Vitals{
				HeightCM:      req.Vitals.HeightCM,
				WeightKG:      req.Vitals.WeightKG,
				BloodPressure: req.Vitals.BloodPressure,
				BloodGlucose:  req.Vitals.BloodGlucose,
			}
		}

		u, err := svc.UpdateProfile(r.Context(), claims.UserID, in)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "user not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func listPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || claims.Role != auth.RoleDoctor {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListPatients(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]userResponse, 0, len(items))
		for _, u := range items {
			out = append(out, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := svc.GetByID(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		out := publicUserResponse{ID: u.ID, Name: u.Name, Role: string(u.Role)}
		if u.Doctor != nil {
			out.Specialty = u.Doctor.Specialty
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toUserResponse(u User) userResponse {
	out := userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Patient != nil {
		out.Age = u.Patient.Age
		out.Conditions = u.Patient.Conditions
		out.Allergies = u.Patient.Allergies
		out.Vitals = &vitalsPayload{
			HeightCM:      u.Patient.Vitals.HeightCM,
			WeightKG:      u.Patient.Vitals.WeightKG,
			BloodPressure: u.Patient.Vitals.BloodPressure,
			BloodGlucose:  u.Patient.Vitals.BloodGlucose,
		}
	}
	if u.Doctor != nil {
		out.Specialty = u.Doctor.Specialty
		out.LicenseNumber = u.Doctor.LicenseNumber
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
