// Package seed carga datos de demo en los repositorios. Pensado para el
// backend in-memory: cuentas conocidas, medicamentos con horarios, un
// catálogo chico y un saludo en el chat para que la demo no arranque vacía.
package seed

import (
	"context"
	"fmt"

	"medisync/internal/domain/chat"
	"medisync/internal/domain/marketplace"
	"medisync/internal/domain/medications"
	"medisync/internal/domain/users"
	"medisync/internal/platform/logger"
	"medisync/internal/ports/auth"

	"github.com/google/uuid"
)

// Cuentas de demo. Los passwords son públicos a propósito.
const (
	DemoDoctorEmail   = "doctor@medisync.demo"
	DemoPatientEmail  = "ana@medisync.demo"
	DemoPatient2Email = "carlos@medisync.demo"
	DemoPassword      = "demo123"
)

type Deps struct {
	Users    *users.Service
	Meds     *medications.Service
	Chat     *chat.Service
	Products marketplace.ProductRepository
	Log      logger.Logger
}

// Run es idempotente a nivel usuarios: si la cuenta demo ya existe no
// vuelve a sembrar nada.
func Run(ctx context.Context, d Deps) error {
	if _, err := d.Users.Login(ctx, DemoDoctorEmail, DemoPassword); err == nil {
		d.Log.Info("seed: demo data already present, skipping", nil)
		return nil
	}

	doctor, err := d.Users.Register(ctx, users.RegisterInput{
		Name:     "Dra. Elena Vargas",
		Email:    DemoDoctorEmail,
		Password: DemoPassword,
		Role:     auth.RoleDoctor,
		Doctor: &users.DoctorDetails{
			Specialty:     "Medicina Interna",
			LicenseNumber: "CMP-48213",
		},
	})
	if err != nil {
		return fmt.Errorf("seed doctor: %w", err)
	}

	ana, err := d.Users.Register(ctx, users.RegisterInput{
		Name:     "Ana Quispe",
		Email:    DemoPatientEmail,
		Password: DemoPassword,
		Role:     auth.RolePatient,
		Patient: &users.PatientDetails{
			Age:        64,
			Conditions: []string{"type 2 diabetes", "hypertension"},
			Allergies:  []string{"penicillin"},
			Vitals: users.Vitals{
				HeightCM:      158,
				WeightKG:      70,
				BloodPressure: "130/85",
				BloodGlucose:  110,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("seed patient ana: %w", err)
	}

	carlos, err := d.Users.Register(ctx, users.RegisterInput{
		Name:     "Carlos Mendoza",
		Email:    DemoPatient2Email,
		Password: DemoPassword,
		Role:     auth.RolePatient,
		Patient: &users.PatientDetails{
			Age:        41,
			Conditions: []string{"asthma"},
		},
	})
	if err != nil {
		return fmt.Errorf("seed patient carlos: %w", err)
	}

	prescriptions := []struct {
		patientID string
		in        medications.AddInput
	}{
		{ana.ID, medications.AddInput{
			Name: "Metformin", Dosage: "500mg", Frequency: "twice daily",
			Schedule: []string{"08:00", "20:00"}, Stock: 28, RefillAmount: 60,
			Instructions: "Tomar con las comidas.",
		}},
		{ana.ID, medications.AddInput{
			Name: "Losartan", Dosage: "50mg", Frequency: "once daily",
			Schedule: []string{"08:00"}, Stock: 14, RefillAmount: 30,
		}},
		{carlos.ID, medications.AddInput{
			Name: "Salbutamol inhaler", Dosage: "100mcg", Frequency: "as needed",
			Schedule: []string{"09:00"}, Stock: 1, RefillAmount: 1,
			Instructions: "Dos inhalaciones ante síntomas.",
		}},
	}
	for _, p := range prescriptions {
		if _, err := d.Meds.Prescribe(ctx, doctor.ID, p.patientID, p.in); err != nil {
			return fmt.Errorf("seed medication %s: %w", p.in.Name, err)
		}
	}

	for _, p := range catalog() {
		if err := d.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}

	if _, err := d.Chat.Send(ctx, doctor.ID, auth.RoleDoctor, chat.SendInput{
		ReceiverID: ana.ID,
		Text:       "Hola Ana, ¿cómo va con la metformina? Cualquier molestia me escribe por acá.",
	}); err != nil {
		return fmt.Errorf("seed chat: %w", err)
	}

	d.Log.Info("seed: demo data loaded", map[string]any{
		"doctor":   doctor.Email,
		"patients": 2,
		"products": len(catalog()),
	})
	return nil
}

func catalog() []marketplace.Product {
	return []marketplace.Product{
		{
			ID: uuid.NewString(), Name: "Paracetamol 500mg x20",
			Description: "Analgésico y antipirético de venta libre.",
			Category:    "otc", PriceCents: 850, Stock: 120,
		},
		{
			ID: uuid.NewString(), Name: "Ibuprofeno 400mg x10",
			Description: "Antiinflamatorio para dolores leves.",
			Category:    "otc", PriceCents: 650, Stock: 80,
		},
		{
			ID: uuid.NewString(), Name: "Vitamina C 1g x30",
			Description: "Suplemento diario de vitamina C.",
			Category:    "vitamins", PriceCents: 1890, Stock: 60,
		},
		{
			ID: uuid.NewString(), Name: "Complejo B x60",
			Description: "Suplemento de vitaminas del complejo B.",
			Category:    "vitamins", PriceCents: 2290, Stock: 45,
		},
		{
			ID: uuid.NewString(), Name: "Botiquín primeros auxilios",
			Description: "Gasas, vendas, alcohol y curitas en estuche.",
			Category:    "first_aid", PriceCents: 4590, Stock: 25,
		},
		{
			ID: uuid.NewString(), Name: "Alcohol en gel 380ml",
			Description: "Desinfectante de manos al 70%.",
			Category:    "first_aid", PriceCents: 990, Stock: 150,
		},
		{
			ID: uuid.NewString(), Name: "Tensiómetro digital de brazo",
			Description: "Monitor de presión arterial con memoria para dos usuarios.",
			Category:    "devices", PriceCents: 15900, Stock: 18,
		},
		{
			ID: uuid.NewString(), Name: "Glucómetro + 25 tiras",
			Description: "Kit de medición de glucosa en sangre.",
			Category:    "devices", PriceCents: 12500, Stock: 22,
		},
		{
			ID: uuid.NewString(), Name: "Amoxicilina 500mg x12",
			Description: "Antibiótico. Requiere receta médica.",
			Category:    "otc", PriceCents: 1450, Stock: 40,
			RequiresPrescription: true,
		},
	}
}
