package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strings"

	"medisync/internal/adapters/assistant/fallback"
	"medisync/internal/adapters/assistant/gemini"
	"medisync/internal/adapters/assistant/static"
	mem "medisync/internal/adapters/storage/memory"
	pg "medisync/internal/adapters/storage/postgres"
	"medisync/internal/adapters/storage/sqlite"
	"medisync/internal/domain/chat"
	"medisync/internal/domain/marketplace"
	"medisync/internal/domain/medications"
	"medisync/internal/domain/users"
	"medisync/internal/domain/wellness"
	"medisync/internal/middleware"
	"medisync/internal/platform/logger"
	"medisync/internal/ports/assistant"
	"medisync/internal/ports/auth"
	"medisync/internal/seed"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "medisync/docs" // registro del swagger spec generado
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, intenta DB_DSN y cae a in-memory.
	DB *sql.DB

	// Opcional: path del archivo SQLite para el chat (CHAT_DB_PATH).
	// Solo aplica con repos in-memory; con Postgres el chat va a la misma DB.
	ChatDBPath string

	// Opcional: asistente a usar (para tests). Si es nil se arma desde env.
	Assistant assistant.MedicalAssistant

	// SeedDemo carga datos de demo al arrancar (cuentas, catálogo, etc.).
	SeedDemo bool

	Log logger.Logger
}

// App agrupa el handler HTTP y los services que necesita el resto del
// proceso (scheduler, shutdown).
type App struct {
	Handler http.Handler
	Meds    *medications.Service

	closers []func() error
}

func (a *App) Close() error {
	var first error
	for _, fn := range a.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func New(opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewFromEnv()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	app := &App{}

	var (
		userRepo    users.Repository
		medRepo     medications.Repository
		doseRepo    medications.DoseLogRepository
		chatRepo    chat.Repository
		productRepo marketplace.ProductRepository
	)

	// Si no te pasan DB explícita, intenta por env.
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err != nil {
				return nil, err
			}
			if err := pg.InitSchema(context.Background(), opened); err != nil {
				_ = opened.Close()
				return nil, err
			}
			db = opened
			app.closers = append(app.closers, opened.Close)
		}
	}

	if db != nil {
		userRepo = pg.NewUsersRepo(db)
		medRepo = pg.NewMedicationsRepo(db)
		doseRepo = pg.NewDoseLogsRepo(db)
		chatRepo = pg.NewChatRepo(db)
		productRepo = pg.NewProductsRepo(db)
	} else {
		userRepo = mem.NewUserRepo()
		medRepo = mem.NewMedicationRepo()
		doseRepo = mem.NewDoseLogRepo()
		productRepo = mem.NewProductRepo()

		// El chat puede persistir en SQLite aun con el resto in-memory.
		chatPath := opts.ChatDBPath
		if chatPath == "" {
			chatPath = os.Getenv("CHAT_DB_PATH")
		}
		if chatPath != "" {
			store, err := sqlite.NewStore(chatPath)
			if err != nil {
				return nil, err
			}
			if err := store.InitSchema(); err != nil {
				_ = store.Close()
				return nil, err
			}
			chatRepo = sqlite.NewChatRepo(store)
			app.closers = append(app.closers, store.Close)
		} else {
			chatRepo = mem.NewChatRepo()
		}
	}

	// Carritos: siempre in-memory (estado de sesión).
	cartRepo := mem.NewCartRepo()

	assist := opts.Assistant
	if assist == nil {
		assist = buildAssistant(log)
	}

	usersSvc := users.NewService(userRepo)
	medsSvc := medications.NewService(medRepo, doseRepo)
	chatSvc := chat.NewService(chatRepo)
	marketSvc := marketplace.NewService(productRepo, cartRepo, assist)
	wellnessSvc := wellness.NewService(usersSvc, medsSvc, chatSvc, assist)

	users.RegisterRoutes(r, usersSvc)
	medications.RegisterRoutes(r, medsSvc, chatSvc, assist, log)
	chat.RegisterRoutes(r, chatSvc)
	marketplace.RegisterRoutes(r, marketSvc, log)
	wellness.RegisterRoutes(r, wellnessSvc)

	if opts.SeedDemo {
		err := seed.Run(context.Background(), seed.Deps{
			Users:    usersSvc,
			Meds:     medsSvc,
			Chat:     chatSvc,
			Products: productRepo,
			Log:      log,
		})
		if err != nil {
			return nil, err
		}
	}

	app.Handler = r
	app.Meds = medsSvc
	return app, nil
}

// buildAssistant arma el asistente real desde env con fallback a las
// respuestas estáticas; sin API key queda solo el estático.
func buildAssistant(log logger.Logger) assistant.MedicalAssistant {
	canned := static.New()

	cfg := gemini.ConfigFromEnv()
	client := gemini.NewClient(cfg)
	if !client.IsConfigured() {
		log.Warn("assistant: no API key configured, using canned responses", nil)
		return canned
	}

	return fallback.New(client, canned, log)
}

// SeedFromEnv interpreta SEED_DEMO_DATA ("true"/"1"). Default: true
// solo cuando no hay DB externa configurada.
func SeedFromEnv() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_DEMO_DATA")))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return os.Getenv("DB_DSN") == ""
	}
}
