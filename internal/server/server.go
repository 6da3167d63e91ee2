package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/analysis"
	"leukemia-care-portal/internal/appointment"
	"leukemia-care-portal/internal/auth"
	"leukemia-care-portal/internal/chat"
	"leukemia-care-portal/internal/config"
	"leukemia-care-portal/internal/consent"
	"leukemia-care-portal/internal/dashboard"
	"leukemia-care-portal/internal/platform/logger"
	redisclient "leukemia-care-portal/internal/platform/redis"
	"leukemia-care-portal/internal/platform/session"
	"leukemia-care-portal/internal/platform/telegram"
	"leukemia-care-portal/internal/predict"
	"leukemia-care-portal/internal/preference"
	"leukemia-care-portal/internal/report"
)

const (
	consentBlobBaseURL  = "/api/patients/consent/blobs"
	appointmentCacheTTL = 30 * time.Second
)

// App is the wired portal: the HTTP handler plus the resources that must be
// released on shutdown.
type App struct {
	Handler http.Handler

	consent consent.Service
	redis   *redisclient.Client
	logger  zerolog.Logger
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	Predict predict.Client
	Store   session.Store
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	app := &App{logger: log}

	client := opts.Predict
	if client == nil {
		client = predict.NewClient(cfg.PredictionAPIURL, cfg.PredictionTimeout)
	}

	store := opts.Store
	if store == nil {
		if cfg.RedisURL != "" {
			rc, err := redisclient.NewClient(ctx, cfg.RedisURL)
			if err != nil {
				return nil, err
			}
			app.redis = rc
			store = session.NewRedisStore(rc, "portal:")
			log.Info().Msg("session store: redis")
		} else {
			store = session.NewMemoryStore()
			log.Info().Msg("session store: memory")
		}
	}

	tg := telegram.NewClient(cfg.TelegramBotToken)
	if !tg.Enabled() {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, doctor notifications are disabled")
	}

	analysisSvc, err := analysis.NewService(AnalysisConfig(cfg), client, log)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("analysis pipeline: %w", err)
	}

	src := dashboard.MockSource{}
	reportSvc := report.NewService(report.Config{
		PIN:          cfg.ReportPIN,
		FontPath:     cfg.ReportFontPath,
		DoctorChatID: cfg.DoctorChatID,
	}, src, tg, log)

	blobs := consent.NewMemoryBlobStore(consentBlobBaseURL, cfg.ConsentMaxBytes)
	app.consent = consent.NewService(consent.ServiceConfig{
		Recorder: consent.Options{Timeslice: cfg.ConsentTimeslice, MaxBytes: cfg.ConsentMaxBytes},
		IdleTTL:  cfg.ConsentIdleTTL,
	}, blobs, reportSvc, log)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(auth.StaticCredentials{
		auth.RoleDoctor:  {Email: cfg.DoctorEmail, Password: cfg.DoctorPassword},
		auth.RolePatient: {Email: cfg.PatientEmail, Password: cfg.PatientPassword},
		auth.RoleFamily:  {Email: cfg.FamilyEmail, Password: cfg.FamilyPassword},
	}, tokens)

	appointmentSvc := appointment.NewService(appointment.Config{
		CacheTTL:   appointmentCacheTTL,
		SessionTTL: cfg.TokenTTL,
	}, client, store, telegram.ChatNotifier{Client: tg, ChatID: cfg.DoctorChatID}, log)

	chatSvc := chat.NewService(chat.NewRepository(store, cfg.TokenTTL), client, log)

	h := handlers{
		auth:        auth.NewHandler(authSvc),
		preference:  preference.NewHandler(preference.NewService(store, cfg.TokenTTL)),
		analysis:    analysis.NewHandler(analysisSvc, 0),
		appointment: appointment.NewHandler(appointmentSvc),
		consent:     consent.NewHandler(app.consent, 0),
		dashboard:   dashboard.NewHandler(src),
		report:      report.NewHandler(reportSvc, app.consent),
		chat:        chat.NewHandler(chatSvc),
	}
	app.Handler = h.router(cfg, log, tokens)
	return app, nil
}

// AnalysisConfig maps the ANALYSIS_* settings onto the pipeline config.
func AnalysisConfig(cfg *config.Config) analysis.Config {
	now := time.Now().UnixNano()
	ac := analysis.Config{
		Concurrent:               cfg.AnalysisConcurrent,
		FinancialBurdenThreshold: cfg.FinancialBurdenThreshold,
	}
	if cfg.AnalysisSynthesizeFields {
		ac.Fields = analysis.NewRandomFieldSource(now)
	} else {
		ac.Fields = analysis.FixedFieldSource{
			OvertreatmentRisk: cfg.AnalysisOvertreatmentRisk,
			Compliance:        cfg.AnalysisCompliance,
		}
	}
	if cfg.AnalysisJitter > 0 {
		ac.Jitter = analysis.NewUniformJitter(cfg.AnalysisJitter, now+1)
	}
	return ac
}

type handlers struct {
	auth        *auth.Handler
	preference  *preference.Handler
	analysis    *analysis.Handler
	appointment *appointment.Handler
	consent     *consent.Handler
	dashboard   *dashboard.Handler
	report      *report.Handler
	chat        *chat.Handler
}

func (h handlers) router(cfg *config.Config, log zerolog.Logger, tokens *auth.TokenIssuer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		auth.RegisterRoutes(r, h.auth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(tokens))

			r.Route("/preferences", func(r chi.Router) {
				preference.RegisterRoutes(r, h.preference)
			})

			r.Route("/doctor", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleDoctor))
				r.Get("/dashboard", h.dashboard.Doctor)
				analysis.RegisterRoutes(r, h.analysis)
				appointment.RegisterDoctorRoutes(r, h.appointment)
			})

			r.Route("/patients", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RolePatient))
				r.Get("/dashboard", h.dashboard.Patient)
				report.RegisterRoutes(r, h.report)
				r.Route("/consent", func(r chi.Router) {
					consent.RegisterRoutes(r, h.consent)
				})
			})

			r.Route("/family", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleFamily))
				r.Get("/dashboard", h.dashboard.Family)
				appointment.RegisterFamilyRoutes(r, h.appointment)
				chat.RegisterRoutes(r, h.chat)
			})
		})
	})
	return r
}

// Close stops consent recording and releases Redis.
func (a *App) Close(ctx context.Context) {
	if a.consent != nil {
		a.consent.Shutdown(ctx)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close redis")
		}
	}
}
