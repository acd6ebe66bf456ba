package router

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/chart-console/internal/clinical"
	"github.com/wolfman30/chart-console/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/chart-console/internal/http/middleware"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Records            *handlers.RecordsHandler
	Chart              *handlers.ChartHandler
	Summary            *handlers.SummaryHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// OperatorJWTSecret protects the console routes; empty leaves them open.
	OperatorJWTSecret string

	// SummaryRatePerMinute limits summary generation per client; 0 disables it.
	SummaryRatePerMinute int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// One limiter shared by every route that reaches the summarizer.
	summaryLimit := httpmiddleware.RateLimit(cfg.SummaryRatePerMinute, cfg.SummaryRatePerMinute)
	generationLimit := limitSummaryGeneration(summaryLimit)

	// Public endpoints (health checks, metrics, summary service)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Summary != nil {
			public.With(summaryLimit).HandleFunc("/api/generate-summary", cfg.Summary.GenerateSummary)
		}
	})

	// Operator console routes
	r.Group(func(console chi.Router) {
		if cfg.OperatorJWTSecret != "" {
			console.Use(httpmiddleware.OperatorJWT(cfg.OperatorJWTSecret))
		}

		if cfg.Records != nil {
			console.Get("/patients", cfg.Records.SearchPatients)
			console.Post("/patients", cfg.Records.CreatePatient)
			console.Post("/practitioners", cfg.Records.CreatePractitioner)
			console.Post("/appointments", cfg.Records.CreateAppointment)
		}

		if cfg.Chart != nil {
			console.Route("/patients/{patientID}", func(patient chi.Router) {
				patient.With(generationLimit).Get("/sections/{category}", cfg.Chart.GetSection)
				patient.With(generationLimit).Post("/sections/{category}/toggle", cfg.Chart.ToggleSection)
				patient.Post("/appointments/{appointmentID}/cancel", cfg.Chart.CancelAppointment)
				patient.With(generationLimit).Get("/summary", cfg.Chart.GetSummary)
			})
			console.Route("/session", func(session chi.Router) {
				session.Get("/open-section", cfg.Chart.OpenSection)
				session.Delete("/open-section", cfg.Chart.CloseSection)
			})
		}
	})

	return r
}

// limitSummaryGeneration applies limit only to console requests that can start
// a summary: a toggle of the summary section, or a wait=true read of it.
// Plain cache reads stay unlimited so clients can poll a loading summary.
func limitSummaryGeneration(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if startsSummary(r) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func startsSummary(r *http.Request) bool {
	if name := chi.URLParam(r, "category"); name != "" {
		if category, err := clinical.ParseCategory(name); err != nil || category != clinical.CategorySummary {
			return false
		}
	}
	if r.Method == http.MethodPost {
		return true
	}
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return wait
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
