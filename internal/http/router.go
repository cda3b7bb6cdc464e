package router

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/http/handlers"
	"github.com/rtepass1986/reallifeberlin/internal/metrics"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Contacts  *handlers.ContactHandler
	Tasks     *handlers.TaskHandler
	Workflows *handlers.WorkflowHandler
	KPIs      *handlers.KPIHandler
}

type Options struct {
	Authenticator handlers.Authenticator
	Metrics       *metrics.Metrics // nil disables /metrics and request counting
	CORSOrigins   []string
	Logger        *slog.Logger
}

func New(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()
	auth := handlers.RequireAuth(opts.Authenticator)
	protected := func(f http.HandlerFunc) http.Handler { return auth(f) }

	mux.HandleFunc("GET /health", handlers.Health)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("GET /api/auth/planning-center/authorize", h.Auth.Authorize)
	mux.HandleFunc("POST /api/auth/planning-center/callback", h.Auth.Callback)
	mux.Handle("GET /api/auth/me", protected(h.Auth.Me))
	mux.Handle("POST /api/users", protected(h.Auth.CreateUser))

	mux.Handle("POST /api/contacts", protected(h.Contacts.Create))
	mux.Handle("GET /api/contacts", protected(h.Contacts.List))
	mux.Handle("GET /api/contacts/{id}", protected(h.Contacts.Get))
	mux.Handle("PUT /api/contacts/{id}", protected(h.Contacts.Update))
	mux.Handle("DELETE /api/contacts/{id}", protected(h.Contacts.Delete))

	mux.Handle("GET /api/tasks", protected(h.Tasks.List))
	mux.Handle("GET /api/tasks/{id}", protected(h.Tasks.Get))
	mux.Handle("PATCH /api/tasks/{id}/status", protected(h.Tasks.UpdateStatus))

	mux.Handle("GET /api/workflows", protected(h.Workflows.List))
	mux.Handle("GET /api/workflows/{id}", protected(h.Workflows.Get))
	mux.Handle("GET /api/dashboard", protected(h.Workflows.Dashboard))
	mux.Handle("GET /api/dashboard/kpi-trends/{kpiId}", protected(h.KPIs.Trends))

	mux.Handle("GET /api/mission-points", protected(h.KPIs.ListMissionPoints))
	mux.Handle("GET /api/mission-points/{id}", protected(h.KPIs.GetMissionPoint))
	mux.Handle("POST /api/mission-points", protected(h.KPIs.CreateMissionPoint))
	mux.Handle("PUT /api/mission-points/{id}", protected(h.KPIs.UpdateMissionPoint))
	mux.Handle("DELETE /api/mission-points/{id}", protected(h.KPIs.DeleteMissionPoint))

	mux.Handle("GET /api/kpis", protected(h.KPIs.ListKPIs))
	mux.Handle("GET /api/kpis/{id}", protected(h.KPIs.GetKPI))
	mux.Handle("POST /api/kpis", protected(h.KPIs.CreateKPI))
	mux.Handle("PUT /api/kpis/{id}", protected(h.KPIs.UpdateKPI))
	mux.Handle("DELETE /api/kpis/{id}", protected(h.KPIs.DeleteKPI))
	mux.Handle("POST /api/kpis/{id}/records", protected(h.KPIs.AddRecord))
	mux.Handle("GET /api/kpis/{id}/records", protected(h.KPIs.ListRecords))

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = cors(opts.CORSOrigins, handler)
	handler = logRequests(logger.With("component", "http"), handler)
	if opts.Metrics != nil {
		handler = opts.Metrics.InstrumentHandler(handler)
	}
	return handler
}

// cors answers preflight requests and echoes allowed origins. "*" allows any.
func cors(origins []string, next http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(origins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
				}, ", "))
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
