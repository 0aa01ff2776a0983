package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gringalabs/leadscore/internal/config"
	"github.com/gringalabs/leadscore/internal/database"
	"github.com/gringalabs/leadscore/internal/funnel"
	"github.com/gringalabs/leadscore/internal/metrics"
	"github.com/gringalabs/leadscore/internal/models"
	"github.com/gringalabs/leadscore/internal/storage"
	"github.com/gringalabs/leadscore/internal/survey"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps HTTP handlers and funnel services.
type Server struct {
	ingestService    *funnel.IngestService
	dashboardService *funnel.DashboardService
	logger           *zap.Logger
	config           *config.Config
	metrics          *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	var store storage.Store
	if deps.DB != nil {
		store = storage.NewPostgresStore(deps.DB.Pool)
	} else {
		store = storage.NewMemoryStore()
	}

	var cache *funnel.Cache
	if deps.Redis != nil {
		cache = funnel.NewCache(deps.Redis.Client, deps.Config.Redis.CacheTTL, deps.Logger, deps.Metrics)
	}

	ingestSvc := funnel.NewIngestService(store, deps.Logger, deps.Metrics, cache, deps.Config.Checkout.BaseURL)
	dashboardSvc := funnel.NewDashboardService(store, deps.Logger, deps.Metrics, cache)

	s := &Server{
		ingestService:    ingestSvc,
		dashboardService: dashboardSvc,
		logger:           deps.Logger,
		config:           deps.Config,
		metrics:          deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Ingest endpoints
	mux.HandleFunc("/api/track-click", s.handleTrackClick)
	mux.HandleFunc("/api/checkout-intent", s.handleCheckoutIntent)
	mux.HandleFunc("/webhook/hotmart", s.handleHotmartWebhook)
	mux.HandleFunc("/survey", s.handleSurvey)
	mux.HandleFunc("/webhook/formulario-obrigado", s.handleSurvey)

	// Dashboard
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/dashboard/rows", s.handleDashboardRows)
	mux.HandleFunc("/api/dashboard.csv", s.handleDashboardCSV)

	// Attribution report
	mux.HandleFunc("/report", s.handleReport)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Ingest ----

func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := parsePayload(r)
	if err != nil {
		s.errorResponse(w, "invalid payload", http.StatusBadRequest)
		return
	}

	session, err := s.ingestService.RegisterClick(r.Context(), payload)
	if err != nil {
		s.ingestError(w, "track-click", err)
		return
	}

	s.jsonResponse(w, map[string]any{"ok": true, "sessionId": session.SessionID})
}

func (s *Server) handleCheckoutIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := parsePayload(r)
	if err != nil {
		s.errorResponse(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := s.ingestService.RegisterCheckoutIntent(r.Context(), payload)
	if err != nil {
		s.ingestError(w, "checkout-intent", err)
		return
	}

	s.jsonResponse(w, map[string]any{
		"ok":          true,
		"checkoutUrl": result.CheckoutURL,
		"sessionId":   result.SessionID,
	})
}

func (s *Server) handleHotmartWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := parsePayload(r)
	if err != nil {
		s.errorResponse(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if _, err := s.ingestService.IngestPurchase(r.Context(), payload); err != nil {
		s.ingestError(w, "hotmart", err)
		return
	}

	s.jsonResponse(w, map[string]any{"ok": true})
}

func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := parsePayload(r)
	if err != nil {
		s.errorResponse(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if _, err := s.ingestService.IngestSurvey(r.Context(), payload); err != nil {
		s.ingestError(w, "survey", err)
		return
	}

	s.jsonResponse(w, map[string]any{"ok": true})
}

// ---- Dashboard ----

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dashboard, err := s.dashboardService.Dashboard(r.Context(), parseFilters(r.URL.Query()))
	if err != nil {
		s.logger.Error("failed to build dashboard", zap.Error(err))
		s.errorResponse(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, dashboard)
}

func (s *Server) handleDashboardRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.dashboardService.LeadRows(r.Context(), parseFilters(r.URL.Query()))
	if err != nil {
		s.logger.Error("failed to load lead rows", zap.Error(err))
		s.errorResponse(w, "failed to load rows", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{"rows": rows})
}

func (s *Server) handleDashboardCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	csv, err := s.dashboardService.CSV(r.Context(), parseFilters(r.URL.Query()))
	if err != nil {
		s.logger.Error("failed to export csv", zap.Error(err))
		s.errorResponse(w, "failed to export csv", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard-filtrado.csv"`)
	w.Write(csv)
}

// ---- Attribution report ----

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.dashboardService.Report(r.Context())
	if err != nil {
		s.logger.Error("failed to build report", zap.Error(err))
		s.errorResponse(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, report)
}

// ---- Helper Methods ----

// parseFilters maps the dashboard query string onto DashboardFilters.
// Validation and trimming happen downstream in the storage layer.
func parseFilters(q url.Values) models.DashboardFilters {
	return models.DashboardFilters{
		StartDate:                 q.Get("startDate"),
		EndDate:                   q.Get("endDate"),
		Experience:                q.Get("experience"),
		LanguageSkill:             q.Get("languageSkill"),
		EnglishLevel:              q.Get("englishLevel"),
		HasInternationalInterview: q.Get("hasInternationalInterview"),
		InternationalInterest:     q.Get("internationalInterest"),
		SalaryRange:               q.Get("salaryRange"),
		CampaignID:                q.Get("campaignId"),
		AdsetID:                   q.Get("adsetId"),
		CreativeID:                q.Get("creativeId"),
	}
}

// parsePayload reads the request body as JSON, falling back to
// form-urlencoded. Webhook senders use both, not always with the right
// Content-Type.
func parsePayload(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/json") {
		return decodeJSONPayload(body)
	}
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return decodeFormPayload(body)
	}

	if payload, err := decodeJSONPayload(body); err == nil {
		return payload, nil
	}
	return decodeFormPayload(body)
}

func decodeJSONPayload(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func decodeFormPayload(body []byte) (map[string]any, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any, len(values))
	for key := range values {
		payload[key] = values.Get(key)
	}
	return payload, nil
}

// ingestError distinguishes malformed payloads from internal failures and
// records the rejection reason.
func (s *Server) ingestError(w http.ResponseWriter, endpoint string, err error) {
	var missingField *survey.MissingFieldError
	switch {
	case errors.Is(err, funnel.ErrMissingBuyerEmail),
		errors.Is(err, funnel.ErrMissingTransactionID),
		errors.Is(err, funnel.ErrMissingLandingURL),
		errors.Is(err, funnel.ErrMissingSessionID):
		if s.metrics != nil {
			s.metrics.RecordIngestFailure(endpoint, err.Error())
		}
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &missingField):
		if s.metrics != nil {
			s.metrics.RecordIngestFailure(endpoint, "missing_survey_field")
		}
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("ingest failed", zap.String("endpoint", endpoint), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
