// Package httpapi serves the question-answering HTTP API over chi.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/domain"
	healthuc "github.com/district-tools/permitnav/internal/usecase/health"
	keyworduc "github.com/district-tools/permitnav/internal/usecase/keyword"
	queryuc "github.com/district-tools/permitnav/internal/usecase/query"
	usageuc "github.com/district-tools/permitnav/internal/usecase/usage"
)

// quotaExhaustedMessage is what end users see when the daily ceiling is hit.
// Deliberately friendly: the ceiling exists to keep the service free.
const quotaExhaustedMessage = "I've answered my limit of questions for today " +
	"to keep this service free. Please come back tomorrow!"

type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeQuotaExceeded       errorCode = "quota_exceeded"
	codeUpstreamUnavailable errorCode = "upstream_unavailable"
	codeInternalError       errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ask, search, usage, and health endpoints.
type Server struct {
	query         *queryuc.Service
	keyword       *keyworduc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query *queryuc.Service,
	keyword *keyworduc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:   query,
		keyword: keyword,
		usage:   usage,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		s.quotaExceededHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusBadGateway, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrEmptyIndex, http.StatusServiceUnavailable, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrIndexStale, http.StatusServiceUnavailable, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrIndexCorrupt, http.StatusServiceUnavailable, codeUpstreamUnavailable),
	}
	return s
}

// Routes mounts all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/ask", s.Ask)
	r.Post("/api/v1/search", s.Search)
	r.Get("/api/v1/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type askRequest struct {
	Question string `json:"question"`
}

type sourceResponse struct {
	PermitID   string  `json:"permit_id"`
	PermitName string  `json:"permit_name"`
	Agency     string  `json:"agency"`
	Score      float64 `json:"score"`
}

type askResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceResponse `json:"sources"`
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ans, err := s.query.Answer(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := make([]sourceResponse, len(ans.Sources()))
	for i, src := range ans.Sources() {
		sources[i] = sourceResponse{
			PermitID:   src.RecordID(),
			PermitName: src.Name(),
			Agency:     src.Agency(),
			Score:      src.Score(),
		}
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:  ans.Text(),
		Sources: sources,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type searchMatchResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Agency      string  `json:"agency"`
	Description string  `json:"description"`
	ApplyURL    string  `json:"apply_url,omitempty"`
	Score       float64 `json:"score"`
}

type searchResponse struct {
	Matches []searchMatchResponse `json:"matches"`
	Total   int                   `json:"total"`
}

// Search handles POST /api/v1/search — the keyword fallback. It costs no
// quota and no provider calls, so it stays available when /ask does not.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	if req.Limit != nil && *req.Limit <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be positive")
		return
	}

	svc := s.keyword
	if req.Limit != nil {
		svc = svc.WithLimit(*req.Limit)
	}
	matches := svc.Search(req.Query)

	items := make([]searchMatchResponse, len(matches))
	for i, m := range matches {
		items[i] = searchMatchResponse{
			ID:          m.Record.ID(),
			Name:        m.Record.Name(),
			Category:    m.Record.Category(),
			Agency:      m.Record.AgencyID(),
			Description: m.Record.Description(),
			ApplyURL:    m.Record.ApplyURL(),
			Score:       m.Score,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Matches: items,
		Total:   len(items),
	})
}

type usageResponse struct {
	Used      int64     `json:"used"`
	Ceiling   int64     `json:"ceiling"`
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.usage.Today(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Used:      report.Used,
		Ceiling:   report.Ceiling,
		Remaining: report.Remaining,
		ResetsAt:  report.ResetsAt.UTC(),
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrQuotaExceeded,
		domain.ErrRetrievalUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrEmptyIndex,
		domain.ErrIndexStale,
		domain.ErrIndexCorrupt,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// quotaExceededHandler answers 429 with the friendly message and the rollover
// time, so clients can tell users when to retry.
func (s *Server) quotaExceededHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return false
	}
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"code":      codeQuotaExceeded,
		"message":   quotaExhaustedMessage,
		"resets_at": s.usage.ResetsAt().UTC(),
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
