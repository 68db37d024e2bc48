// Package handler provides HTTP handlers for the negotiation service API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"netneg/internal/model"
	"netneg/internal/negotiation"
	"netneg/internal/observability"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	negotiator *negotiation.Negotiator
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a new Handler. metrics may be nil, in which case /metrics is
// not served.
func New(negotiator *negotiation.Negotiator, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		negotiator: negotiator,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Discovery endpoint
	mux.HandleFunc("GET /.well-known/components", h.handleAdvertisement)

	// Explicit negotiation with the advertisement in the body
	mux.HandleFunc("POST /negotiations", h.handleNegotiate)

	// Session negotiated by the handshake middleware from request headers
	mux.HandleFunc("GET /session", h.handleSession)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Handshake revision errors map to 400 with their own code.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeFailures(w, err, nil)
}

// writeFailures is writeError with the per-component failures of a
// rejected negotiation attached.
func (h *Handler) writeFailures(w http.ResponseWriter, err error, failures []negotiation.FailureView) {
	var apiErr *model.APIError
	var verErr *negotiation.VersionError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &verErr):
		apiErr = model.NewUnsupportedProtocolError(verErr.Code, verErr.Message)
	default:
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
		Failures: failures,
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error    errorBody                 `json:"error"`
	Failures []negotiation.FailureView `json:"failures,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// SessionView is the wire rendering of a negotiated session, shared by the
// REST and MCP transports.
type SessionView struct {
	NegotiationID   string                      `json:"negotiation_id"`
	ProtocolVersion string                      `json:"protocol_version"`
	ProfileURL      string                      `json:"profile_url,omitempty"`
	NegotiatedAt    string                      `json:"negotiated_at"`
	Success         bool                        `json:"success"`
	Components      []model.NegotiatedComponent `json:"components"`
}

func newSessionView(s *negotiation.Session) *SessionView {
	components := s.Result.Components
	if components == nil {
		components = []model.NegotiatedComponent{}
	}
	return &SessionView{
		NegotiationID:   s.ID,
		ProtocolVersion: s.ProtocolVersion,
		ProfileURL:      s.ProfileURL,
		NegotiatedAt:    s.NegotiatedAt.Format(time.RFC3339Nano),
		Success:         s.Result.Success,
		Components:      components,
	}
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
