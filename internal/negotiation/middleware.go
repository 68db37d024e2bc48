package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"netneg/internal/model"
)

// Middleware creates HTTP middleware that negotiates components per request.
// The peer advertises either inline with a Components header or by URL with
// a Component-Agent header; Component-Agent may also carry the handshake
// revision for an inline advertisement. The *Session is stored in the
// request context for handlers.
//
// Requests with neither header are rejected with 400 Bad Request.
func Middleware(negotiator *Negotiator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			inline := r.Header.Get(ComponentsHeader)
			agentHeader := r.Header.Get(ComponentAgentHeader)
			if inline == "" && agentHeader == "" {
				writeNegotiationError(w, http.StatusBadRequest, ComponentAgentRequired,
					"Components or Component-Agent header is required", nil)
				return
			}

			var agent AgentInfo
			if agentHeader != "" {
				var err error
				agent, err = ParseComponentAgentHeader(agentHeader)
				if err != nil {
					logger.Warn("invalid Component-Agent header",
						slog.String("header", agentHeader),
						slog.String("error", err.Error()))
					writeNegotiationError(w, http.StatusBadRequest, ComponentAgentRequired,
						"Invalid Component-Agent header: "+err.Error(), nil)
					return
				}
			}

			if inline == "" && agent.ProfileURL == "" {
				writeNegotiationError(w, http.StatusBadRequest, ComponentAgentRequired,
					"Invalid Component-Agent header: profile key not found in Component-Agent header", nil)
				return
			}

			var session *Session
			var err error
			if inline != "" {
				var components []model.Component
				components, err = ParseComponentsHeader(inline)
				if err != nil {
					writeNegotiationError(w, http.StatusBadRequest, "invalid_component",
						"Invalid Components header: "+err.Error(), nil)
					return
				}
				session, err = negotiator.NegotiateComponents(r.Context(), agent.ProtocolVersion, components)
			} else {
				session, err = negotiator.NegotiateProfile(r.Context(), agent.ProfileURL, agent.ProtocolVersion)
			}
			if err != nil {
				logger.Warn("handshake rejected",
					slog.String("profile_url", agent.ProfileURL),
					slog.String("error", err.Error()))
				WriteHandshakeError(w, err)
				return
			}

			w.Header().Set(NegotiationIDHeader, session.ID)
			if !session.Result.Success {
				writeNegotiationError(w, http.StatusConflict, NegotiationFailed,
					session.Result.Err().Error(), session.Result.FailureViews())
				return
			}

			if h, err := FormatNegotiatedHeader(session.Result.Components); err == nil {
				w.Header().Set(NegotiatedComponentsHeader, h)
			}

			reqCtx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	}
}

// isExemptPath returns true for paths that don't require a handshake.
// Discovery must work before negotiation, /negotiations carries its
// advertisement in the body, and the rest is infrastructure.
func isExemptPath(path string) bool {
	switch {
	case path == "/.well-known/components":
		return true
	case path == "/negotiations":
		return true
	case path == "/health" || path == "/healthz" || path == "/metrics":
		return true
	case path == "/mcp" || strings.HasPrefix(path, "/mcp/"):
		return true
	default:
		return false
	}
}

// WriteHandshakeError maps an error returned by the Negotiator to a JSON
// error response.
func WriteHandshakeError(w http.ResponseWriter, err error) {
	var verErr *VersionError
	if errors.As(err, &verErr) {
		writeNegotiationError(w, http.StatusBadRequest, verErr.Code, verErr.Message, nil)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeNegotiationError(w, apiErr.StatusCode, apiErr.Code, apiErr.Message, nil)
		return
	}

	writeNegotiationError(w, http.StatusInternalServerError, "internal_error",
		"an internal error occurred", nil)
}

// writeNegotiationError writes the standard error envelope, with the
// per-component failures attached when negotiation itself failed.
func writeNegotiationError(w http.ResponseWriter, status int, code, message string, failures []FailureView) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Failures []FailureView `json:"failures,omitempty"`
	}{Failures: failures}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// GetSession retrieves the negotiated session from request context.
// Returns nil if negotiation was skipped (e.g., exempt path) or not set.
func GetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionContextKey).(*Session)
	return s
}

// NegotiateForMCP performs negotiation for MCP transport.
// MCP doesn't use middleware - each tool call negotiates explicitly, either
// with an inline advertisement or with the URL of a published one.
func NegotiateForMCP(
	ctx context.Context,
	negotiator *Negotiator,
	agentVersion, profileURL string,
	components []model.Component,
) (*Session, error) {
	profileURL = strings.TrimSpace(profileURL)
	if len(components) == 0 && profileURL == "" {
		return nil, &MissingAgentError{
			Code:    ComponentAgentRequired,
			Message: "components or meta.profile is required in MCP requests",
		}
	}

	if len(components) > 0 {
		return negotiator.NegotiateComponents(ctx, agentVersion, components)
	}
	return negotiator.NegotiateProfile(ctx, profileURL, agentVersion)
}

// MissingAgentError is returned when a request carries no advertisement.
type MissingAgentError struct {
	Code    string
	Message string
}

func (e *MissingAgentError) Error() string {
	return e.Message
}
