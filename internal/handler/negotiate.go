package handler

import (
	"log/slog"
	"net/http"

	"netneg/internal/model"
	"netneg/internal/negotiation"
)

// negotiationRequest is the body of POST /negotiations. Profile is used
// only when Components is empty.
type negotiationRequest struct {
	ProtocolVersion string            `json:"protocol_version,omitempty"`
	Profile         string            `json:"profile,omitempty"`
	Components      []model.Component `json:"components"`
}

// handleNegotiate reconciles the posted client advertisement with the local one.
// POST /negotiations
func (h *Handler) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req negotiationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "negotiating",
		slog.Int("components", len(req.Components)),
		slog.Bool("has_profile", req.Profile != ""),
	)

	var session *negotiation.Session
	var err error
	if len(req.Components) == 0 && req.Profile != "" {
		session, err = h.negotiator.NegotiateProfile(ctx, req.Profile, req.ProtocolVersion)
	} else {
		session, err = h.negotiator.NegotiateComponents(ctx, req.ProtocolVersion, req.Components)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set(negotiation.NegotiationIDHeader, session.ID)
	if !session.Result.Success {
		h.writeFailures(w, model.NewNegotiationError(session.Result.Err()), session.Result.FailureViews())
		return
	}

	if header, err := negotiation.FormatNegotiatedHeader(session.Result.Components); err == nil {
		w.Header().Set(negotiation.NegotiatedComponentsHeader, header)
	}

	h.writeJSON(w, http.StatusOK, newSessionView(session))
}

// handleSession returns the session the handshake middleware negotiated
// from this request's headers.
// GET /session
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session := negotiation.GetSession(r.Context())
	if session == nil {
		h.writeError(w, &model.APIError{
			Code:       negotiation.ComponentAgentRequired,
			Message:    "no negotiated session on this request",
			StatusCode: http.StatusBadRequest,
			Err:        model.ErrInvalidRequest,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, newSessionView(session))
}
