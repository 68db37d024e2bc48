package handler

import (
	"log/slog"
	"net/http"

	"netneg/internal/model"
	"netneg/internal/negotiation"
)

// handleAdvertisement publishes the local advertisement so peers can
// negotiate by URL. The same list is echoed in the Components header.
// GET /.well-known/components
func (h *Handler) handleAdvertisement(w http.ResponseWriter, r *http.Request) {
	components, err := h.negotiator.LocalAdvertisement(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if components == nil {
		components = []model.Component{}
	}

	if header, err := negotiation.FormatComponentsHeader(components); err == nil {
		w.Header().Set(negotiation.ComponentsHeader, header)
	} else {
		h.logger.Warn("components header not encodable", slog.String("error", err.Error()))
	}

	h.writeJSON(w, http.StatusOK, negotiation.Advertisement{
		ProtocolVersion: h.negotiator.ProtocolVersion(),
		Components:      components,
	})
}
