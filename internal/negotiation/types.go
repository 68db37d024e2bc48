// Package negotiation reconciles the component advertisements of two peers.
//
// Negotiate is the transport-agnostic core: a pure function from the server's
// and the client's advertisements to a Result. The rest of the package is the
// handshake plumbing around it: a Negotiator that pairs the local advertisement
// with a peer's, a fetcher for advertisements published by URL, structured-field
// header codecs, and HTTP middleware that stores the negotiated Session in the
// request context.
package negotiation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"netneg/internal/model"
)

// Side identifies which peer a failure is reported against.
type Side string

const (
	SideServer Side = "server"
	SideClient Side = "client"
)

// FailureCode classifies why a component could not be negotiated.
type FailureCode string

const (
	// Structural absence: a mandatory component has no counterpart.
	FailureMissingOnServer FailureCode = "missing-on-server"
	FailureMissingOnClient FailureCode = "missing-on-client"

	// Constraint violations: both sides declared the component.
	FailurePreferredVersionRequired   FailureCode = "preferred-version-required"
	FailurePreferredVersionOutOfRange FailureCode = "preferred-version-out-of-range"
	FailureRangeNoOverlap             FailureCode = "range-no-overlap"
)

// Failure is the structured reason one component failed to negotiate.
// Fields beyond Code, Side and ID are populated according to Code.
type Failure struct {
	Code FailureCode       `json:"code"`
	Side Side              `json:"side"`
	ID   model.ComponentID `json:"id"`

	// Range is the acceptable range of the component identified by ID.
	Range *model.Range `json:"range,omitempty"`

	// PeerID and PeerRange describe the other component of a range-no-overlap.
	PeerID    model.ComponentID `json:"peer_id,omitempty"`
	PeerRange *model.Range      `json:"peer_range,omitempty"`

	// Version is the peer's preferred version that fell outside Range.
	Version *int `json:"version,omitempty"`
}

// Error renders the failure in English. Callers wanting other presentations
// should switch on Code and read the structured fields instead.
func (f *Failure) Error() string {
	switch f.Code {
	case FailureMissingOnServer:
		return fmt.Sprintf("%s: required by the client but not present on the server", f.ID)
	case FailureMissingOnClient:
		return fmt.Sprintf("%s: required by the server but not present on the client", f.ID)
	case FailurePreferredVersionRequired:
		return fmt.Sprintf("%s: accepts versions %s but the %s declared no version", f.ID, f.Range, f.Side)
	case FailurePreferredVersionOutOfRange:
		return fmt.Sprintf("%s: %s version %d is outside the accepted range %s", f.ID, f.Side, *f.Version, f.Range)
	case FailureRangeNoOverlap:
		return fmt.Sprintf("%s: range %s does not overlap %s range %s of %s", f.ID, f.Range, f.Side, f.PeerRange, f.PeerID)
	default:
		return fmt.Sprintf("%s: %s", f.ID, f.Code)
	}
}

// Result is the outcome of one negotiation.
// Components is non-empty only when Success is true; Failures is non-empty
// only when Success is false.
type Result struct {
	Success    bool                           `json:"success"`
	Components []model.NegotiatedComponent    `json:"components"`
	Failures   map[model.ComponentID]*Failure `json:"-"`
}

// Has reports whether id was agreed.
func (r *Result) Has(id model.ComponentID) bool {
	for _, c := range r.Components {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Version returns the agreed version of id. ok is false when id was not
// agreed or was agreed without a version.
func (r *Result) Version(id model.ComponentID) (v int, ok bool) {
	for _, c := range r.Components {
		if c.ID == id && c.Version != nil {
			return *c.Version, true
		}
	}
	return 0, false
}

// SortedFailures returns the failures ordered by component id.
func (r *Result) SortedFailures() []*Failure {
	out := make([]*Failure, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Err returns nil on success, otherwise an *Error listing every failure.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Failures: r.SortedFailures()}
}

// Error aggregates the failures of an unsuccessful negotiation.
type Error struct {
	Failures []*Failure
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return "negotiation failed: " + strings.Join(msgs, "; ")
}

// Session is a completed handshake: the negotiation result plus the
// metadata the transport keeps for the lifetime of the connection.
type Session struct {
	ID              string    `json:"negotiation_id"`
	ProtocolVersion string    `json:"protocol_version"`
	ProfileURL      string    `json:"profile_url,omitempty"`
	NegotiatedAt    time.Time `json:"negotiated_at"`
	Result          *Result   `json:"-"`
}

// contextKey is the type for context values to avoid collisions
type contextKey string

// SessionContextKey is the context key for storing the negotiated *Session.
const SessionContextKey contextKey = "netneg.session"

// Error codes surfaced by the handshake layer.
const (
	ComponentAgentRequired     = "component_agent_required"
	ProtocolVersionInvalid     = "protocol_version_invalid"
	ProtocolVersionUnsupported = "protocol_version_unsupported"
	NegotiationFailed          = "negotiation_failed"
)

// FailureView is the wire rendering of a Failure with its English message.
type FailureView struct {
	*Failure
	Message string `json:"message"`
}

// FailureViews returns the failures sorted by id, ready for JSON encoding.
func (r *Result) FailureViews() []FailureView {
	sorted := r.SortedFailures()
	out := make([]FailureView, len(sorted))
	for i, f := range sorted {
		out[i] = FailureView{Failure: f, Message: f.Error()}
	}
	return out
}
