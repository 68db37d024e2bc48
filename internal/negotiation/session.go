package negotiation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"netneg/internal/model"
	"netneg/internal/source"
)

// Observer is notified after every negotiation that reached the core.
type Observer interface {
	ObserveNegotiation(result *Result, elapsed time.Duration)
}

// Negotiator runs handshakes between the local advertisement and a peer's.
type Negotiator struct {
	fetcher         AdvertisementFetcher
	source          source.Source
	protocolVersion string
	observer        Observer
	logger          *slog.Logger
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithObserver registers an Observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(n *Negotiator) { n.observer = o }
}

// WithLogger sets the logger used for per-negotiation log lines.
func WithLogger(l *slog.Logger) Option {
	return func(n *Negotiator) { n.logger = l }
}

// NewNegotiator creates a negotiator. fetcher may be nil when only inline
// advertisements are accepted.
func NewNegotiator(fetcher AdvertisementFetcher, src source.Source, protocolVersion string, opts ...Option) *Negotiator {
	n := &Negotiator{
		fetcher:         fetcher,
		source:          src,
		protocolVersion: protocolVersion,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ProtocolVersion returns the handshake revision this side speaks.
func (n *Negotiator) ProtocolVersion() string {
	return n.protocolVersion
}

// LocalAdvertisement returns the current local advertisement.
func (n *Negotiator) LocalAdvertisement(ctx context.Context) ([]model.Component, error) {
	components, err := n.source.Advertisement(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local advertisement: %w", err)
	}
	return components, nil
}

// NegotiateComponents reconciles the local advertisement (server side) with
// an inline client advertisement.
//
// A returned error means the handshake could not run: unsupported protocol
// revision (*VersionError), malformed client advertisement (*model.APIError)
// or an unavailable local advertisement. An incompatible but well-formed
// advertisement is not an error; inspect Session.Result.
func (n *Negotiator) NegotiateComponents(ctx context.Context, agentVersion string, client []model.Component) (*Session, error) {
	if err := validateProtocolVersion(n.protocolVersion, agentVersion); err != nil {
		return nil, err
	}
	if err := model.ValidateAdvertisement(client); err != nil {
		return nil, model.NewComponentError(err)
	}

	server, err := n.LocalAdvertisement(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := Negotiate(server, client)
	elapsed := time.Since(start)

	version := agentVersion
	if version == "" {
		version = n.protocolVersion
	}

	session := &Session{
		ID:              uuid.NewString(),
		ProtocolVersion: version,
		NegotiatedAt:    time.Now().UTC(),
		Result:          result,
	}

	if n.observer != nil {
		n.observer.ObserveNegotiation(result, elapsed)
	}
	n.log(ctx, session)

	return session, nil
}

// NegotiateProfile fetches the peer advertisement published at profileURL
// and negotiates against it. agentVersion overrides the revision declared
// in the fetched document when non-empty.
func (n *Negotiator) NegotiateProfile(ctx context.Context, profileURL, agentVersion string) (*Session, error) {
	if n.fetcher == nil {
		return nil, model.NewValidationError("profile", "advertisement fetching is disabled")
	}

	advert, err := n.fetcher.Fetch(ctx, profileURL)
	if err != nil {
		return nil, model.NewUpstreamError("advertisement", err)
	}

	if agentVersion == "" {
		agentVersion = advert.ProtocolVersion
	}

	session, err := n.NegotiateComponents(ctx, agentVersion, advert.Components)
	if err != nil {
		return nil, err
	}
	session.ProfileURL = profileURL
	return session, nil
}

func (n *Negotiator) log(ctx context.Context, s *Session) {
	n.logger.InfoContext(ctx, "negotiation completed",
		slog.String("negotiation_id", s.ID),
		slog.Bool("success", s.Result.Success),
		slog.Int("components", len(s.Result.Components)),
		slog.Int("failures", len(s.Result.Failures)))

	for _, f := range s.Result.SortedFailures() {
		n.logger.WarnContext(ctx, "component rejected",
			slog.String("negotiation_id", s.ID),
			slog.String("component", string(f.ID)),
			slog.String("code", string(f.Code)),
			slog.String("side", string(f.Side)))
	}
}
