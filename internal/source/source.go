// Package source defines where the local side's advertisement comes from.
// The negotiator asks its Source on every handshake, so implementations may
// reload or rotate the advertisement between calls.
package source

import (
	"context"
	"fmt"
	"sync"

	"netneg/internal/model"
)

// Source provides the local advertisement.
type Source interface {
	// Advertisement returns the components this peer supports. Callers own
	// the returned slice.
	Advertisement(ctx context.Context) ([]model.Component, error)
}

// Static serves a fixed advertisement that can be swapped at runtime.
type Static struct {
	mu         sync.RWMutex
	components []model.Component
}

// NewStatic validates components and returns a Source serving a copy of them.
func NewStatic(components []model.Component) (*Static, error) {
	s := &Static{}
	if err := s.Replace(components); err != nil {
		return nil, err
	}
	return s, nil
}

// Advertisement returns a copy of the current advertisement.
func (s *Static) Advertisement(ctx context.Context) ([]model.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.components), nil
}

// Replace swaps the advertisement. The old one stays in place if the new
// one is invalid.
func (s *Static) Replace(components []model.Component) error {
	if err := model.ValidateAdvertisement(components); err != nil {
		return fmt.Errorf("local advertisement: %w", err)
	}
	c := clone(components)
	s.mu.Lock()
	s.components = c
	s.mu.Unlock()
	return nil
}

// clone deep-copies components, including the version pointers.
func clone(components []model.Component) []model.Component {
	out := make([]model.Component, len(components))
	for i, c := range components {
		out[i] = c
		if c.PreferredVersion != nil {
			out[i].PreferredVersion = model.Opt(*c.PreferredVersion)
		}
		if c.MinVersion != nil {
			out[i].MinVersion = model.Opt(*c.MinVersion)
		}
		if c.MaxVersion != nil {
			out[i].MaxVersion = model.Opt(*c.MaxVersion)
		}
	}
	return out
}
