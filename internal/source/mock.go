package source

import (
	"context"

	"netneg/internal/model"
)

// Mock implements Source for testing.
type Mock struct {
	AdvertisementFunc func(ctx context.Context) ([]model.Component, error)
}

// Advertisement calls the configured AdvertisementFunc or returns a single
// unversioned component.
func (m *Mock) Advertisement(ctx context.Context) ([]model.Component, error) {
	if m.AdvertisementFunc != nil {
		return m.AdvertisementFunc(ctx)
	}
	return []model.Component{{ID: "mock:base"}}, nil
}
