// Package reconcile computes the delta between the advertisement a peer is
// currently serving and the one it is about to serve. The negotiator itself
// is stateless; the diff exists so a reload can report exactly which
// components appeared, disappeared or changed constraints.
package reconcile

import (
	"sort"

	"netneg/internal/model"
)

// AdvertisementDiff describes how a desired advertisement differs from the
// current one. Every slice is sorted by component id.
type AdvertisementDiff struct {
	ToAdd    []model.Component // In desired but not current
	ToRemove []model.Component // In current but not desired
	ToUpdate []ComponentUpdate // In both with different constraints
}

// ComponentUpdate pairs the old and new declaration of one component.
type ComponentUpdate struct {
	ID  model.ComponentID
	Old model.Component
	New model.Component
}

// IsEmpty returns true if the advertisements are equivalent.
func (d *AdvertisementDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// DiffAdvertisements computes the delta between current and desired.
// Matching is by component id; list order is not significant.
//
// Algorithm:
//  1. Build lookup maps for O(1) access
//  2. For each desired component: if exists in current with different constraints → update; if not exists → add
//  3. For each current component: if not in desired → remove
func DiffAdvertisements(current, desired []model.Component) *AdvertisementDiff {
	diff := &AdvertisementDiff{}

	currentByID := make(map[model.ComponentID]model.Component, len(current))
	for _, c := range current {
		currentByID[c.ID] = c
	}

	desiredByID := make(map[model.ComponentID]model.Component, len(desired))
	for _, c := range desired {
		desiredByID[c.ID] = c
	}

	for id, want := range desiredByID {
		if have, exists := currentByID[id]; exists {
			if !Equal(have, want) {
				diff.ToUpdate = append(diff.ToUpdate, ComponentUpdate{ID: id, Old: have, New: want})
			}
		} else {
			diff.ToAdd = append(diff.ToAdd, want)
		}
	}

	for id, have := range currentByID {
		if _, exists := desiredByID[id]; !exists {
			diff.ToRemove = append(diff.ToRemove, have)
		}
	}

	sortComponents(diff.ToAdd)
	sortComponents(diff.ToRemove)
	sort.Slice(diff.ToUpdate, func(i, j int) bool { return diff.ToUpdate[i].ID < diff.ToUpdate[j].ID })

	return diff
}

// Equal reports whether two declarations carry the same constraints.
func Equal(a, b model.Component) bool {
	return a.ID == b.ID &&
		equalVersion(a.PreferredVersion, b.PreferredVersion) &&
		equalVersion(a.MinVersion, b.MinVersion) &&
		equalVersion(a.MaxVersion, b.MaxVersion) &&
		a.Flow == b.Flow &&
		a.Optional == b.Optional
}

func equalVersion(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sortComponents(components []model.Component) {
	sort.Slice(components, func(i, j int) bool { return components[i].ID < components[j].ID })
}

// Breaking returns the ids whose change can make a previously successful
// negotiation fail: removed components, new mandatory components, and
// components that became mandatory, gained or lost a version range, or
// accept a narrower range than before.
func (d *AdvertisementDiff) Breaking() []model.ComponentID {
	var ids []model.ComponentID
	for _, c := range d.ToRemove {
		ids = append(ids, c.ID)
	}
	for _, u := range d.ToUpdate {
		if narrowed(u.Old, u.New) {
			ids = append(ids, u.ID)
		}
	}
	for _, c := range d.ToAdd {
		if !c.Optional {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// narrowed reports whether next accepts fewer peers than prev.
func narrowed(prev, next model.Component) bool {
	if prev.Optional && !next.Optional {
		return true
	}
	prevRange, prevOK := prev.VersionRange()
	nextRange, nextOK := next.VersionRange()
	if prevOK != nextOK {
		return true
	}
	return prevOK && (nextRange.Min > prevRange.Min || nextRange.Max < prevRange.Max)
}
