package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidComponent is wrapped by every advertisement validation failure.
var ErrInvalidComponent = errors.New("invalid component")

// ComponentID names a protocol component, conventionally "namespace:path".
// Components on opposite sides with equal ids describe the same channel.
type ComponentID string

// ParseComponentID splits "namespace:path". Both parts must be non-empty.
func ParseComponentID(s string) (ComponentID, error) {
	ns, path, ok := strings.Cut(s, ":")
	if !ok || ns == "" || path == "" {
		return "", fmt.Errorf("%w: id %q must have the form namespace:path", ErrInvalidComponent, s)
	}
	return ComponentID(s), nil
}

// Namespace returns the part before the first ':' (empty if there is none).
func (id ComponentID) Namespace() string {
	ns, _, ok := strings.Cut(string(id), ":")
	if !ok {
		return ""
	}
	return ns
}

// Path returns the part after the first ':' (the whole id if there is none).
func (id ComponentID) Path() string {
	_, path, ok := strings.Cut(string(id), ":")
	if !ok {
		return string(id)
	}
	return path
}

// Flow restricts a component to one direction of traffic.
// The empty Flow means both directions.
type Flow string

const (
	FlowBidirectional Flow = ""
	FlowServerbound   Flow = "serverbound"
	FlowClientbound   Flow = "clientbound"
)

// Valid reports whether f is one of the known flows.
func (f Flow) Valid() bool {
	switch f {
	case FlowBidirectional, FlowServerbound, FlowClientbound:
		return true
	default:
		return false
	}
}

// Component is one side's advertisement of a protocol component.
// Nil version fields are absent. Flow is carried through negotiation untouched.
type Component struct {
	ID               ComponentID `json:"id"`
	PreferredVersion *int        `json:"version,omitempty"`
	MinVersion       *int        `json:"min,omitempty"`
	MaxVersion       *int        `json:"max,omitempty"`
	Flow             Flow        `json:"flow,omitempty"`
	Optional         bool        `json:"optional,omitempty"`
}

// Opt returns a pointer to v for populating optional version fields.
func Opt(v int) *int {
	return &v
}

// VersionRange builds the range of versions this side accepts.
//
// No version fields: no range (ok is false).
// Only a preferred version: [pref, pref].
// Only max: [pref, max] with a preference, else [max, max].
// Only min: [min, pref] with a preference, else [min, min].
// Both bounds: [min, max]; the preference does not widen or narrow it.
func (c Component) VersionRange() (r Range, ok bool) {
	pref, lo, hi := c.PreferredVersion, c.MinVersion, c.MaxVersion

	switch {
	case pref == nil && lo == nil && hi == nil:
		return Range{}, false
	case lo == nil && hi == nil:
		return PointRange(*pref), true
	case lo == nil:
		if pref != nil {
			return NewRange(*pref, *hi), true
		}
		return PointRange(*hi), true
	case hi == nil:
		if pref != nil {
			return NewRange(*lo, *pref), true
		}
		return PointRange(*lo), true
	default:
		return NewRange(*lo, *hi), true
	}
}

// Validate checks the advertisement against the preconditions of range
// derivation, so that VersionRange cannot panic on it.
func (c Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidComponent)
	}
	if !c.Flow.Valid() {
		return fmt.Errorf("%w: %s: unknown flow %q", ErrInvalidComponent, c.ID, c.Flow)
	}

	pref, lo, hi := c.PreferredVersion, c.MinVersion, c.MaxVersion
	switch {
	case lo != nil && hi != nil && *lo > *hi:
		return fmt.Errorf("%w: %s: min %d exceeds max %d", ErrInvalidComponent, c.ID, *lo, *hi)
	case lo == nil && hi != nil && pref != nil && *pref > *hi:
		return fmt.Errorf("%w: %s: version %d exceeds max %d", ErrInvalidComponent, c.ID, *pref, *hi)
	case hi == nil && lo != nil && pref != nil && *pref < *lo:
		return fmt.Errorf("%w: %s: version %d below min %d", ErrInvalidComponent, c.ID, *pref, *lo)
	}
	return nil
}

// String renders the advertisement compactly for logs, e.g. "ns:one;v=2;min=1;optional".
func (c Component) String() string {
	var b strings.Builder
	b.WriteString(string(c.ID))
	if c.PreferredVersion != nil {
		fmt.Fprintf(&b, ";v=%d", *c.PreferredVersion)
	}
	if c.MinVersion != nil {
		fmt.Fprintf(&b, ";min=%d", *c.MinVersion)
	}
	if c.MaxVersion != nil {
		fmt.Fprintf(&b, ";max=%d", *c.MaxVersion)
	}
	if c.Flow != FlowBidirectional {
		fmt.Fprintf(&b, ";flow=%s", c.Flow)
	}
	if c.Optional {
		b.WriteString(";optional")
	}
	return b.String()
}

// NegotiatedComponent is one agreed component. Version is nil only when
// neither side declared any version constraint.
type NegotiatedComponent struct {
	ID      ComponentID `json:"id"`
	Version *int        `json:"version,omitempty"`
}

// String renders "id@version" or just the id when unversioned.
func (n NegotiatedComponent) String() string {
	if n.Version == nil {
		return string(n.ID)
	}
	return fmt.Sprintf("%s@%d", n.ID, *n.Version)
}

// ValidateAdvertisement validates every component of one side's list and
// rejects duplicate ids.
func ValidateAdvertisement(components []Component) error {
	seen := make(map[ComponentID]struct{}, len(components))
	for _, c := range components {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidComponent, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
