// Package registry assembles one side's advertisement from per-namespace
// registrations.
//
//	r := registry.New("netneg")
//	r.WithVersion(2).WithMinVersion(1).Register("handshake")
//	r.Optional().Register("telemetry")
//	components := r.Components()
//
// A Registrar is not safe for concurrent use; build the advertisement at
// startup and hand the result to a source.
package registry

import (
	"fmt"
	"sort"

	"netneg/internal/model"
)

// Reason classifies a rejected registration.
type Reason string

const (
	ReasonDuplicateID      Reason = "duplicate_id"
	ReasonInvalidNamespace Reason = "invalid_namespace"
	ReasonInvalidID        Reason = "invalid_id"
	ReasonInvalidRange     Reason = "invalid_range"
	ReasonInvalidFlow      Reason = "invalid_flow"
)

// RegistrationError is returned when a component cannot be registered.
type RegistrationError struct {
	ID        model.ComponentID
	Namespace string
	Reason    Reason
	Err       error
}

func (e *RegistrationError) Error() string {
	msg := fmt.Sprintf("register %s in namespace %s: %s", e.ID, e.Namespace, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Registrar collects the components of a single namespace.
type Registrar struct {
	namespace  string
	components map[model.ComponentID]model.Component
}

// New creates a registrar for namespace.
func New(namespace string) *Registrar {
	return &Registrar{
		namespace:  namespace,
		components: make(map[model.ComponentID]model.Component),
	}
}

// Namespace returns the namespace every registered id must carry.
func (r *Registrar) Namespace() string {
	return r.namespace
}

// Register registers namespace:path without version constraints.
func (r *Registrar) Register(path string) error {
	return r.builder().Register(path)
}

// RegisterComponent registers a fully described component. Its id must
// already carry the registrar's namespace.
func (r *Registrar) RegisterComponent(c model.Component) error {
	if _, err := model.ParseComponentID(string(c.ID)); err != nil {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonInvalidID, Err: err}
	}
	if c.ID.Namespace() != r.namespace {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonInvalidNamespace}
	}
	if _, dup := r.components[c.ID]; dup {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonDuplicateID}
	}
	if !c.Flow.Valid() {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonInvalidFlow}
	}
	if err := c.Validate(); err != nil {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonInvalidRange, Err: err}
	}
	if err := checkBounds(c); err != nil {
		return &RegistrationError{ID: c.ID, Namespace: r.namespace, Reason: ReasonInvalidRange, Err: err}
	}

	r.components[c.ID] = c
	return nil
}

// checkBounds rejects a preferred version outside declared bounds, which
// range derivation would otherwise silently ignore.
func checkBounds(c model.Component) error {
	if c.PreferredVersion == nil {
		return nil
	}
	v := *c.PreferredVersion
	if c.MinVersion != nil && v < *c.MinVersion {
		return fmt.Errorf("version %d below min %d", v, *c.MinVersion)
	}
	if c.MaxVersion != nil && v > *c.MaxVersion {
		return fmt.Errorf("version %d above max %d", v, *c.MaxVersion)
	}
	return nil
}

// Components returns the registered components sorted by id.
func (r *Registrar) Components() []model.Component {
	out := make([]model.Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered components.
func (r *Registrar) Len() int {
	return len(r.components)
}

func (r *Registrar) builder() *Builder {
	return &Builder{registrar: r}
}

// WithVersion starts a builder with a preferred version.
func (r *Registrar) WithVersion(v int) *Builder { return r.builder().WithVersion(v) }

// WithMinVersion starts a builder with a lower bound.
func (r *Registrar) WithMinVersion(v int) *Builder { return r.builder().WithMinVersion(v) }

// WithMaxVersion starts a builder with an upper bound.
func (r *Registrar) WithMaxVersion(v int) *Builder { return r.builder().WithMaxVersion(v) }

// WithAcceptableRange starts a builder with both bounds.
func (r *Registrar) WithAcceptableRange(min, max int) *Builder {
	return r.builder().WithAcceptableRange(min, max)
}

// Optional starts a builder for components the peer may lack.
func (r *Registrar) Optional() *Builder { return r.builder().Optional() }

// Flowing starts a builder restricted to one direction.
func (r *Registrar) Flowing(flow model.Flow) *Builder { return r.builder().Flowing(flow) }

// Builder carries version settings shared by the components it registers.
// Settings persist across Register calls on the same builder.
type Builder struct {
	registrar *Registrar
	version   *int
	min       *int
	max       *int
	flow      model.Flow
	optional  bool
}

// WithVersion sets the preferred version.
func (b *Builder) WithVersion(v int) *Builder {
	b.version = model.Opt(v)
	return b
}

// WithMinVersion sets the lowest acceptable version.
func (b *Builder) WithMinVersion(v int) *Builder {
	b.min = model.Opt(v)
	return b
}

// WithMaxVersion sets the highest acceptable version.
func (b *Builder) WithMaxVersion(v int) *Builder {
	b.max = model.Opt(v)
	return b
}

// WithAcceptableRange sets both bounds. Register rejects min > max.
func (b *Builder) WithAcceptableRange(min, max int) *Builder {
	return b.WithMinVersion(min).WithMaxVersion(max)
}

// Optional marks the components as droppable when the peer lacks them.
func (b *Builder) Optional() *Builder {
	b.optional = true
	return b
}

// Flowing restricts the components to one traffic direction.
func (b *Builder) Flowing(flow model.Flow) *Builder {
	b.flow = flow
	return b
}

// Register registers namespace:path with the builder's settings.
func (b *Builder) Register(path string) error {
	id := model.ComponentID(b.registrar.namespace + ":" + path)
	c := model.Component{
		ID:       id,
		Flow:     b.flow,
		Optional: b.optional,
	}
	// Each component gets its own copies so later builder changes don't leak.
	if b.version != nil {
		c.PreferredVersion = model.Opt(*b.version)
	}
	if b.min != nil {
		c.MinVersion = model.Opt(*b.min)
	}
	if b.max != nil {
		c.MaxVersion = model.Opt(*b.max)
	}
	return b.registrar.RegisterComponent(c)
}

// MustRegister is like Register but panics on error. Intended for static
// advertisements built in init code.
func (b *Builder) MustRegister(path string) *Builder {
	if err := b.Register(path); err != nil {
		panic(err)
	}
	return b
}
