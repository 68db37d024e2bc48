package model

import (
	"errors"
	"testing"
)

func TestVersionRange(t *testing.T) {
	tests := []struct {
		name      string
		comp      Component
		wantRange Range
		wantOK    bool
	}{
		{"nothing declared", Component{ID: "t:a"}, Range{}, false},
		{"preferred only", Component{ID: "t:a", PreferredVersion: Opt(3)}, PointRange(3), true},
		{"max only", Component{ID: "t:a", MaxVersion: Opt(4)}, PointRange(4), true},
		{"max and preferred", Component{ID: "t:a", PreferredVersion: Opt(2), MaxVersion: Opt(4)}, NewRange(2, 4), true},
		{"min only", Component{ID: "t:a", MinVersion: Opt(1)}, PointRange(1), true},
		{"min and preferred", Component{ID: "t:a", PreferredVersion: Opt(3), MinVersion: Opt(1)}, NewRange(1, 3), true},
		{"min and max", Component{ID: "t:a", MinVersion: Opt(1), MaxVersion: Opt(5)}, NewRange(1, 5), true},
		{"all three", Component{ID: "t:a", PreferredVersion: Opt(9), MinVersion: Opt(1), MaxVersion: Opt(5)}, NewRange(1, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.comp.VersionRange()
			if ok != tt.wantOK {
				t.Fatalf("VersionRange() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.wantRange {
				t.Errorf("VersionRange() = %s, want %s", got, tt.wantRange)
			}
		})
	}
}

func TestComponentValidate(t *testing.T) {
	tests := []struct {
		name    string
		comp    Component
		wantErr bool
	}{
		{"minimal", Component{ID: "t:a"}, false},
		{"full", Component{ID: "t:a", PreferredVersion: Opt(2), MinVersion: Opt(1), MaxVersion: Opt(3), Flow: FlowClientbound, Optional: true}, false},
		{"preference outside both bounds tolerated", Component{ID: "t:a", PreferredVersion: Opt(9), MinVersion: Opt(1), MaxVersion: Opt(3)}, false},
		{"empty id", Component{}, true},
		{"unknown flow", Component{ID: "t:a", Flow: "sideways"}, true},
		{"inverted bounds", Component{ID: "t:a", MinVersion: Opt(3), MaxVersion: Opt(1)}, true},
		{"preference above lone max", Component{ID: "t:a", PreferredVersion: Opt(5), MaxVersion: Opt(3)}, true},
		{"preference below lone min", Component{ID: "t:a", PreferredVersion: Opt(0), MinVersion: Opt(2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.comp.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidComponent) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidComponent", err)
			}
			if err == nil {
				// A valid component must never panic during derivation.
				tt.comp.VersionRange()
			}
		})
	}
}

func TestParseComponentID(t *testing.T) {
	tests := []struct {
		in      string
		ns      string
		path    string
		wantErr bool
	}{
		{"netneg:handshake", "netneg", "handshake", false},
		{"a:b:c", "a", "b:c", false},
		{"nonamespace", "", "", true},
		{":path", "", "", true},
		{"ns:", "", "", true},
	}

	for _, tt := range tests {
		id, err := ParseComponentID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseComponentID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if id.Namespace() != tt.ns || id.Path() != tt.path {
			t.Errorf("ParseComponentID(%q) = (%q, %q), want (%q, %q)", tt.in, id.Namespace(), id.Path(), tt.ns, tt.path)
		}
	}
}

func TestComponentString(t *testing.T) {
	c := Component{ID: "t:a", PreferredVersion: Opt(2), MinVersion: Opt(1), Flow: FlowServerbound, Optional: true}
	want := "t:a;v=2;min=1;flow=serverbound;optional"
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	n := NegotiatedComponent{ID: "t:a", Version: Opt(3)}
	if got := n.String(); got != "t:a@3" {
		t.Errorf("NegotiatedComponent.String() = %q, want %q", got, "t:a@3")
	}
}

func TestValidateAdvertisement(t *testing.T) {
	tests := []struct {
		name    string
		comps   []Component
		wantErr bool
	}{
		{"empty", nil, false},
		{"distinct", []Component{{ID: "t:a"}, {ID: "t:b", PreferredVersion: Opt(1)}}, false},
		{"duplicate id", []Component{{ID: "t:a"}, {ID: "t:a", Optional: true}}, true},
		{"invalid member", []Component{{ID: "t:a"}, {ID: "t:b", MinVersion: Opt(2), MaxVersion: Opt(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdvertisement(tt.comps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAdvertisement() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidComponent) {
				t.Errorf("ValidateAdvertisement() error %v does not wrap ErrInvalidComponent", err)
			}
		})
	}
}
