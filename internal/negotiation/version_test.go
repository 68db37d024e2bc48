package negotiation

import (
	"errors"
	"testing"
)

func TestValidateProtocolVersion(t *testing.T) {
	tests := []struct {
		name     string
		server   string
		agent    string
		wantCode string
	}{
		{name: "empty agent accepts server", server: "v1.0.0", agent: ""},
		{name: "same revision", server: "v1.2.0", agent: "v1.2.0"},
		{name: "older minor", server: "v1.2.0", agent: "v1.1.0"},
		{name: "missing v prefix", server: "v1.2.0", agent: "1.0.0"},
		{name: "server without prefix", server: "1.2.0", agent: "v1.2.0"},
		{name: "newer minor", server: "v1.2.0", agent: "v1.3.0", wantCode: ProtocolVersionUnsupported},
		{name: "older major", server: "v2.0.0", agent: "v1.9.0", wantCode: ProtocolVersionUnsupported},
		{name: "newer major", server: "v1.0.0", agent: "v2.0.0", wantCode: ProtocolVersionUnsupported},
		{name: "not semver", server: "v1.0.0", agent: "2026-01-11", wantCode: ProtocolVersionInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProtocolVersion(tt.server, tt.agent)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("validateProtocolVersion() error = %v, want nil", err)
				}
				return
			}

			var verErr *VersionError
			if !errors.As(err, &verErr) {
				t.Fatalf("validateProtocolVersion() error = %v, want *VersionError", err)
			}
			if verErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", verErr.Code, tt.wantCode)
			}
			if verErr.AgentVersion != tt.agent {
				t.Errorf("AgentVersion = %s, want %s", verErr.AgentVersion, tt.agent)
			}
		})
	}
}

func TestValidProtocolVersion(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"v1.0.0", true},
		{"1.4.2", true},
		{"v1", true},
		{"", false},
		{"latest", false},
	}

	for _, tt := range tests {
		if got := ValidProtocolVersion(tt.in); got != tt.want {
			t.Errorf("ValidProtocolVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
