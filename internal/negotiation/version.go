package negotiation

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// VersionError is returned when the peer's handshake protocol revision
// cannot be served. It is independent of component versions.
type VersionError struct {
	Code          string
	Message       string
	AgentVersion  string
	ServerVersion string
}

func (e *VersionError) Error() string {
	return e.Message
}

// validateProtocolVersion checks whether the server can speak the agent's
// handshake revision. Revisions are semver; the agent may request an older
// or equal revision within the same major, never a newer one.
func validateProtocolVersion(serverVersion, agentVersion string) error {
	// Empty agent revision = accept whatever the server speaks
	if agentVersion == "" {
		return nil
	}

	av := normalizeVersion(agentVersion)
	if !semver.IsValid(av) {
		return &VersionError{
			Code:          ProtocolVersionInvalid,
			Message:       fmt.Sprintf("protocol version %q is not a semantic version", agentVersion),
			AgentVersion:  agentVersion,
			ServerVersion: serverVersion,
		}
	}

	sv := normalizeVersion(serverVersion)
	if semver.Major(av) != semver.Major(sv) || semver.Compare(av, sv) > 0 {
		return &VersionError{
			Code:          ProtocolVersionUnsupported,
			Message:       fmt.Sprintf("agent requires protocol %s, server supports %s", agentVersion, serverVersion),
			AgentVersion:  agentVersion,
			ServerVersion: serverVersion,
		}
	}

	return nil
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// ValidProtocolVersion reports whether v is usable as a handshake revision.
func ValidProtocolVersion(v string) bool {
	return v != "" && semver.IsValid(normalizeVersion(v))
}
