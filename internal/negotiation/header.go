package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"

	"netneg/internal/model"
)

// Header names used by the handshake.
const (
	ComponentAgentHeader       = "Component-Agent"
	ComponentsHeader           = "Components"
	NegotiatedComponentsHeader = "Negotiated-Components"
	NegotiationIDHeader        = "Negotiation-Id"
)

// AgentInfo is the content of a Component-Agent header.
type AgentInfo struct {
	ProfileURL      string
	ProtocolVersion string
}

// ParseComponentAgentHeader extracts the advertisement URL and handshake
// revision from a Component-Agent header (RFC 8941 Dictionary).
//
// Examples:
//   - profile="https://peer.example/components" → URL only
//   - profile="https://peer.example/c", version="v1.2.0" → URL and revision
//   - version="v1.2.0" → revision only, for an inline advertisement
//
// Returns error if header is empty, malformed, or carries neither key.
// Whether a profile is required depends on the request, so callers check
// ProfileURL themselves.
func ParseComponentAgentHeader(header string) (AgentInfo, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return AgentInfo{}, errors.New("empty Component-Agent header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return AgentInfo{}, fmt.Errorf("invalid Component-Agent header: %w", err)
	}

	profile, err := dictString(dict, "profile")
	if err != nil {
		return AgentInfo{}, err
	}
	version, err := dictString(dict, "version")
	if err != nil {
		return AgentInfo{}, err
	}
	if profile == "" && version == "" {
		return AgentInfo{}, errors.New("neither profile nor version found in Component-Agent header")
	}

	return AgentInfo{ProfileURL: profile, ProtocolVersion: version}, nil
}

// dictString returns the string item under key, or "" when the key is absent.
func dictString(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}

// ParseComponentsHeader decodes an inline advertisement (RFC 8941 List).
// Each member is a string item naming the component, with optional
// parameters v, min, max (integers), flow (token) and optional (boolean):
//
//	"netneg:handshake";v=2;min=1, "netneg:telemetry";optional
func ParseComponentsHeader(header string) ([]model.Component, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, errors.New("empty Components header")
	}

	list, err := httpsfv.UnmarshalList([]string{header})
	if err != nil {
		return nil, fmt.Errorf("invalid Components header: %w", err)
	}

	components := make([]model.Component, 0, len(list))
	for i, member := range list {
		item, ok := member.(httpsfv.Item)
		if !ok {
			return nil, fmt.Errorf("component %d: inner lists are not allowed", i)
		}
		c, err := componentFromItem(item)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		components = append(components, c)
	}
	return components, nil
}

func componentFromItem(item httpsfv.Item) (model.Component, error) {
	id, ok := item.Value.(string)
	if !ok {
		return model.Component{}, errors.New("id must be a string")
	}
	c := model.Component{ID: model.ComponentID(id)}

	var err error
	if c.PreferredVersion, err = intParam(item.Params, "v"); err != nil {
		return model.Component{}, err
	}
	if c.MinVersion, err = intParam(item.Params, "min"); err != nil {
		return model.Component{}, err
	}
	if c.MaxVersion, err = intParam(item.Params, "max"); err != nil {
		return model.Component{}, err
	}

	if v, ok := item.Params.Get("flow"); ok {
		switch flow := v.(type) {
		case httpsfv.Token:
			c.Flow = model.Flow(flow)
		case string:
			c.Flow = model.Flow(flow)
		default:
			return model.Component{}, errors.New("flow must be a token")
		}
	}

	if v, ok := item.Params.Get("optional"); ok {
		optional, ok := v.(bool)
		if !ok {
			return model.Component{}, errors.New("optional must be a boolean")
		}
		c.Optional = optional
	}

	return c, nil
}

func intParam(params *httpsfv.Params, key string) (*int, error) {
	v, ok := params.Get(key)
	if !ok {
		return nil, nil
	}
	n, ok := v.(int64)
	if !ok {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return model.Opt(int(n)), nil
}

// FormatComponentsHeader encodes an advertisement as a Components header.
func FormatComponentsHeader(components []model.Component) (string, error) {
	list := make(httpsfv.List, 0, len(components))
	for _, c := range components {
		item := httpsfv.NewItem(string(c.ID))
		if c.PreferredVersion != nil {
			item.Params.Add("v", int64(*c.PreferredVersion))
		}
		if c.MinVersion != nil {
			item.Params.Add("min", int64(*c.MinVersion))
		}
		if c.MaxVersion != nil {
			item.Params.Add("max", int64(*c.MaxVersion))
		}
		if c.Flow != model.FlowBidirectional {
			item.Params.Add("flow", httpsfv.Token(c.Flow))
		}
		if c.Optional {
			item.Params.Add("optional", true)
		}
		list = append(list, item)
	}
	return httpsfv.Marshal(list)
}

// FormatNegotiatedHeader encodes agreed components as a
// Negotiated-Components header, with v present only for versioned ones.
func FormatNegotiatedHeader(components []model.NegotiatedComponent) (string, error) {
	list := make(httpsfv.List, 0, len(components))
	for _, c := range components {
		item := httpsfv.NewItem(string(c.ID))
		if c.Version != nil {
			item.Params.Add("v", int64(*c.Version))
		}
		list = append(list, item)
	}
	return httpsfv.Marshal(list)
}

// ParseNegotiatedHeader decodes a Negotiated-Components header.
func ParseNegotiatedHeader(header string) ([]model.NegotiatedComponent, error) {
	components, err := ParseComponentsHeader(header)
	if err != nil {
		return nil, err
	}
	out := make([]model.NegotiatedComponent, len(components))
	for i, c := range components {
		out[i] = model.NegotiatedComponent{ID: c.ID, Version: c.PreferredVersion}
	}
	return out, nil
}
