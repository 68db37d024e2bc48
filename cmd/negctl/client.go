package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"netneg/internal/handler"
	"netneg/internal/model"
	"netneg/internal/negotiation"
)

// maxResponseSize bounds what negctl reads from a server.
const maxResponseSize = 1 << 20

// client talks to a negotiatord peer.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(cfg Config) *client {
	return &client{
		baseURL: cfg.Server,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// failureResponse is the 409 body of POST /negotiations.
type failureResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Failures []struct {
		ID      string `json:"id"`
		Code    string `json:"code"`
		Side    string `json:"side"`
		Message string `json:"message"`
	} `json:"failures"`
}

// advertisement fetches GET /.well-known/components.
func (c *client) advertisement(ctx context.Context) (*negotiation.Advertisement, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/.well-known/components", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, httpError(status, body)
	}

	var advert negotiation.Advertisement
	if err := json.Unmarshal(body, &advert); err != nil {
		return nil, fmt.Errorf("parsing advertisement: %w", err)
	}
	return &advert, nil
}

// negotiate posts a client advertisement. Exactly one of the returned
// session and failure is non-nil when err is nil.
func (c *client) negotiate(ctx context.Context, protocolVersion string, components []model.Component) (*handler.SessionView, *failureResponse, error) {
	if components == nil {
		components = []model.Component{}
	}
	reqBody := map[string]any{"components": components}
	if protocolVersion != "" {
		reqBody["protocol_version"] = protocolVersion
	}

	status, body, err := c.do(ctx, http.MethodPost, "/negotiations", reqBody)
	if err != nil {
		return nil, nil, err
	}

	switch status {
	case http.StatusOK:
		var session handler.SessionView
		if err := json.Unmarshal(body, &session); err != nil {
			return nil, nil, fmt.Errorf("parsing response: %w", err)
		}
		return &session, nil, nil
	case http.StatusConflict:
		var failure failureResponse
		if err := json.Unmarshal(body, &failure); err != nil {
			return nil, nil, fmt.Errorf("parsing response: %w", err)
		}
		return nil, &failure, nil
	default:
		return nil, nil, httpError(status, body)
	}
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// httpError renders an error envelope, or the raw body when it is not one.
func httpError(status int, body []byte) error {
	var envelope failureResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		return fmt.Errorf("HTTP %d: %s: %s", status, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

// readAdvertisement loads an advertisement file. Both the document served
// at /.well-known/components and a bare JSON array of components are accepted.
func readAdvertisement(path string) (*negotiation.Advertisement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading advertisement: %w", err)
	}

	var advert negotiation.Advertisement
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &advert.Components)
	} else {
		err = json.Unmarshal(data, &advert)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing advertisement %s: %w", path, err)
	}

	if err := model.ValidateAdvertisement(advert.Components); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &advert, nil
}

// parseComponentFlag parses one --component value. The id may be given
// bare ("ns:id;v=2;optional") or quoted as in a Components header.
func parseComponentFlag(s string) (model.Component, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		id, params, hasParams := strings.Cut(s, ";")
		s = strconv.Quote(strings.TrimSpace(id))
		if hasParams {
			s += ";" + params
		}
	}

	components, err := negotiation.ParseComponentsHeader(s)
	if err != nil {
		return model.Component{}, err
	}
	if len(components) != 1 {
		return model.Component{}, fmt.Errorf("expected one component, got %d", len(components))
	}
	return components[0], nil
}
