// MCP transport handler for the negotiation service using the official MCP Go SDK.
// Exposes negotiation and discovery as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"netneg/internal/model"
	"netneg/internal/negotiation"
)

// === MCP Meta Types ===
// meta carries what the HTTP transport reads from headers:
// - Component-Agent version → meta.protocol_version
// - Component-Agent profile → meta.profile

// MCPMeta represents request metadata in MCP requests.
type MCPMeta struct {
	ProtocolVersion string `json:"protocol_version,omitempty" jsonschema:"handshake revision of the client, defaults to the server's"`
	Profile         string `json:"profile,omitempty" jsonschema:"URL of the client's published advertisement"`
}

// === MCP Tool Input/Output Types ===

// NegotiateInput is the input schema for the negotiate_components tool.
type NegotiateInput struct {
	Meta       MCPMeta           `json:"meta,omitempty" jsonschema:"request metadata"`
	Components []model.Component `json:"components,omitempty" jsonschema:"inline client advertisement; takes precedence over meta.profile"`
}

// GetAdvertisementInput is the input schema for the get_advertisement tool.
type GetAdvertisementInput struct{}

// AdvertisementOutput is the local advertisement returned by get_advertisement.
type AdvertisementOutput struct {
	ProtocolVersion string            `json:"protocol_version"`
	Components      []model.Component `json:"components"`
}

// NewMCPServer creates an MCP server with the negotiation tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "netneg",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Network component negotiation. " +
				"Fetch the server advertisement, then negotiate your own component list against it.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "negotiate_components",
		Description: "Negotiate a client advertisement against the server's. Provide components inline or meta.profile.",
	}, h.mcpNegotiate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_advertisement",
		Description: "Get the components and versions this server supports.",
	}, h.mcpGetAdvertisement)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpNegotiate(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NegotiateInput,
) (*mcp.CallToolResult, *SessionView, error) {
	session, err := negotiation.NegotiateForMCP(ctx, h.negotiator,
		input.Meta.ProtocolVersion, input.Meta.Profile, input.Components)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	if !session.Result.Success {
		failures := session.Result.SortedFailures()
		msgs := make([]string, len(failures))
		for i, f := range failures {
			msgs[i] = f.Error()
		}
		return nil, nil, fmt.Errorf("%s: %s", negotiation.NegotiationFailed, strings.Join(msgs, "; "))
	}

	return nil, newSessionView(session), nil
}

func (h *Handler) mcpGetAdvertisement(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetAdvertisementInput,
) (*mcp.CallToolResult, *AdvertisementOutput, error) {
	components, err := h.negotiator.LocalAdvertisement(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	if components == nil {
		components = []model.Component{}
	}

	return nil, &AdvertisementOutput{
		ProtocolVersion: h.negotiator.ProtocolVersion(),
		Components:      components,
	}, nil
}

// mcpError converts handshake errors to MCP-friendly "code: message" errors.
func (h *Handler) mcpError(err error) error {
	var missing *negotiation.MissingAgentError
	if errors.As(err, &missing) {
		return fmt.Errorf("%s: %s", missing.Code, missing.Message)
	}
	var verErr *negotiation.VersionError
	if errors.As(err, &verErr) {
		return fmt.Errorf("%s: %s", verErr.Code, verErr.Message)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}
