package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/tool"
)

// Transport enumerates the supported MCP transport types.
type Transport string

const (
	// TransportStreamable indicates the streamable HTTP transport.
	TransportStreamable Transport = "streamable"
	// TransportCommand indicates the stdio/command transport.
	TransportCommand Transport = "command"
)

// Config describes how to connect to an MCP server.
type Config struct {
	// Transport selects how to connect. If empty, command transport is used
	// when Command is set, otherwise streamable HTTP.
	Transport Transport
	// Endpoint is required for streamable HTTP connections.
	Endpoint string
	// Command is required for command transport connections.
	Command string
	// Prefix namespaces the server's tools as "<prefix>__<name>" so they
	// cannot shadow built-in tools such as run_bash.
	Prefix string
}

type provider struct {
	client *Client
	prefix string
}

// NewProvider connects to the configured server and returns a tool.Provider
// backed by it.
func NewProvider(ctx context.Context, cfg Config, opts ...Option) (tool.Provider, error) {
	transport := cfg.Transport
	if transport == "" {
		if cfg.Command != "" {
			transport = TransportCommand
		} else {
			transport = TransportStreamable
		}
	}

	var (
		client *Client
		err    error
	)
	switch transport {
	case TransportStreamable:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, errors.New("mcp: endpoint is required for streamable transport")
		}
		client, err = NewStreamableClient(ctx, cfg.Endpoint, opts...)
	case TransportCommand:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, errors.New("mcp: command is required for command transport")
		}
		fields := strings.Fields(cfg.Command)
		client, err = NewStdioClient(ctx, fields[0], append([]Option{WithCommandArgs(fields[1:]...)}, opts...)...)
	default:
		return nil, fmt.Errorf("mcp: unsupported transport %q", transport)
	}
	if err != nil {
		return nil, err
	}
	return &provider{client: client, prefix: strings.TrimSpace(cfg.Prefix)}, nil
}

func (p *provider) Tools(ctx context.Context) ([]*tool.Tool, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("mcp: provider is not initialized")
	}
	tools, err := p.client.BuildTools(ctx)
	if err != nil {
		return nil, err
	}
	return withPrefix(tools, p.prefix), nil
}

func withPrefix(tools []*tool.Tool, prefix string) []*tool.Tool {
	if prefix == "" {
		return tools
	}
	for _, t := range tools {
		t.Name = prefix + "__" + t.Name
	}
	return tools
}

func (p *provider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
