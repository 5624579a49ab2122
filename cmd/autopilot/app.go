package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-autopilot/audit"
	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/contrib/provider"
	"github.com/sweetpotato0/ai-autopilot/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/ai-autopilot/memory"
	"github.com/sweetpotato0/ai-autopilot/outcome"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/prompt"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
	"github.com/sweetpotato0/ai-autopilot/store"
	"github.com/sweetpotato0/ai-autopilot/tool"
	"github.com/sweetpotato0/ai-autopilot/tool/mcp"
)

// app holds the collaborators shared by every command. Expensive pieces are
// opened on first use so that, for example, "categorize" never touches the
// network or the stores.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	tools  *tool.Registry

	client  provider.Client
	mem     *memory.Store
	tracker *outcome.Tracker
	sink    audit.Sink

	closers []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logging.SetLogger(logger)

	a := &app{cfg: cfg, logger: logging.WithComponent("cli"), tools: tool.DefaultRegistry()}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Disable:        cfg.Telemetry.Disable,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if err := a.loadMCPTools(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) loadMCPTools(ctx context.Context) error {
	if mcpCommand == "" && mcpEndpoint == "" {
		return nil
	}
	cfg := mcp.Config{Transport: mcp.TransportStreamable, Endpoint: mcpEndpoint, Prefix: mcpPrefix}
	if mcpCommand != "" {
		cfg.Transport, cfg.Command = mcp.TransportCommand, mcpCommand
	}

	p, err := mcp.NewProvider(ctx, cfg, mcp.WithLogger(logging.WithComponent("mcp")))
	if err != nil {
		return fmt.Errorf("connect mcp server: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return p.Close() })

	n, err := tool.Load(ctx, a.tools, p)
	if err != nil {
		return err
	}
	a.logger.Info("loaded mcp tools", "count", n)
	return nil
}

func (a *app) reasoningClient(ctx context.Context) (reasoning.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	c, err := provider.New(ctx, a.cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("init reasoning client: %w", err)
	}
	a.client = c
	a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	return c, nil
}

func (a *app) tokenCounter() prompt.TokenCounter {
	name := a.cfg.Reflection.Tokenizer
	if name == "" {
		return prompt.ApproxCounter{}
	}
	tk, err := tiktoken.New(name)
	if err != nil {
		a.logger.Warn("tokenizer unavailable, using approximate counts", "tokenizer", name, "error", err)
		return prompt.ApproxCounter{}
	}
	return tk
}

func (a *app) memory(ctx context.Context) (*memory.Store, error) {
	if a.mem != nil {
		return a.mem, nil
	}
	log, err := store.Open[memory.Episode](ctx, a.cfg.Memory, "episodes")
	if err != nil {
		return nil, fmt.Errorf("open episode store: %w", err)
	}
	m := memory.NewStore(log)
	if err := m.Initialize(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	a.mem = m
	a.closers = append(a.closers, func(context.Context) error { return m.Close() })
	return m, nil
}

func (a *app) outcomes(ctx context.Context) (*outcome.Tracker, error) {
	if a.tracker != nil {
		return a.tracker, nil
	}
	log, err := store.Open[outcome.Record](ctx, a.cfg.Outcomes, "outcomes")
	if err != nil {
		return nil, fmt.Errorf("open outcome store: %w", err)
	}
	a.tracker = outcome.NewTracker(log)
	a.closers = append(a.closers, func(context.Context) error { return a.tracker.Close() })
	return a.tracker, nil
}

// auditSink logs every event and also persists it to the audit store. An
// unavailable store degrades to logging only.
func (a *app) auditSink(ctx context.Context) audit.Sink {
	if a.sink != nil {
		return a.sink
	}
	logSink := audit.NewLogSink(logging.WithComponent("audit"))
	log, err := store.Open[audit.Event](ctx, a.cfg.Audit, "audit")
	if err != nil {
		a.logger.Warn("audit store unavailable", "error", err)
		a.sink = logSink
		return a.sink
	}
	storeSink := audit.NewStoreSink(log)
	a.closers = append(a.closers, func(context.Context) error { return storeSink.Close() })
	a.sink = audit.Multi(logSink, storeSink)
	return a.sink
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", "error", err)
	}
}

// withApp wraps a command body with application setup and teardown.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))
		return fn(ctx, a, args)
	}
}
