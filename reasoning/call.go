package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	aperrors "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type callResult struct {
	resp *Response
	err  error
}

// Call issues req and waits at most timeout for the answer. The provider call
// runs in its own goroutine; when the deadline fires first Call returns
// immediately with ErrDeadlineExceeded and the abandoned call finishes (or is
// cancelled through its context) without anyone waiting on it.
func Call(ctx context.Context, client Client, req *Request, timeout time.Duration) (resp *Response, err error) {
	if client == nil {
		return nil, fmt.Errorf("reasoning: client is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Start(ctx, "reasoning", "call",
		attribute.String("reasoning.operation", req.Operation),
		attribute.Int64("reasoning.timeout_ms", timeout.Milliseconds()),
	)
	defer func() { telemetry.End(span, err) }()

	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		r, err := client.Generate(callCtx, req)
		done <- callResult{resp: r, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() == nil && callCtx.Err() != nil {
				return nil, fmt.Errorf("%w after %s: %v", aperrors.ErrDeadlineExceeded, timeout, res.err)
			}
			return nil, res.err
		}
		if res.resp == nil || strings.TrimSpace(res.resp.Text) == "" {
			return nil, aperrors.ErrEmptyResponse
		}
		return res.resp, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", aperrors.ErrDeadlineExceeded, timeout)
	}
}
