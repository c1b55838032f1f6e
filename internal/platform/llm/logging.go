package llm

import (
	"context"
	"time"

	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type loggingProvider struct {
	inner Provider
	log   *logger.Logger
}

// WithLogging logs one line per call: op, model, latency and token usage.
// Prompts are not logged; they embed learner answers.
func WithLogging(p Provider, log *logger.Logger) Provider {
	return &loggingProvider{inner: p, log: log.With("component", "llm", "model", p.ModelID())}
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	kv := []any{
		"op", OpFrom(ctx),
		"latency_ms", time.Since(start).Milliseconds(),
		"schema", schemaName(req.Schema),
	}
	if err != nil {
		l.log.Warn("llm call failed", append(kv, "error", err)...)
		return nil, err
	}
	l.log.Debug("llm call",
		append(kv,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"stop_reason", resp.StopReason,
		)...,
	)
	return resp, nil
}

func schemaName(s *Schema) string {
	if s == nil {
		return ""
	}
	return s.Name
}
