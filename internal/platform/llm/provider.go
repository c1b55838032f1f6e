// Package llm is a small provider-neutral facade over the chat completion
// SDKs. Callers build a Request, optionally with a JSON schema, and get the
// raw (validated) content back.
package llm

import (
	"context"
	"encoding/json"
)

type Provider interface {
	// Generate returns the model output. When req.Schema is set the content
	// has already been checked against it.
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// UserPrompt is the common single-turn request shape.
func UserPrompt(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

// Schema names a JSON Schema document. Name doubles as the cache key for
// the compiled form, so it must be unique per definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // end | max_tokens
}

// Text returns the content as plain text. Providers hand back raw text when
// no schema was requested.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type ctxKey string

const opKey ctxKey = "llm_op"

// WithOp tags the context with the calling operation for logs.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey, op)
}

func OpFrom(ctx context.Context) string {
	if v, ok := ctx.Value(opKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
