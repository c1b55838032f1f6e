package llm

import (
	"context"
	"encoding/json"
	"sync"
)

type MockResponse struct {
	Content json.RawMessage
	Err     error
}

// MockProvider replays canned responses in FIFO order and records every
// request. An empty queue answers with UnavailableError.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if len(m.responses) == 0 {
		return nil, &UnavailableError{}
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// AddJSON queues v marshalled as the response content.
func (m *MockProvider) AddJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		m.AddResponse(MockResponse{Err: err})
		return
	}
	m.AddResponse(MockResponse{Content: b})
}

// AddText queues raw text content.
func (m *MockProvider) AddText(s string) {
	m.AddResponse(MockResponse{Content: json.RawMessage(s)})
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// noneProvider fails every call; tutors built on it only ever fall back.
type noneProvider struct{}

func (noneProvider) ModelID() string { return ProviderNone }

func (noneProvider) Generate(context.Context, Request) (*Response, error) {
	return nil, ErrNotConfigured
}
