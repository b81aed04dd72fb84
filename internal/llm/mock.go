package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scriptable CompletionClient for tests. Responses are
// consumed in order; when the queue is empty the fallback function (if
// set) runs, otherwise an error is returned.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	Fallback  func(system, prompt string) (string, error)

	// Calls records every prompt passed to Complete.
	Calls []string
}

// NewMockClient builds a mock that replies with the given responses in
// order.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// QueueError enqueues an error response. Errors interleave with text
// responses in enqueue order: each Complete call consumes an error first
// when one is pending.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *MockClient) Complete(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, prompt)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		return resp, nil
	}
	if m.Fallback != nil {
		return m.Fallback(system, prompt)
	}
	return "", fmt.Errorf("mock completion client: no scripted response")
}
