package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response     string
	Err          error
	LastMessages []Message
}

func (m *MockClient) Chat(_ context.Context, messages []Message) (string, error) {
	m.LastMessages = messages
	return m.Response, m.Err
}
