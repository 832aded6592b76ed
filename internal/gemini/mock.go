package gemini

import "context"

// MockClient for testing
type MockClient struct {
	Suggestion string
	Error      error
	LastReq    SuggestRequest
	Calls      int
}

func (m *MockClient) Suggest(ctx context.Context, req SuggestRequest) (string, error) {
	m.Calls++
	m.LastReq = req
	return m.Suggestion, m.Error
}
