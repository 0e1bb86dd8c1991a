package messaging

import (
	"context"
	"sync"
)

// MockService is an in-memory Service used by tests across packages.
type MockService struct {
	mu sync.Mutex

	Sent               []SentMessage
	AgentNotifications []string

	SendErr     error
	ValidateErr error
}

// SentMessage records one SendMessage call.
type SentMessage struct {
	To   string
	Body string
}

// NewMockService creates an empty mock.
func NewMockService() *MockService {
	return &MockService{}
}

// ValidateAndCanonicalizeRecipient returns the recipient unchanged unless
// ValidateErr is set.
func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if m.ValidateErr != nil {
		return "", m.ValidateErr
	}
	return recipient, nil
}

// SendMessage records the message or returns SendErr.
func (m *MockService) SendMessage(ctx context.Context, to string, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}

// NotifyAgent records the notification body or returns SendErr.
func (m *MockService) NotifyAgent(ctx context.Context, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AgentNotifications = append(m.AgentNotifications, body)
	return nil
}

// LastSent returns the most recent message, if any.
func (m *MockService) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
