package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doctorsaathi/consult-service/internal/chat"
)

// MockChatClient is an in-memory chat provider. It stores users and channels
// and never makes network calls. Set Err to make every call fail.
type MockChatClient struct {
	mu       sync.RWMutex
	users    map[string]chat.User
	channels map[string]*chat.Channel
	creates  int
	Err      error
}

var _ chat.Client = (*MockChatClient)(nil)

// NewMockChatClient creates an empty mock provider
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		users:    make(map[string]chat.User),
		channels: make(map[string]*chat.Channel),
	}
}

// UpsertUsers registers or updates users
func (m *MockChatClient) UpsertUsers(ctx context.Context, users ...chat.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return nil
}

// GetOrCreateChannel returns the existing channel or creates it
func (m *MockChatClient) GetOrCreateChannel(ctx context.Context, channelType, channelID, createdBy string, members []string) (*chat.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	m.creates++
	if ch, ok := m.channels[channelID]; ok {
		return ch, nil
	}
	for _, member := range members {
		if _, ok := m.users[member]; !ok {
			return nil, fmt.Errorf("user %s not found", member)
		}
	}

	ch := &chat.Channel{
		Type:    channelType,
		ID:      channelID,
		CID:     channelType + ":" + channelID,
		Members: append([]string(nil), members...),
	}
	m.channels[channelID] = ch
	return ch, nil
}

// CreateToken returns a deterministic fake token
func (m *MockChatClient) CreateToken(userID string, expire time.Time) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("token-%s-%d", userID, expire.Unix()), nil
}

// Helper methods for test assertions

// GetChannel returns a provisioned channel, or nil
func (m *MockChatClient) GetChannel(channelID string) *chat.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[channelID]
}

// ChannelCount returns the number of distinct channels
func (m *MockChatClient) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}

// HasUser reports whether userID was registered
func (m *MockChatClient) HasUser(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[userID]
	return ok
}

// CreateCalls returns how many channel calls reached the provider
func (m *MockChatClient) CreateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creates
}
