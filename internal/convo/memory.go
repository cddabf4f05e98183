package convo

import (
	"context"
	"sync"
)

// Memory is an in-process Store used when no Valkey instance is
// configured. Histories live for the lifetime of the process.
type Memory struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

// NewMemory creates an empty in-memory conversation store.
func NewMemory() *Memory {
	return &Memory{messages: make(map[string][]Message)}
}

// History returns a copy of the stored messages so callers can't mutate
// shared state.
func (m *Memory) History(_ context.Context, id string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[id]
	out := make([]Message, len(stored))
	copy(out, stored)
	return out, nil
}

// Append adds messages to the conversation, creating it if needed.
func (m *Memory) Append(_ context.Context, id string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[id] = append(m.messages[id], msgs...)
	return nil
}
