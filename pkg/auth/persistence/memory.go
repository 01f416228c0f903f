package persistence

import (
	"context"
	"sync"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
)

// Memory keeps the encoded state in process, so loaded values never alias saved ones.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, state auth.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data
	return nil
}

func (m *Memory) Load(_ context.Context) (*auth.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}

	return decodeState(m.data)
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
