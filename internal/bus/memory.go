// Package bus provides an in-process implementation of domain.SignalBus,
// used when Redis is not configured. Semantics match the Redis pub/sub
// implementation: subscribers only see messages published after they join,
// and a slow subscriber drops messages rather than blocking the publisher.
package bus

import (
	"context"
	"sync"
)

// Memory is an in-process fan-out bus.
type Memory struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewMemory creates an empty Memory bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every current subscriber of channel. Full
// subscriber buffers are skipped; state snapshots supersede each other, so a
// dropped message is made obsolete by the next one.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for channel. The returned channel is
// closed and the subscription removed when ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		current := m.subs[channel]
		for i, c := range current {
			if c == ch {
				m.subs[channel] = append(current[:i], current[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
