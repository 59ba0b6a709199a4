// Package bus provides an in-process domain.SignalBus for standalone mode,
// matching the Redis bus behavior closely enough that the websocket hub and
// tests can run without external infrastructure.
package bus

import (
	"context"
	"strings"
	"sync"

	"github.com/colosseo/arenabook/internal/domain"
)

type subscriber struct {
	pattern string
	ch      chan []byte
}

// Memory is a channel-backed SignalBus. Subscriptions support a trailing "*"
// wildcard (e.g. "ch:*"), which is the only glob form the engine uses.
type Memory struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[*subscriber]struct{})}
}

// Publish delivers the payload to every matching subscriber. Slow subscribers
// with full buffers are skipped rather than blocking the publisher.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for sub := range m.subs {
		if !matches(sub.pattern, channel) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the given channel or pattern. The
// returned channel is closed when the context is cancelled.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := &subscriber{pattern: channel, ch: make(chan []byte, 128)}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func matches(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

var _ domain.SignalBus = (*Memory)(nil)
