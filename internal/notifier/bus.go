package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Bus is an in-process fanout hub connecting the instances of a single
// process, mirroring the browser broadcast channel the tracker grew up
// with. Each Join returns a member that acts as one "tab": publishing
// from a member delivers synchronously, in publish order, to every other
// member's handler and never back to the publisher.
type Bus struct {
	mu      sync.Mutex
	members []*BusMember
}

func NewBus() *Bus {
	return &Bus{}
}

// Join registers a new member on the bus.
func (b *Bus) Join() *BusMember {
	m := &BusMember{bus: b, id: uuid.NewString()}
	b.mu.Lock()
	b.members = append(b.members, m)
	b.mu.Unlock()
	return m
}

// BusMember implements Notifier for one participant.
type BusMember struct {
	bus *Bus
	id  string

	mu      sync.Mutex
	handler Handler
}

func (m *BusMember) Publish(ctx context.Context, ev Event) error {
	ev.SenderID = m.id

	m.bus.mu.Lock()
	targets := make([]*BusMember, 0, len(m.bus.members))
	for _, other := range m.bus.members {
		if other != m {
			targets = append(targets, other)
		}
	}
	m.bus.mu.Unlock()

	for _, target := range targets {
		target.deliver(ctx, ev)
	}
	return nil
}

// Subscribe replaces the member's handler.
func (m *BusMember) Subscribe(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *BusMember) deliver(ctx context.Context, ev Event) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		// Best-effort: a failing handler does not affect other members.
		_ = h(ctx, ev)
	}
}

// Close removes the member from the bus.
func (m *BusMember) Close() error {
	m.bus.mu.Lock()
	defer m.bus.mu.Unlock()
	for i, other := range m.bus.members {
		if other == m {
			m.bus.members = append(m.bus.members[:i], m.bus.members[i+1:]...)
			break
		}
	}
	return nil
}
