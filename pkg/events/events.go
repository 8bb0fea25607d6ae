// Package events carries change notifications from writers to whoever shows
// the data: publish on write, subscribe on mount. Polling survives only as a
// fallback transport (Since) behind the same interface.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types.
const (
	NewsCreated        = "news.created"
	NewsUpdated        = "news.updated"
	NewsDeleted        = "news.deleted"
	BusinessRegistered = "business.registered"
	BusinessUpdated    = "business.updated"
	BusinessStatus     = "business.status"
	BusinessDeleted    = "business.deleted"
	ReviewCreated      = "review.created"
	VisitorTracked     = "visitor.tracked"
	MirrorChanged      = "mirror.changed"
	SignedIn           = "auth.signed_in"
	SignedOut          = "auth.signed_out"
)

type Event struct {
	Seq  uint64    `json:"seq"`
	Type string    `json:"type"`
	ID   string    `json:"id,omitempty"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers events published after the call until ctx ends,
	// then closes the channel.
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Since returns retained events with Seq > seq, oldest first.
	Since(seq uint64) []Event
}

const (
	DefaultRetain = 256
	subBuffer     = 32
)

// Memory fans events out inside the process and retains the latest ones for
// pollers. A subscriber that falls behind by more than its buffer loses
// events; it can catch up with Since.
type Memory struct {
	mu     sync.Mutex
	seq    uint64
	ring   []Event
	retain int
	subs   map[int]chan Event
	nextID int
	now    func() time.Time
}

var _ Bus = (*Memory)(nil)

func NewMemory(retain int) *Memory {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Memory{retain: retain, subs: map[int]chan Event{}, now: time.Now}
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.deliver(ev)
	return nil
}

// deliver stamps ev with the next sequence number, retains it and fans it out.
func (m *Memory) deliver(ev Event) Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev.Seq = m.seq
	if ev.At.IsZero() {
		ev.At = m.now().UTC()
	}
	m.ring = append(m.ring, ev)
	if len(m.ring) > m.retain {
		m.ring = append([]Event(nil), m.ring[len(m.ring)-m.retain:]...)
	}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, subBuffer)
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *Memory) Since(seq uint64) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Event{}
	for _, ev := range m.ring {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// Last is the sequence number of the newest event.
func (m *Memory) Last() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}
