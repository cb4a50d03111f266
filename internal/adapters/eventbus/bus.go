// Package eventbus is an in-process SessionEvents implementation for single
// instance deployments and tests.
package eventbus

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

var _ ports.SessionEvents = (*Bus)(nil)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("event bus closed")

// Bus delivers session events to subscribers of the same process.
type Bus struct {
	buffer int

	mu     sync.Mutex
	subs   map[string]map[chan domainauth.SessionEvent]struct{}
	closed bool
}

// New creates a Bus whose subscriber channels hold buffer events. Events to
// a full channel are dropped.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 4
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[string]map[chan domainauth.SessionEvent]struct{}),
	}
}

// Publish delivers ev to every subscriber of its session. Subscribers with a
// full buffer miss the event.
func (b *Bus) Publish(_ context.Context, ev domainauth.SessionEvent) error {
	if ev.SessionID == "" {
		return errors.New("session event requires a session id")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of events for sessionID and a cancel func that
// unsubscribes. The subscription also ends when ctx is done or the bus closes.
func (b *Bus) Subscribe(
	ctx context.Context,
	sessionID string,
) (<-chan domainauth.SessionEvent, func(), error) {
	if sessionID == "" {
		return nil, nil, errors.New("subscribe requires a session id")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	ch := make(chan domainauth.SessionEvent, b.buffer)
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan domainauth.SessionEvent]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	stopWatch := make(chan struct{})
	unsub := sync.OnceFunc(func() {
		close(stopWatch)
		b.mu.Lock()
		defer b.mu.Unlock()
		subscribers := b.subs[sessionID]
		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			delete(b.subs, sessionID)
		}
	})

	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-stopWatch:
		}
	}()

	return ch, unsub, nil
}

// Subscribers returns the number of live subscriptions for sessionID.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// Close ends every subscription and rejects new ones.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, subscribers := range b.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(b.subs, id)
	}
}

func drainAndClose(ch chan domainauth.SessionEvent) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}
