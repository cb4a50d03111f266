package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

var _ ports.SessionEvents = (*SessionEvents)(nil)

// SessionEvents fans session changes out across portal instances over
// Redis pub/sub, one channel per session.
type SessionEvents struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	buffer int
}

// SessionEventsOptions configures SessionEvents.
type SessionEventsOptions struct {
	Client redis.UniversalClient
	// Prefix for channel names; defaults to "session-events:".
	Prefix string
	Logger *slog.Logger
	// Buffer is the per-subscriber channel size; defaults to 4.
	Buffer int
}

// NewSessionEvents creates a Redis pub/sub backed SessionEvents.
func NewSessionEvents(opts SessionEventsOptions) *SessionEvents {
	s := &SessionEvents{
		client: opts.Client,
		prefix: opts.Prefix,
		logger: opts.Logger,
		buffer: opts.Buffer,
	}
	if s.prefix == "" {
		s.prefix = "session-events:"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.buffer <= 0 {
		s.buffer = 4
	}
	return s
}

func (s *SessionEvents) channel(sessionID string) string { return s.prefix + sessionID }

// Publish sends ev to every subscriber of ev.SessionID.
func (s *SessionEvents) Publish(ctx context.Context, ev domainauth.SessionEvent) error {
	if ev.SessionID == "" {
		return errors.New("session event requires a session id")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err = s.client.Publish(ctx, s.channel(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe delivers events for sessionID until cancel is called or ctx ends.
// Slow readers lose events rather than stall the pub/sub connection.
func (s *SessionEvents) Subscribe(
	ctx context.Context,
	sessionID string,
) (<-chan domainauth.SessionEvent, func(), error) {
	if sessionID == "" {
		return nil, nil, errors.New("subscribe requires a session id")
	}

	ps := s.client.Subscribe(ctx, s.channel(sessionID))
	// Wait for the subscription confirmation so no publish issued after
	// Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan domainauth.SessionEvent, s.buffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domainauth.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logger.WarnContext(subCtx, "discarding malformed session event",
						"session_id", sessionID, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
					s.logger.DebugContext(subCtx, "session event dropped for slow subscriber",
						"session_id", sessionID, "kind", ev.Kind)
				}
			}
		}
	}()

	stop := func() {
		cancel()
		if err := ps.Close(); err != nil {
			s.logger.Debug("close session event subscription", "session_id", sessionID, "error", err)
		}
		<-done
	}
	return out, sync.OnceFunc(stop), nil
}
