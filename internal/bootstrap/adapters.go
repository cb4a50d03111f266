package bootstrap

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Chavhanmoin/CrackBatu/config"
	"github.com/Chavhanmoin/CrackBatu/internal/adapters/eventbus"
	redisadapter "github.com/Chavhanmoin/CrackBatu/internal/adapters/redis"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

// subscriberBuffer is the per-subscriber event channel size for both backends.
const subscriberBuffer = 8

// SessionBackendConfig contains configuration for session persistence.
type SessionBackendConfig struct {
	Session     config.SessionConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// SessionBackend pairs the session store with its change notifications.
type SessionBackend struct {
	Store  ports.SessionStore
	Events ports.SessionEvents

	closeFn func()
}

// Close releases in-process subscribers. Redis clients are owned by the caller.
func (b *SessionBackend) Close() {
	if b != nil && b.closeFn != nil {
		b.closeFn()
	}
}

// BuildSessionBackend creates the Redis session store and the configured
// event transport. The local bus only reaches subscribers in this process.
func BuildSessionBackend(cfg SessionBackendConfig) (*SessionBackend, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("session backend requires a redis client")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prefix := cfg.Session.KeyPrefix
	backend := &SessionBackend{
		Store: redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, prefix),
	}

	switch cfg.Session.EventsBackend {
	case config.EventsBackendLocal:
		bus := eventbus.New(subscriberBuffer)
		backend.Events = bus
		backend.closeFn = bus.Close
		logger.Warn("session events use the in-process bus; other instances will not see them")
	default:
		backend.Events = redisadapter.NewSessionEvents(redisadapter.SessionEventsOptions{
			Client: cfg.RedisClient,
			Prefix: eventsPrefix(prefix),
			Logger: logger,
			Buffer: subscriberBuffer,
		})
	}

	return backend, nil
}

// eventsPrefix maps "session:" to "session-events:".
func eventsPrefix(keyPrefix string) string {
	return strings.TrimSuffix(keyPrefix, ":") + "-events:"
}
