package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

// SessionResolverOptions groups dependencies for SessionResolver.
type SessionResolverOptions struct {
	Sessions ports.SessionStore  // Required
	Profiles ports.ProfileStore  // Required
	Events   ports.SessionEvents // Required for Resolve; Snapshot works without it
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// SessionResolver turns a session id into SessionContext values: once per
// request with Snapshot, or as a live feed with Resolve.
type SessionResolver struct {
	sessions ports.SessionStore
	profiles ports.ProfileStore
	events   ports.SessionEvents
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	reads singleflight.Group
}

// NewSessionResolver constructs a new SessionResolver.
func NewSessionResolver(opts SessionResolverOptions) *SessionResolver {
	if opts.Sessions == nil {
		panic("SessionStore is required")
	}
	if opts.Profiles == nil {
		panic("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionResolver{
		sessions: opts.Sessions,
		profiles: opts.Profiles,
		events:   opts.Events,
		logger:   logger.With("component", "session_resolver"),
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Snapshot resolves the current state of sessionID once. The result is
// always Resolved.
func (r *SessionResolver) Snapshot(ctx context.Context, sessionID string) access.SessionContext {
	id, err := r.identity(ctx, sessionID)
	if err != nil {
		return access.SessionContext{Resolved: true, Err: err}
	}
	if id == nil {
		return access.SessionContext{Resolved: true}
	}
	return r.withProfile(ctx, id)
}

// identity returns nil when there is no active session.
func (r *SessionResolver) identity(ctx context.Context, sessionID string) (*domainauth.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}
	sess, err := r.sessions.Get(ctx, sessionID)
	if errors.Is(err, domainauth.ErrSessionNotFound) || errors.Is(err, domainauth.ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		r.logger.WarnContext(ctx, "session lookup failed", "error", err)
		return nil, err
	}
	if sess.Expired(r.now()) {
		return nil, nil
	}
	id := sess.Identity()
	return &id, nil
}

func (r *SessionResolver) withProfile(ctx context.Context, id *domainauth.Identity) access.SessionContext {
	p, err := r.readProfile(ctx, id.SubjectID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return access.SessionContext{Resolved: true, Identity: id}
	case err != nil:
		return access.SessionContext{
			Resolved: true,
			Identity: id,
			Err:      &profile.FetchError{SubjectID: id.SubjectID, Err: err},
		}
	}
	return access.SessionContext{Resolved: true, Identity: id, Profile: p}
}

// readProfile collapses concurrent reads of the same subject into one store
// call. A waiter whose context ends stops waiting even if the store does not.
func (r *SessionResolver) readProfile(ctx context.Context, subjectID string) (*profile.Profile, error) {
	start := time.Now()
	ch := r.reads.DoChan(subjectID, func() (any, error) {
		return r.profiles.Get(ctx, subjectID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	// The shared call ran under another caller's context and was cut short.
	if isContextErr(res.Err) && ctx.Err() == nil {
		v, err := r.profiles.Get(ctx, subjectID)
		res = singleflight.Result{Val: v, Err: err}
	}

	switch {
	case res.Err == nil:
		r.metrics.ProfileRead(time.Since(start), metrics.ResultSuccess)
	case errors.Is(res.Err, profile.ErrNotFound):
		r.metrics.ProfileRead(time.Since(start), metrics.ResultNoop)
		return nil, res.Err
	default:
		r.metrics.ProfileRead(time.Since(start), metrics.ResultError)
		r.metrics.StoreFailure("get", res.Err)
		r.logger.WarnContext(ctx, "profile read failed", "subject_id", subjectID, "error", res.Err)
		return nil, res.Err
	}
	p, _ := res.Val.(*profile.Profile)
	if p == nil {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Subscription is a live feed of SessionContext values for one session.
// Only the latest undelivered value is kept.
type Subscription struct {
	updates chan access.SessionContext
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Updates returns the feed. It is closed when the subscription ends.
func (s *Subscription) Updates() <-chan access.SessionContext { return s.updates }

// Close ends the subscription. Once Close returns nothing further can be
// received from Updates. It does not wait for in-flight store calls.
func (s *Subscription) Close() {
	s.cancel()
	s.finish()
}

func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	drain(s.updates)
	close(s.updates)
}

// emit replaces any undelivered value with sc. It reports false once closed.
func (s *Subscription) emit(sc access.SessionContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	drain(s.updates)
	s.updates <- sc
	return true
}

func drain(ch chan access.SessionContext) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Resolve subscribes to sessionID. The current state is delivered first,
// then one value per session change. The subscription ends on Close, when
// ctx ends, or when the event source goes away.
func (r *SessionResolver) Resolve(ctx context.Context, sessionID string) (*Subscription, error) {
	if r.events == nil {
		return nil, errors.New("session events are not configured")
	}

	subCtx, cancel := context.WithCancel(ctx)
	var (
		events <-chan domainauth.SessionEvent
		unsub  = func() {}
	)
	if sessionID != "" {
		var err error
		events, unsub, err = r.events.Subscribe(subCtx, sessionID)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	sub := &Subscription{updates: make(chan access.SessionContext, 1), cancel: cancel}
	r.metrics.SubscriptionOpened()
	go r.run(subCtx, sub, sessionID, events, unsub)
	return sub, nil
}

func (r *SessionResolver) run(
	ctx context.Context,
	sub *Subscription,
	sessionID string,
	events <-chan domainauth.SessionEvent,
	unsub func(),
) {
	defer r.metrics.SubscriptionClosed()
	defer sub.finish()
	defer unsub()

	last := r.Snapshot(ctx, sessionID)
	if ctx.Err() != nil || !sub.emit(last) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			ev = latestQueued(events, ev)
			next := r.next(ctx, sessionID, ev, last)
			if ctx.Err() != nil || !sub.emit(next) {
				return
			}
			last = next
		}
	}
}

// latestQueued coalesces an event storm to its last element.
func latestQueued(events <-chan domainauth.SessionEvent, ev domainauth.SessionEvent) domainauth.SessionEvent {
	for {
		select {
		case queued, ok := <-events:
			if !ok {
				return ev
			}
			ev = queued
		default:
			return ev
		}
	}
}

// next resolves after ev. A refresh for the subject already resolved keeps
// the last profile and only re-checks the session.
func (r *SessionResolver) next(
	ctx context.Context,
	sessionID string,
	ev domainauth.SessionEvent,
	last access.SessionContext,
) access.SessionContext {
	reuse := ev.Kind == domainauth.EventRefresh &&
		last.Err == nil &&
		last.Identity != nil &&
		last.Identity.SubjectID == ev.SubjectID

	if !reuse {
		return r.Snapshot(ctx, sessionID)
	}

	id, err := r.identity(ctx, sessionID)
	switch {
	case err != nil:
		return access.SessionContext{Resolved: true, Err: err}
	case id == nil:
		return access.SessionContext{Resolved: true}
	case id.SubjectID != last.Identity.SubjectID:
		return r.withProfile(ctx, id)
	}
	return access.SessionContext{Resolved: true, Identity: id, Profile: last.Profile}
}
