package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/internal/adapters/eventbus"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	authmocks "github.com/Chavhanmoin/CrackBatu/internal/mocks/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

type resolverFixture struct {
	sessions *authmocks.MemorySessionStore
	profiles *authmocks.MemoryProfileStore
	bus      *eventbus.Bus
	resolver *SessionResolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		sessions: authmocks.NewMemorySessionStore(),
		profiles: authmocks.NewMemoryProfileStore(),
		bus:      eventbus.New(4),
	}
	t.Cleanup(f.bus.Close)
	f.resolver = NewSessionResolver(SessionResolverOptions{
		Sessions: f.sessions,
		Profiles: f.profiles,
		Events:   f.bus,
	})
	return f
}

func (f *resolverFixture) login(t *testing.T, sessionID, subjectID string) {
	t.Helper()
	id := testutil.Identity(subjectID)
	require.NoError(t, f.sessions.Save(context.Background(), domainauth.Session{
		ID:            sessionID,
		SubjectID:     id.SubjectID,
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
		Method:        id.Method,
		ExpiresAt:     time.Now().Add(time.Hour),
	}))
}

func (f *resolverFixture) publish(t *testing.T, sessionID string, kind domainauth.EventKind, subjectID string) {
	t.Helper()
	require.NoError(t, f.bus.Publish(context.Background(), domainauth.SessionEvent{
		SessionID: sessionID,
		Kind:      kind,
		SubjectID: subjectID,
		At:        time.Now(),
	}))
}

func recvContext(t *testing.T, sub *Subscription) access.SessionContext {
	t.Helper()
	select {
	case sc, ok := <-sub.Updates():
		require.True(t, ok, "updates closed")
		return sc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session context")
	}
	return access.SessionContext{}
}

func TestSessionResolver_Snapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no session cookie", func(t *testing.T) {
		f := newResolverFixture(t)
		sc := f.resolver.Snapshot(ctx, "")
		assert.True(t, sc.Resolved)
		assert.False(t, sc.Authenticated())
		assert.NoError(t, sc.Err)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newResolverFixture(t)
		sc := f.resolver.Snapshot(ctx, "missing")
		assert.True(t, sc.Resolved)
		assert.False(t, sc.Authenticated())
		assert.NoError(t, sc.Err)
	})

	t.Run("expired session", func(t *testing.T) {
		f := newResolverFixture(t)
		require.NoError(t, f.sessions.Save(ctx, domainauth.Session{
			ID:        "old",
			SubjectID: "u1",
			ExpiresAt: time.Now().Add(-time.Minute),
		}))
		sc := f.resolver.Snapshot(ctx, "old")
		assert.False(t, sc.Authenticated())
	})

	t.Run("identity without profile", func(t *testing.T) {
		f := newResolverFixture(t)
		f.login(t, "s1", "u1")
		sc := f.resolver.Snapshot(ctx, "s1")
		require.True(t, sc.Authenticated())
		assert.Equal(t, "u1", sc.Identity.SubjectID)
		assert.False(t, sc.Provisioned())
		assert.NoError(t, sc.Err)
	})

	t.Run("identity and profile", func(t *testing.T) {
		f := newResolverFixture(t)
		f.login(t, "s1", "u1")
		f.profiles.Put(testutil.NewProfile("u1").SuperAdmin().Build())
		sc := f.resolver.Snapshot(ctx, "s1")
		require.True(t, sc.Provisioned())
		assert.Equal(t, profile.RoleSuperAdmin, sc.Profile.Role)
	})

	t.Run("profile read failure", func(t *testing.T) {
		f := newResolverFixture(t)
		f.login(t, "s1", "u1")
		f.profiles.GetFunc = func(context.Context, string) (*profile.Profile, error) {
			return nil, errors.New("unavailable")
		}
		sc := f.resolver.Snapshot(ctx, "s1")
		assert.True(t, sc.Resolved)
		require.True(t, sc.Authenticated())
		assert.True(t, profile.IsFetchError(sc.Err))
		assert.Equal(t, access.Unavailable, access.Evaluate(sc, access.Requirement{}).Outcome)
	})
}

func TestSessionResolver_ResolveFollowsSessionChanges(t *testing.T) {
	t.Parallel()
	f := newResolverFixture(t)
	f.profiles.Put(testutil.NewProfile("u1").Build())

	sub, err := f.resolver.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	defer sub.Close()

	initial := recvContext(t, sub)
	assert.True(t, initial.Resolved)
	assert.False(t, initial.Authenticated())

	f.login(t, "s1", "u1")
	f.publish(t, "s1", domainauth.EventLogin, "u1")
	in := recvContext(t, sub)
	require.True(t, in.Provisioned())
	assert.Equal(t, "u1", in.Profile.SubjectID)

	require.NoError(t, f.sessions.Delete(context.Background(), "s1"))
	f.publish(t, "s1", domainauth.EventLogout, "u1")
	out := recvContext(t, sub)
	assert.True(t, out.Resolved)
	assert.False(t, out.Authenticated())
}

func TestSessionResolver_RefreshReusesProfile(t *testing.T) {
	t.Parallel()
	f := newResolverFixture(t)
	f.login(t, "s1", "u1")
	f.profiles.Put(testutil.NewProfile("u1").Build())

	sub, err := f.resolver.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	defer sub.Close()

	first := recvContext(t, sub)
	require.True(t, first.Provisioned())
	reads := f.profiles.GetCalls()

	f.publish(t, "s1", domainauth.EventRefresh, "u1")
	refreshed := recvContext(t, sub)
	require.True(t, refreshed.Provisioned())
	assert.Equal(t, first.Profile, refreshed.Profile)
	assert.Equal(t, reads, f.profiles.GetCalls())
}

func TestSessionResolver_CloseDuringHangingRead(t *testing.T) {
	t.Parallel()
	f := newResolverFixture(t)
	f.login(t, "s1", "u1")

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	var once sync.Once
	f.profiles.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		once.Do(func() { close(started) })
		<-release
		return &profile.Profile{SubjectID: "u1", Role: profile.RoleStudent}, nil
	}

	sub, err := f.resolver.Resolve(context.Background(), "s1")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("profile read never started")
	}

	closed := make(chan struct{})
	go func() {
		sub.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on the profile store")
	}

	_, ok := <-sub.Updates()
	assert.False(t, ok, "no value may be observed after Close")
	sub.Close()
}

func TestSessionResolver_ContextEndClosesUpdates(t *testing.T) {
	t.Parallel()
	f := newResolverFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := f.resolver.Resolve(ctx, "s1")
	require.NoError(t, err)
	recvContext(t, sub)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Updates():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return f.bus.Subscribers("s1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionResolver_CollapsesConcurrentReads(t *testing.T) {
	t.Parallel()
	f := newResolverFixture(t)
	f.login(t, "s1", "u1")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.profiles.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		once.Do(func() { close(started) })
		<-release
		return &profile.Profile{SubjectID: "u1", Role: profile.RoleStudent}, nil
	}

	const readers = 5
	results := make(chan access.SessionContext, readers)
	go func() { results <- f.resolver.Snapshot(context.Background(), "s1") }()
	<-started
	for range readers - 1 {
		go func() { results <- f.resolver.Snapshot(context.Background(), "s1") }()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)

	for range readers {
		sc := <-results
		assert.True(t, sc.Provisioned())
	}
	assert.Equal(t, 1, f.profiles.GetCalls())
}

func TestSessionResolver_RequiresEventsForResolve(t *testing.T) {
	t.Parallel()
	r := NewSessionResolver(SessionResolverOptions{
		Sessions: authmocks.NewMemorySessionStore(),
		Profiles: authmocks.NewMemoryProfileStore(),
	})
	_, err := r.Resolve(context.Background(), "s1")
	require.Error(t, err)
}
