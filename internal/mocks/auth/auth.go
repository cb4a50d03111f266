package auth

// Package auth contains simple hand-written test doubles for identity,
// session and profile ports. These are lightweight and suitable for unit
// tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.FederatedProvider = (*MockFederatedProvider)(nil)
	_ ports.PasswordProvider  = (*MockPasswordProvider)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.ProfileStore      = (*MemoryProfileStore)(nil)
)

// MockFederatedProvider simulates an external IdP with deterministic state/nonce handling.
type MockFederatedProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	DefaultUser domainauth.Identity

	mu        sync.Mutex
	callCount int
}

// NewMockFederatedProvider creates a MockFederatedProvider with sensible defaults.
func NewMockFederatedProvider() *MockFederatedProvider {
	return &MockFederatedProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.Identity{
			SubjectID:     "google-user-1",
			Email:         "google.user@example.edu",
			Name:          "Google User",
			EmailVerified: true,
			Method:        domainauth.MethodFederated,
		},
	}
}

func (m *MockFederatedProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

func (m *MockFederatedProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	user := m.DefaultUser
	if user.SubjectID == "" {
		user = domainauth.Identity{SubjectID: "google-user-1", Email: "google.user@example.edu"}
	}
	user.Method = domainauth.MethodFederated
	return user, nil
}

// MockAccount is a password account known to MockPasswordProvider.
type MockAccount struct {
	SubjectID     string
	Password      string
	Name          string
	EmailVerified bool
}

// MockPasswordProvider is an in-memory password identity provider.
type MockPasswordProvider struct {
	SignInFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)

	mu       sync.Mutex
	accounts map[string]MockAccount
	resets   []string
	nextID   int
}

// NewMockPasswordProvider creates an empty password provider.
func NewMockPasswordProvider() *MockPasswordProvider {
	return &MockPasswordProvider{accounts: make(map[string]MockAccount)}
}

// AddAccount registers an account under email.
func (m *MockPasswordProvider) AddAccount(email string, acct MockAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[strings.ToLower(email)] = acct
}

// Resets returns the emails a reset was requested for.
func (m *MockPasswordProvider) Resets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resets...)
}

func (m *MockPasswordProvider) SignIn(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	if !strings.Contains(email, "@") {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrInvalidEmail, nil)
	}
	m.mu.Lock()
	acct, ok := m.accounts[strings.ToLower(email)]
	m.mu.Unlock()
	if !ok {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrUserNotFound, nil)
	}
	if acct.Password != password {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrInvalidCredential, nil)
	}
	return domainauth.Identity{
		SubjectID:     acct.SubjectID,
		Email:         strings.ToLower(email),
		Name:          acct.Name,
		EmailVerified: acct.EmailVerified,
		Method:        domainauth.MethodPassword,
	}, nil
}

func (m *MockPasswordProvider) SignUp(_ context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	if !strings.Contains(in.Email, "@") {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrInvalidEmail, nil)
	}
	if len(in.Password) < 6 {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrWeakPassword, nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(in.Email)
	if _, exists := m.accounts[key]; exists {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrEmailInUse, nil)
	}
	m.nextID++
	acct := MockAccount{
		SubjectID:     fmt.Sprintf("local-user-%d", m.nextID),
		Password:      in.Password,
		Name:          in.Name,
		EmailVerified: true,
	}
	m.accounts[key] = acct
	return domainauth.Identity{
		SubjectID:     acct.SubjectID,
		Email:         key,
		Name:          in.Name,
		EmailVerified: true,
		Method:        domainauth.MethodPassword,
	}, nil
}

func (m *MockPasswordProvider) SendPasswordReset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, email)
	return nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrNotFound is returned by MemorySessionStore when a session is not present.
var ErrNotFound = domainauth.ErrSessionNotFound

// MemoryProfileStore is an in-memory profile store. GetFunc, when set,
// replaces the lookup so tests can inject failures or hangs.
type MemoryProfileStore struct {
	GetFunc func(ctx context.Context, subjectID string) (*profile.Profile, error)
	SetFunc func(ctx context.Context, p profile.Profile, merge bool) (*profile.Profile, error)
	Now     func() time.Time

	mu       sync.Mutex
	profiles map[string]profile.Profile
	gets     int
	sets     int
}

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]profile.Profile)}
}

// Put stores p as-is, bypassing server-managed field handling.
func (m *MemoryProfileStore) Put(p profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.SubjectID] = p
}

// GetCalls returns how many times Get was called.
func (m *MemoryProfileStore) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// SetCalls returns how many times Set was called.
func (m *MemoryProfileStore) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func (m *MemoryProfileStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MemoryProfileStore) Get(ctx context.Context, subjectID string) (*profile.Profile, error) {
	m.mu.Lock()
	m.gets++
	fn := m.GetFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, subjectID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[subjectID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryProfileStore) Set(ctx context.Context, p profile.Profile, merge bool) (*profile.Profile, error) {
	m.mu.Lock()
	m.sets++
	fn := m.SetFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, p, merge)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	existing, ok := m.profiles[p.SubjectID]
	if !ok && merge {
		return nil, profile.ErrNotFound
	}
	if !ok {
		p.CreatedAt = now
		p.LastLogin = &now
		m.profiles[p.SubjectID] = p
		return &p, nil
	}
	if p.Name != "" {
		existing.Name = p.Name
	}
	if p.Email != "" {
		existing.Email = p.Email
	}
	existing.LastLogin = &now
	m.profiles[p.SubjectID] = existing
	return &existing, nil
}

func (m *MemoryProfileStore) Query(_ context.Context, f profile.Filter) ([]profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if f.Department != nil && (p.Department == nil || *p.Department != *f.Department) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
