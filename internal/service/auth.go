package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

const (
	// DefaultSessionTTL applies when AuthPolicy.SessionTTL is zero.
	DefaultSessionTTL = 24 * time.Hour

	StudentHome = "/dashboard"
	AdminHome   = "/admin/dashboard"
)

var (
	// ErrNoAdminRecord is returned by AdminSignIn for accounts without an admin profile.
	ErrNoAdminRecord = errors.New("no admin record found")
	// ErrFederatedDisabled is returned when no federated provider is configured.
	ErrFederatedDisabled = errors.New("federated sign-in is not configured")
	errSessionIDRequired = errors.New("session ID is required")
)

// NoAdminRecordMessage is shown to users rejected by AdminSignIn.
const NoAdminRecordMessage = "No admin record found. Contact super admin."

// IdentityProviders groups the identity provider clients.
type IdentityProviders struct {
	Password  ports.PasswordProvider  // Required
	Federated ports.FederatedProvider // Optional; federated sign-in is disabled when nil
}

// SessionDeps groups session persistence and change notifications.
type SessionDeps struct {
	Store  ports.SessionStore  // Required
	Events ports.SessionEvents // Optional
}

// AuthPolicy holds sign-in settings.
type AuthPolicy struct {
	SessionTTL           time.Duration
	RequireVerifiedEmail bool
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Providers IdentityProviders
	Sessions  SessionDeps
	Profiles  *ProfileService // Required
	Policy    AuthPolicy
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// AuthService orchestrates sign-in flows: it authenticates with an identity
// provider, provisions the profile, persists a session and announces it.
type AuthService struct {
	password  ports.PasswordProvider
	federated ports.FederatedProvider
	sessions  ports.SessionStore
	events    ports.SessionEvents
	profiles  *ProfileService
	policy    AuthPolicy
	logger    *slog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Providers.Password == nil {
		panic("PasswordProvider is required")
	}
	if opts.Sessions.Store == nil {
		panic("SessionStore is required")
	}
	if opts.Profiles == nil {
		panic("ProfileService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy.SessionTTL <= 0 {
		policy.SessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		password:  opts.Providers.Password,
		federated: opts.Providers.Federated,
		sessions:  opts.Sessions.Store,
		events:    opts.Sessions.Events,
		profiles:  opts.Profiles,
		policy:    policy,
		logger:    logger.With("component", "auth_service"),
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	Session    domainauth.Session
	Profile    *profile.Profile
	RedirectTo string
}

// SignIn authenticates a password account for the student audience.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	res, err := s.signIn(ctx, email, password)
	s.recordSignIn(domainauth.MethodPassword, access.AudienceStudent, err)
	return res, err
}

func (s *AuthService) signIn(ctx context.Context, email, password string) (*SignInResult, error) {
	id, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.Upsert(ctx, id, profile.Supplied{})
	if err != nil {
		return nil, err
	}
	sess, err := s.startSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Session: sess, Profile: p, RedirectTo: StudentHome}, nil
}

// AdminSignIn authenticates a password account for the admin audience. The
// account must already have an admin profile; otherwise no session is kept
// and ErrNoAdminRecord is returned.
func (s *AuthService) AdminSignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	res, err := s.adminSignIn(ctx, email, password)
	s.recordSignIn(domainauth.MethodPassword, access.AudienceAdmin, err)
	return res, err
}

func (s *AuthService) adminSignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	id, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	existing, err := s.profiles.Find(ctx, id.SubjectID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		s.logger.WarnContext(ctx, "admin sign-in without profile", "subject_id", id.SubjectID)
		return nil, ErrNoAdminRecord
	case err != nil:
		return nil, err
	case !existing.Role.IsAdmin():
		s.logger.WarnContext(ctx, "admin sign-in by non-admin", "subject_id", id.SubjectID, "role", existing.Role)
		return nil, ErrNoAdminRecord
	}

	p, err := s.profiles.Upsert(ctx, id, profile.Supplied{})
	if err != nil {
		return nil, err
	}
	sess, err := s.startSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Session: sess, Profile: p, RedirectTo: AdminLanding(p)}, nil
}

// AdminLanding returns the dashboard URL for an admin profile. Department
// admins land on their own department.
func AdminLanding(p *profile.Profile) string {
	if p == nil || !p.Role.IsDepartmentAdmin() || p.Department == nil {
		return AdminHome
	}
	return AdminHome + "?" + url.Values{"dept": {string(*p.Department)}}.Encode()
}

// SignUpResult is the outcome of registering an account. Session is nil
// when the account must verify its email before signing in.
type SignUpResult struct {
	Profile             *profile.Profile
	Session             *domainauth.Session
	VerificationPending bool
	RedirectTo          string
}

// SignUp registers a password account and provisions a student profile.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*SignUpResult, error) {
	id, err := s.password.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}

	supplied := profile.Supplied{}
	if name := strings.TrimSpace(in.Name); name != "" {
		supplied.Name = &name
	}
	if id.Email != "" {
		supplied.Email = &id.Email
	}
	p, err := s.profiles.Upsert(ctx, id, supplied)
	if err != nil {
		return nil, err
	}

	if s.policy.RequireVerifiedEmail && !id.Verified() {
		s.logger.InfoContext(ctx, "account awaiting email verification", "subject_id", id.SubjectID)
		return &SignUpResult{Profile: p, VerificationPending: true, RedirectTo: access.StudentLoginPath}, nil
	}

	sess, err := s.startSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{Profile: p, Session: &sess, RedirectTo: StudentHome}, nil
}

// SendPasswordReset asks the password provider to start a reset for email.
func (s *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return domainauth.NewAuthError(domainauth.ErrInvalidEmail, errors.New("email is required"))
	}
	if err := s.password.SendPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

// BeginLoginResult contains the result of beginning a federated login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginFederated initiates a federated flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginFederated(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.federated == nil {
		return nil, ErrFederatedDisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.federated.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a federated login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteFederated exchanges the authorization code, provisions the
// profile on first login and starts a session.
func (s *AuthService) CompleteFederated(ctx context.Context, input CompleteLoginInput) (*SignInResult, error) {
	res, err := s.completeFederated(ctx, input)
	s.recordSignIn(domainauth.MethodFederated, access.AudienceStudent, err)
	return res, err
}

func (s *AuthService) completeFederated(ctx context.Context, input CompleteLoginInput) (*SignInResult, error) {
	if s.federated == nil {
		return nil, ErrFederatedDisabled
	}
	if input.Code == "" {
		return nil, domainauth.NewAuthError(domainauth.ErrProvider, errors.New("authorization code is required"))
	}
	if input.State == "" || input.Nonce == "" {
		return nil, domainauth.NewAuthError(domainauth.ErrProvider, errors.New("state and nonce are required"))
	}

	id, err := s.federated.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		if _, ok := domainauth.AsAuthError(err); ok {
			return nil, err
		}
		return nil, domainauth.NewAuthError(domainauth.ErrProvider, fmt.Errorf("exchange authorization code: %w", err))
	}

	p, err := s.profiles.Upsert(ctx, id, profile.Supplied{})
	if err != nil {
		return nil, err
	}
	sess, err := s.startSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Session: sess, Profile: p, RedirectTo: StudentHome}, nil
}

// GetSession retrieves a live session by ID. Expired sessions are removed.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errSessionIDRequired
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(domainauth.ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, domainauth.ErrSessionExpired
	}

	return &session, nil
}

// Refresh extends a live session by the configured TTL.
func (s *AuthService) Refresh(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = s.now().Add(s.policy.SessionTTL)
	if err = s.sessions.Save(ctx, *session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.publish(ctx, session.ID, domainauth.EventRefresh, session.SubjectID)
	return session, nil
}

// SignOut removes a session and announces the logout.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to sign out
	}

	var subjectID string
	if sess, err := s.sessions.Get(ctx, sessionID); err == nil {
		subjectID = sess.SubjectID
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, sessionID, domainauth.EventLogout, subjectID)
	return nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (domainauth.Identity, error) {
	id, err := s.password.SignIn(ctx, email, password)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if s.policy.RequireVerifiedEmail && !id.Verified() {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.ErrEmailNotVerified, nil)
	}
	return id, nil
}

func (s *AuthService) startSession(ctx context.Context, id domainauth.Identity) (domainauth.Session, error) {
	session := domainauth.Session{
		ID:            generateSessionID(),
		SubjectID:     id.SubjectID,
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
		Method:        id.Method,
		ExpiresAt:     s.now().Add(s.policy.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	s.publish(ctx, session.ID, domainauth.EventLogin, session.SubjectID)
	return session, nil
}

// publish is best effort; subscribers re-resolve on their next event.
func (s *AuthService) publish(ctx context.Context, sessionID string, kind domainauth.EventKind, subjectID string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, domainauth.SessionEvent{
		SessionID: sessionID,
		Kind:      kind,
		SubjectID: subjectID,
		At:        s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "publish session event failed", "kind", kind, "error", err)
		return
	}
	s.metrics.SessionEvent(string(kind))
}

func (s *AuthService) recordSignIn(method domainauth.Method, audience access.Audience, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		if ae, ok := domainauth.AsAuthError(err); ok {
			result = string(ae.Kind)
		} else if errors.Is(err, ErrNoAdminRecord) {
			result = "no_admin_record"
		}
	}
	s.metrics.SignIn(string(method), string(audience), result)
}

// generateSessionID creates a random session ID.
func generateSessionID() string {
	return uuid.NewString()
}
