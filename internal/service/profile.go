package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/observability/metrics"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

// ErrListingNotPermitted is returned when a decision carries no department scope.
var ErrListingNotPermitted = errors.New("user listing requires an admin decision")

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Store   ports.ProfileStore // Required
	Logger  *slog.Logger       // Optional
	Metrics *metrics.Recorder  // Optional
}

// ProfileService provisions profiles on sign-in and lists them for admins.
type ProfileService struct {
	store   ports.ProfileStore
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewProfileService constructs a new ProfileService.
func NewProfileService(opts ProfileServiceOptions) *ProfileService {
	if opts.Store == nil {
		panic("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		store:   opts.Store,
		logger:  logger.With("component", "profile_service"),
		metrics: opts.Metrics,
	}
}

// Upsert ensures a profile exists for id and records the login. A new
// profile is a student with no department; an existing one keeps its role,
// department and created_at and only takes supplied name/email.
func (s *ProfileService) Upsert(
	ctx context.Context,
	id domainauth.Identity,
	supplied profile.Supplied,
) (*profile.Profile, error) {
	if strings.TrimSpace(id.SubjectID) == "" {
		return nil, &profile.WriteError{Err: profile.ErrSubjectRequired}
	}

	_, err := s.store.Get(ctx, id.SubjectID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return s.create(ctx, id, supplied)
	case err != nil:
		s.metrics.StoreFailure("get", err)
		return nil, &profile.FetchError{SubjectID: id.SubjectID, Err: err}
	}

	p, err := s.store.Set(ctx, profile.Profile{
		SubjectID: id.SubjectID,
		Name:      deref(supplied.Name),
		Email:     deref(supplied.Email),
	}, true)
	if err != nil {
		s.metrics.StoreFailure("merge", err)
		s.metrics.ProfileUpsert("merge", metrics.ResultError)
		return nil, &profile.WriteError{SubjectID: id.SubjectID, Err: err}
	}
	s.metrics.ProfileUpsert("merge", metrics.ResultSuccess)
	return p, nil
}

func (s *ProfileService) create(
	ctx context.Context,
	id domainauth.Identity,
	supplied profile.Supplied,
) (*profile.Profile, error) {
	p, err := s.store.Set(ctx, profile.Profile{
		SubjectID: id.SubjectID,
		Name:      firstNonEmpty(deref(supplied.Name), id.Name),
		Email:     firstNonEmpty(deref(supplied.Email), id.Email),
		Role:      profile.RoleStudent,
	}, false)
	if err != nil {
		s.metrics.StoreFailure("create", err)
		s.metrics.ProfileUpsert("create", metrics.ResultError)
		return nil, &profile.WriteError{SubjectID: id.SubjectID, Err: err}
	}
	s.metrics.ProfileUpsert("create", metrics.ResultSuccess)
	s.logger.InfoContext(ctx, "profile provisioned", "subject_id", p.SubjectID, "method", id.Method)
	return p, nil
}

// Find returns the profile for subjectID. profile.ErrNotFound is returned as
// is; any other failure is a *profile.FetchError.
func (s *ProfileService) Find(ctx context.Context, subjectID string) (*profile.Profile, error) {
	p, err := s.store.Get(ctx, subjectID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return nil, err
	case err != nil:
		s.metrics.StoreFailure("get", err)
		return nil, &profile.FetchError{SubjectID: subjectID, Err: err}
	}
	return p, nil
}

// ListUsers returns the profiles visible under an allowed gate decision:
// everyone for super admins, the own department for department admins.
func (s *ProfileService) ListUsers(ctx context.Context, d access.Decision) ([]profile.Profile, error) {
	if !d.Allowed() {
		return nil, ErrListingNotPermitted
	}

	var f profile.Filter
	switch {
	case d.Grants.AllDepartments:
	case len(d.Grants.Departments) == 1:
		f.Department = profile.DepartmentPtr(d.Grants.Departments[0])
	default:
		return nil, ErrListingNotPermitted
	}

	users, err := s.store.Query(ctx, f)
	if err != nil {
		s.metrics.StoreFailure("query", err)
		return nil, &profile.FetchError{Err: err}
	}
	return users, nil
}

// ListDepartment returns the profiles of one department when the decision's
// grants cover it.
func (s *ProfileService) ListDepartment(
	ctx context.Context,
	d access.Decision,
	dept profile.Department,
) ([]profile.Profile, error) {
	if !d.Allowed() || !d.Grants.AllowsDepartment(dept) {
		return nil, ErrListingNotPermitted
	}
	users, err := s.store.Query(ctx, profile.Filter{Department: profile.DepartmentPtr(dept)})
	if err != nil {
		s.metrics.StoreFailure("query", err)
		return nil, &profile.FetchError{Err: err}
	}
	return users, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
