package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Chavhanmoin/CrackBatu/internal/data/pgxutil"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	apperrors "github.com/Chavhanmoin/CrackBatu/internal/errors"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

const profileColumns = `subject_id, name, email, role, department, created_at, last_login`

const (
	profileGetQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE subject_id = $1`

	// A create that loses a race with another first login converges to the
	// merge result instead of failing.
	profileCreateQuery = `
		INSERT INTO profiles (subject_id, name, email, role, department, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (subject_id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), profiles.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			last_login = now()
		RETURNING ` + profileColumns

	profileMergeQuery = `
		UPDATE profiles SET
			name = COALESCE(NULLIF($2, ''), name),
			email = COALESCE(NULLIF($3, ''), email),
			last_login = now()
		WHERE subject_id = $1
		RETURNING ` + profileColumns

	profileQueryAll = `SELECT ` + profileColumns + ` FROM profiles ORDER BY name, subject_id`

	profileQueryByDepartment = `SELECT ` + profileColumns + `
		FROM profiles WHERE department = $1 ORDER BY name, subject_id`
)

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo stores profiles in PostgreSQL. Timestamps are assigned by the
// database clock.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

// Get returns the profile for subjectID or profile.ErrNotFound.
func (r *ProfileRepo) Get(ctx context.Context, subjectID string) (*profile.Profile, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, profile.ErrSubjectRequired
	}
	p, err := r.one(ctx, profileGetQuery, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}
	return p, nil
}

// Set creates or merges a profile. See ports.ProfileStore for semantics.
func (r *ProfileRepo) Set(ctx context.Context, p profile.Profile, merge bool) (*profile.Profile, error) {
	if merge {
		if strings.TrimSpace(p.SubjectID) == "" {
			return nil, profile.ErrSubjectRequired
		}
		out, err := r.one(ctx, profileMergeQuery, p.SubjectID, p.Name, p.Email)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("merge profile: %w", apperrors.MapDBError(err))
		}
		return out, nil
	}

	if err := p.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid profile")
	}
	out, err := r.one(ctx, profileCreateQuery,
		p.SubjectID,
		strings.TrimSpace(p.Name),
		strings.TrimSpace(p.Email),
		p.Role,
		p.Department,
	)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Query lists profiles, optionally restricted to one department.
func (r *ProfileRepo) Query(ctx context.Context, f profile.Filter) ([]profile.Profile, error) {
	query, args := profileQueryAll, []any(nil)
	if f.Department != nil {
		query, args = profileQueryByDepartment, []any{*f.Department}
	}

	out, err := pgxutil.CollectAll[profile.Profile](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func (r *ProfileRepo) one(ctx context.Context, query string, args ...any) (*profile.Profile, error) {
	out, err := pgxutil.CollectOne[profile.Profile](ctx, r.DB, query, args...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
