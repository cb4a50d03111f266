package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Chavhanmoin/CrackBatu/internal/data/pgxutil"
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	apperrors "github.com/Chavhanmoin/CrackBatu/internal/errors"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

const credentialColumns = `subject_id, email, password_hash, display_name, email_verified, created_at, updated_at`

var _ ports.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores password accounts in PostgreSQL.
type CredentialRepo struct {
	DB *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{DB: db}
}

// Create inserts a password account.
func (r *CredentialRepo) Create(ctx context.Context, c domainauth.Credential) (*domainauth.Credential, error) {
	if c.SubjectID == "" || c.PasswordHash == "" {
		return nil, ErrCredentialIncomplete
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return nil, ErrCredentialIncomplete
	}

	const q = `
		INSERT INTO credentials (subject_id, email, password_hash, display_name, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + credentialColumns

	out, err := pgxutil.CollectOne[domainauth.Credential](ctx, r.DB, q,
		c.SubjectID, email, c.PasswordHash, strings.TrimSpace(c.DisplayName), c.EmailVerified)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, domainauth.ErrEmailTaken
		}
		return nil, fmt.Errorf("create credential: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByEmail looks up a password account by email, ignoring case.
func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (*domainauth.Credential, error) {
	const q = `SELECT ` + credentialColumns + ` FROM credentials WHERE lower(email) = lower($1)`

	out, err := pgxutil.CollectOne[domainauth.Credential](ctx, r.DB, q, strings.TrimSpace(email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainauth.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// RecordPasswordReset stores a reset request.
func (r *CredentialRepo) RecordPasswordReset(ctx context.Context, email string, subjectID *string) error {
	const q = `INSERT INTO password_reset_requests (email, subject_id) VALUES ($1, $2)`
	if _, err := r.DB.ExecContext(ctx, q, strings.TrimSpace(email), subjectID); err != nil {
		return fmt.Errorf("record password reset: %w", apperrors.MapDBError(err))
	}
	return nil
}
