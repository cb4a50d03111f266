package ports

import (
	"context"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
)

// ProfileStore persists profiles keyed by subject id.
//
// Get returns profile.ErrNotFound when no profile exists. Set with merge=false
// creates the profile with server-assigned created_at and last_login; if the
// subject already exists it falls back to a merge. Set with merge=true updates
// only name, email and last_login and returns profile.ErrNotFound for an
// unknown subject. Role, department and created_at are never overwritten.
type ProfileStore interface {
	Get(ctx context.Context, subjectID string) (*profile.Profile, error)
	Set(ctx context.Context, p profile.Profile, merge bool) (*profile.Profile, error)
	Query(ctx context.Context, f profile.Filter) ([]profile.Profile, error)
}
