package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Verified(t *testing.T) {
	assert.True(t, Identity{Method: MethodFederated}.Verified())
	assert.True(t, Identity{Method: MethodPassword, EmailVerified: true}.Verified())
	assert.False(t, Identity{Method: MethodPassword}.Verified())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}

func TestSession_Identity(t *testing.T) {
	s := Session{ID: "sid", SubjectID: "u", Email: "e", Name: "n", EmailVerified: true, Method: MethodPassword}
	id := s.Identity()
	assert.Equal(t, "u", id.SubjectID)
	assert.Equal(t, "e", id.Email)
	assert.Equal(t, "n", id.Name)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, MethodPassword, id.Method)
}

func TestAuthError(t *testing.T) {
	cause := errors.New("bad")
	err := fmt.Errorf("sign in: %w", NewAuthError(ErrUserNotFound, cause))

	assert.True(t, IsKind(err, ErrUserNotFound))
	assert.False(t, IsKind(err, ErrInvalidCredential))
	assert.ErrorIs(t, err, cause)

	ae, ok := AsAuthError(err)
	assert.True(t, ok)
	assert.Equal(t, "user_not_found: bad", ae.Error())
	assert.Equal(t, "User does not exist. Please sign up first.", ae.Message())

	assert.Equal(t, "Incorrect password.", NewAuthError(ErrInvalidCredential, nil).Message())
	assert.Equal(t, "invalid_email", NewAuthError(ErrInvalidEmail, nil).Error())
}
