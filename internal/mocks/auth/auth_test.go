package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/ports"
)

func TestMockFederatedProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockFederatedProvider()
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/auth/callback"}
	authURL, state, nonce, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state2, nonce2, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockFederatedProvider_Exchange_ForcesFederatedMethod(t *testing.T) {
	provider := &MockFederatedProvider{DefaultUser: domainauth.Identity{SubjectID: "g1", Email: "g1@example.edu"}}
	id, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "g1", id.SubjectID)
	assert.Equal(t, domainauth.MethodFederated, id.Method)
}

func TestMockPasswordProvider_SignInErrors(t *testing.T) {
	provider := NewMockPasswordProvider()
	provider.AddAccount("a@example.edu", MockAccount{SubjectID: "u1", Password: "secret1"})
	ctx := context.Background()

	_, err := provider.SignIn(ctx, "not-an-email", "x")
	assert.True(t, domainauth.IsKind(err, domainauth.ErrInvalidEmail))

	_, err = provider.SignIn(ctx, "b@example.edu", "x")
	assert.True(t, domainauth.IsKind(err, domainauth.ErrUserNotFound))

	_, err = provider.SignIn(ctx, "a@example.edu", "wrong")
	assert.True(t, domainauth.IsKind(err, domainauth.ErrInvalidCredential))

	id, err := provider.SignIn(ctx, "A@example.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.SubjectID)
	assert.Equal(t, domainauth.MethodPassword, id.Method)
}

func TestMockPasswordProvider_SignUp(t *testing.T) {
	provider := NewMockPasswordProvider()
	ctx := context.Background()

	id, err := provider.SignUp(ctx, ports.SignUpInput{Email: "new@example.edu", Password: "secret1", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "local-user-1", id.SubjectID)

	_, err = provider.SignUp(ctx, ports.SignUpInput{Email: "new@example.edu", Password: "secret1"})
	assert.True(t, domainauth.IsKind(err, domainauth.ErrEmailInUse))

	_, err = provider.SignUp(ctx, ports.SignUpInput{Email: "other@example.edu", Password: "123"})
	assert.True(t, domainauth.IsKind(err, domainauth.ErrWeakPassword))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, store.Save(ctx, domainauth.Session{}))
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", SubjectID: "u1"}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.SubjectID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestMemoryProfileStore_CreateMergeQuery(t *testing.T) {
	store := NewMemoryProfileStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, profile.ErrNotFound)

	created, err := store.Set(ctx, profile.Profile{SubjectID: "u1", Name: "A", Role: profile.RoleStudent}, false)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	require.NotNil(t, created.LastLogin)

	_, err = store.Set(ctx, profile.Profile{SubjectID: "missing"}, true)
	require.ErrorIs(t, err, profile.ErrNotFound)

	merged, err := store.Set(ctx, profile.Profile{SubjectID: "u1", Name: "B", Role: profile.RoleSuperAdmin}, true)
	require.NoError(t, err)
	assert.Equal(t, "B", merged.Name)
	assert.Equal(t, profile.RoleStudent, merged.Role)
	assert.Equal(t, created.CreatedAt, merged.CreatedAt)

	store.Put(profile.Profile{
		SubjectID:  "u2",
		Name:       "C",
		Role:       profile.RoleCivilAdmin,
		Department: profile.DepartmentPtr(profile.DepartmentCivil),
	})
	all, err := store.Query(ctx, profile.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	civil, err := store.Query(ctx, profile.Filter{Department: profile.DepartmentPtr(profile.DepartmentCivil)})
	require.NoError(t, err)
	require.Len(t, civil, 1)
	assert.Equal(t, "u2", civil[0].SubjectID)

	assert.Equal(t, 1, store.GetCalls())
	assert.Equal(t, 3, store.SetCalls())
}
