package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/trackerhub/internal/storage"
	"github.com/mesh-intelligence/trackerhub/internal/store"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

func newTestService(t *testing.T) (*Service, types.Table) {
	t.Helper()
	b := store.NewBackend(store.WithSlot(storage.NewMemorySlot()))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory, UserID: "u-1"}))
	t.Cleanup(func() { b.Detach() })

	users, err := b.Table(types.TableUsers)
	require.NoError(t, err)

	svc := New(users, types.User{ID: "u-1", Email: "me@example.com", DisplayName: "Me"})
	return svc, users
}

func TestCurrentUserCreatedLazily(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	rows, err := users.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	u, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.User{ID: "u-1", Email: "me@example.com", DisplayName: "Me"}, u)

	again, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, again)

	rows, err = users.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDefaultUserID(t *testing.T) {
	svc := New(nil, types.User{})
	assert.Equal(t, types.DefaultUserID, svc.defaults.ID)
}

func TestUpdateCurrentUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.UpdateCurrentUser(ctx, types.NewPatch(map[string]any{
		"display_name": "<b>New</b> Name",
		"email":        "  NEW@Example.com ",
	}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "New Name", u.DisplayName)
	assert.Equal(t, "new@example.com", u.Email)

	got, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestUpdateCurrentUserKeepsID(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.UpdateCurrentUser(context.Background(), types.NewPatch(map[string]any{"id": "other"}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestUpdateCurrentUserRejectsBadEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateCurrentUser(context.Background(), types.NewPatch(map[string]any{"email": "nope"}))
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestLogoutAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.True(t, svc.Authenticated())
	assert.Equal(t, "/", svc.Logout(""))
	assert.Equal(t, "/goodbye", svc.Logout("/goodbye"))
	assert.False(t, svc.Authenticated())

	_, err := svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
	_, err = svc.UpdateCurrentUser(ctx, types.NewPatch(map[string]any{"display_name": "x"}))
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	u, err := svc.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.True(t, svc.Authenticated())
}
