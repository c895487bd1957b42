package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gymchallenge/attendance"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newMemUsers(), nil, nil)

	u, err := svc.Register(ctx, Registration{
		Username:    "ana",
		Password:    "secret123",
		Email:       " Ana@Example.com ",
		DisplayName: "<i>Ana</i>",
		Avatar:      "💪",
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "Ana", u.DisplayName)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	_, err = svc.Register(ctx, Registration{Username: "ana", Password: "another1"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := svc.Authenticate(ctx, "ana", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newMemUsers(), nil, nil)

	_, err := svc.Register(ctx, Registration{Username: "a", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, Registration{Username: "ana", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, Registration{Username: "ana", Password: "secret123", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterStoreDown(t *testing.T) {
	users := newMemUsers()
	users.fail = true
	_, err := NewUserService(users, nil, nil).Register(context.Background(), Registration{Username: "ana", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newMemUsers("ana"), nil, nil)

	name := "  Ana the <b>Strong</b> "
	avatar := "🏋️‍♀️ extra text"
	u, err := svc.UpdateProfile(ctx, 1, ProfileUpdate{DisplayName: &name, Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Ana the Strong", u.DisplayName)
	assert.LessOrEqual(t, len([]rune(u.Avatar)), 8)

	empty := ""
	u, err = svc.UpdateProfile(ctx, 1, ProfileUpdate{DisplayName: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Member", u.Name())

	_, err = svc.UpdateProfile(ctx, 42, ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newMemUsers("ana", "anabel", "bruno"), nil, nil)

	_, err := svc.Search(ctx, "a", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	found, err := svc.Search(ctx, "ana", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, uint(2), found[0].ID)
	assert.Equal(t, "Anabel", found[0].Name)
}

func TestMemberChangesInvalidateRankings(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	cache.Set(ctx, StatsCachePrefix+"all:2026-03-02:weekly:2026-03-04", []byte(`{}`))
	svc := NewUserService(newMemUsers("ana"), cache, nil)

	_, err := svc.Register(ctx, Registration{Username: "bruno", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.Empty(t, cache.data)

	cache.Set(ctx, StatsCachePrefix+"all:2026-03-02:weekly:2026-03-04", []byte(`{}`))
	avatar := "🏃"
	_, err = svc.UpdateProfile(ctx, 1, ProfileUpdate{Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)
	assert.Empty(t, cache.data)

	// failed writes leave the cache alone
	_, err = svc.Register(ctx, Registration{Username: "bruno", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 2, cache.invalidated)
}

func TestRankingShowsNewMemberAfterRegister(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers("ana")
	cache := newMemCache()
	stats := newStats(t, newMemCheckIns(), users, cache)
	svc := NewUserService(users, cache, nil)

	before, err := stats.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	require.Len(t, before.Users, 1)

	_, err = svc.Register(ctx, Registration{Username: "bruno", Password: "secret123"})
	require.NoError(t, err)

	after, err := stats.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	assert.Len(t, after.Users, 2)
}
