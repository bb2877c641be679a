package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gosimple/slug"
	"github.com/stretchr/testify/require"

	"virtual-campus/config"
	"virtual-campus/storage"
)

func newTestAuth(kv storage.KV) *AuthService {
	auth := NewAuthService(kv, 125, false)
	auth.Clock = fixedClock(testEpoch)
	return auth
}

func TestLoginValidation(t *testing.T) {
	auth := newTestAuth(storage.NewMemoryKV(0))

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret"},
		{"empty password", "ana@example.com", ""},
		{"no at", "ana.example.com", "secret"},
		{"no dot in domain", "ana@example", "secret"},
		{"space", "ana maria@example.com", "secret"},
		{"two ats", "ana@@example.com", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLoginCreatesSession(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(storage.NewMemoryKV(0))

	user, err := auth.Login(ctx, "juan.perez@example.com", "x")
	require.NoError(t, err)
	require.NotEmpty(t, user.Token)
	require.Equal(t, "juan.perez", user.Name)
	require.Equal(t, "Juan Perez", user.DisplayName)
	require.Equal(t, 125, user.Points)
	require.Equal(t, testEpoch, user.LoginTime)
	require.Equal(t, ScopeForEmail("juan.perez@example.com"), user.Scope)
	require.True(t, strings.HasPrefix(user.Scope, slug.Make("juan.perez@example.com")+"-"), user.Scope)

	current, err := auth.CurrentUser(ctx, user.Token)
	require.NoError(t, err)
	require.Equal(t, user, current)
	require.True(t, auth.IsAuthenticated(ctx, user.Token))
	require.False(t, auth.IsAuthenticated(ctx, "someone-else"))
	require.False(t, auth.IsAuthenticated(ctx, ""))
}

func TestGlobalScope(t *testing.T) {
	auth := NewAuthService(storage.NewMemoryKV(0), 0, true)
	user, err := auth.Login(context.Background(), "ana@example.com", "x")
	require.NoError(t, err)
	require.Equal(t, config.ScopeGlobal, user.Scope)
	require.Zero(t, user.Points)
}

func TestUpdatePoints(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(storage.NewMemoryKV(0))
	user, err := auth.Login(ctx, "ana@example.com", "x")
	require.NoError(t, err)

	updated, err := auth.UpdatePoints(ctx, user.Token, 400)
	require.NoError(t, err)
	require.Equal(t, 400, updated.Points)

	current, err := auth.CurrentUser(ctx, user.Token)
	require.NoError(t, err)
	require.Equal(t, 400, current.Points)

	_, err = auth.UpdatePoints(ctx, "missing", 1)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMalformedSessionIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	require.NoError(t, kv.Set(ctx, UserKey("tok"), "not json"))

	_, err := newTestAuth(kv).CurrentUser(ctx, "tok")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutRemovesScopedKeys(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	auth := newTestAuth(kv)
	registry := newTestRegistry(t, kv)

	ana, err := auth.Login(ctx, "ana@example.com", "x")
	require.NoError(t, err)
	bea, err := auth.Login(ctx, "bea@example.com", "x")
	require.NoError(t, err)

	for _, u := range []string{ana.Scope, bea.Scope} {
		_, err := registry.Store(ctx, u)
		require.NoError(t, err)
		require.NoError(t, NewUnlockFeed(kv, 0).Append(ctx, unlockEvent(u, "mentor")))
	}
	require.NoError(t, kv.Set(ctx, "unrelated:"+ana.Scope, "keep"))

	require.NoError(t, auth.Logout(ctx, ana.Token))

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"unrelated:" + ana.Scope,
		UserKey(bea.Token),
		BadgesKey(bea.Scope),
		BadgesResetKey(bea.Scope),
		UnlockFeedKey(bea.Scope),
	}, keys)

	require.ErrorIs(t, auth.Logout(ctx, ana.Token), ErrUnauthenticated)
}

func TestScopeForEmail(t *testing.T) {
	require.Equal(t, ScopeForEmail("Ana@Example.com "), ScopeForEmail("ana@example.com"))
	require.Regexp(t, "^"+slug.Make("ana@example.com")+"-[0-9a-f]{12}$", ScopeForEmail("ana@example.com"))
	require.NotEqual(t, ScopeForEmail("ana@example.com"), ScopeForEmail("bea@example.com"))
}

func TestSluggedAlikeAddressesKeepSeparateRecords(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	auth := newTestAuth(kv)
	registry := newTestRegistry(t, kv)

	require.Equal(t, slug.Make("a.b@c.com"), slug.Make("a-b@c.com"))

	dot, err := auth.Login(ctx, "a.b@c.com", "x")
	require.NoError(t, err)
	dash, err := auth.Login(ctx, "a-b@c.com", "x")
	require.NoError(t, err)
	require.NotEqual(t, dot.Scope, dash.Scope)

	dotStore, err := registry.Store(ctx, dot.Scope)
	require.NoError(t, err)
	_, err = dotStore.Unlock(ctx, "mentor")
	require.NoError(t, err)

	dashStore, err := registry.Store(ctx, dash.Scope)
	require.NoError(t, err)
	mentor, _ := dashStore.GetByID("mentor")
	require.False(t, mentor.Unlocked)

	require.NoError(t, auth.Logout(ctx, dash.Token))
	registry.Forget(dash.Scope)
	registry.Forget(dot.Scope)

	reloaded, err := registry.Store(ctx, dot.Scope)
	require.NoError(t, err)
	mentor, _ = reloaded.GetByID("mentor")
	require.True(t, mentor.Unlocked)
}

func TestAuthSurfacesStorageErrors(t *testing.T) {
	kv := &flakyKV{KV: storage.NewMemoryKV(0), failSet: storage.ErrQuotaExceeded}
	_, err := newTestAuth(kv).Login(context.Background(), "ana@example.com", "x")
	require.True(t, IsPersistenceError(err))
	require.True(t, errors.Is(err, storage.ErrQuotaExceeded))
}
