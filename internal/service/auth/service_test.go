package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/backorder/internal/entity"
	userrepo "github.com/Additional-Code/backorder/internal/repository/user"
	"github.com/Additional-Code/backorder/internal/service/auth"
	"github.com/Additional-Code/backorder/internal/service/servicetest"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

func register(t *testing.T, env *servicetest.Env) *entity.User {
	t.Helper()
	u, err := env.Auth.Register(context.Background(), auth.Registration{
		Username:        "alice",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Name:            "Alice Smith",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterCreatesSatelliteRows(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	u := register(t, env)

	assert.Equal(t, entity.GroupRegular, u.Group)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, strings.HasPrefix(u.Password, u.Salt))

	profile, err := env.Auth.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, profile.FirstTimeLogin)
	assert.Empty(t, profile.Email)

	_, err = env.Auth.Register(ctx, auth.Registration{Username: "alice", Password: "x", Name: "Other"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	_, err = env.Auth.Register(ctx, auth.Registration{Username: "bob", Password: "a", PasswordConfirm: "b", Name: "Bob"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))
}

func TestRegisterLimitsPasswordBytes(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()

	wide := strings.Repeat("é", 40)
	_, err := env.Auth.Register(ctx, auth.Registration{Username: "bob", Password: wide, Name: "Bob"})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation), "40 two-byte runes exceed bcrypt's 72 bytes")

	_, err = env.Auth.Register(ctx, auth.Registration{Username: "bob", Password: strings.Repeat("é", 36), Name: "Bob"})
	assert.NoError(t, err)

	u, err := env.Auth.Register(ctx, auth.Registration{Username: "carol", Password: "secret123", Name: "Carol"})
	require.NoError(t, err)
	err = env.Auth.ChangePassword(ctx, u.ID, "secret123", wide)
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))
}

func TestLoginWithoutRemember(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	u := register(t, env)

	res, err := env.Auth.Login(ctx, "alice", "secret123", false)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.Token)
	assert.Empty(t, res.RememberToken)
	assert.True(t, res.FirstLogin)
	assert.Equal(t, auth.Identity{UserID: u.ID, Username: "alice", Name: "Alice Smith"}, res.Session.Identity)

	_, err = env.Users.SessionHash(ctx, u.ID)
	assert.ErrorIs(t, err, userrepo.ErrNoSession)

	got, err := env.Auth.ResolveSession(ctx, auth.Credentials{SessionToken: res.Session.Token})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.Identity.UserID)
	assert.Nil(t, got.Restored)
	assert.False(t, env.Auth.IsGuest(ctx, res.Session.Token))

	again, err := env.Auth.Login(ctx, "alice", "secret123", false)
	require.NoError(t, err)
	assert.False(t, again.FirstLogin)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	register(t, env)

	res, err := env.Auth.Login(ctx, "alice", "wrongpass", false)
	assert.Nil(t, res)
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))

	res, err = env.Auth.Login(ctx, "Alice", "secret123", false)
	assert.Nil(t, res)
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated), "usernames match exactly")

	_, err = env.Auth.Login(ctx, "", "", false)
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))
}

func TestRememberTokenLifecycle(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	u := register(t, env)

	res, err := env.Auth.Login(ctx, "alice", "secret123", true)
	require.NoError(t, err)
	require.Len(t, res.RememberToken, 128)

	stored, err := env.Users.SessionHash(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, res.RememberToken, stored, "only the digest is persisted")

	restored, err := env.Auth.ResolveSession(ctx, auth.Credentials{RememberToken: res.RememberToken})
	require.NoError(t, err)
	assert.Equal(t, u.ID, restored.Identity.UserID)
	require.NotNil(t, restored.Restored)
	assert.NotEmpty(t, restored.Restored.Token)

	require.NoError(t, env.Auth.Logout(ctx, auth.Credentials{
		SessionToken:  res.Session.Token,
		RememberToken: res.RememberToken,
	}))
	require.NoError(t, env.Auth.Logout(ctx, auth.Credentials{
		SessionToken:  res.Session.Token,
		RememberToken: res.RememberToken,
	}), "logout is idempotent")

	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{RememberToken: res.RememberToken})
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))

	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{SessionToken: res.Session.Token})
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))
	assert.True(t, env.Auth.IsGuest(ctx, res.Session.Token))
}

func TestNewRememberLoginReplacesOldToken(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	register(t, env)

	first, err := env.Auth.Login(ctx, "alice", "secret123", true)
	require.NoError(t, err)
	second, err := env.Auth.Login(ctx, "alice", "secret123", true)
	require.NoError(t, err)

	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{RememberToken: first.RememberToken})
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))

	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{RememberToken: second.RememberToken})
	assert.NoError(t, err)
}

func TestResolveRejectsForgedSession(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	register(t, env)

	res, err := env.Auth.Login(ctx, "alice", "secret123", false)
	require.NoError(t, err)

	tampered := res.Session.Token[:len(res.Session.Token)-2] + "xx"
	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{SessionToken: tampered})
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))

	_, err = env.Auth.ResolveSession(ctx, auth.Credentials{})
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))
}

func TestRequireAdmin(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	regular := register(t, env)
	admin, err := env.Auth.CreateUser(ctx, auth.Registration{Username: "root", Password: "toor", Name: "Root"}, entity.GroupAdmin)
	require.NoError(t, err)

	assert.NoError(t, env.Auth.RequireAdmin(ctx, admin.ID))
	assert.True(t, errorbank.Is(env.Auth.RequireAdmin(ctx, regular.ID), errorbank.KindUnauthorized))
	assert.True(t, errorbank.Is(env.Auth.RequireAdmin(ctx, 999), errorbank.KindUnauthenticated))
}

func TestChangePasswordAndProfile(t *testing.T) {
	env := servicetest.New(t)
	ctx := context.Background()
	u := register(t, env)

	err := env.Auth.ChangePassword(ctx, u.ID, "nope", "newsecret")
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	require.NoError(t, env.Auth.ChangePassword(ctx, u.ID, "secret123", "newsecret"))
	_, err = env.Auth.Login(ctx, "alice", "secret123", false)
	assert.True(t, errorbank.Is(err, errorbank.KindUnauthenticated))
	_, err = env.Auth.Login(ctx, "alice", "newsecret", false)
	require.NoError(t, err)

	email := "alice@example.test"
	require.NoError(t, env.Auth.UpdateProfile(ctx, u.ID, userrepo.ProfileChanges{Email: &email}))
	profile, err := env.Auth.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, email, profile.Email)
	assert.Equal(t, "Alice Smith", profile.Name)

	blank := " "
	err = env.Auth.UpdateProfile(ctx, u.ID, userrepo.ProfileChanges{Name: &blank})
	assert.True(t, errorbank.Is(err, errorbank.KindValidation))

	users, err := env.Auth.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}
