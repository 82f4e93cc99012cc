package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/data/repos/testutil"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/requestdata"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewAuthService(db, log, repos.NewUserRepo(db, log), "test-secret", 15*time.Minute, 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	user, err := svc.RegisterUser(ctx, "  Alice@Example.COM ", "long enough pass!")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "long enough pass!", user.Password)

	pair, err := svc.LoginUser(ctx, "alice@example.com", "long enough pass!")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "bearer", pair.TokenType)

	_, err = svc.LoginUser(ctx, "alice@example.com", "wrong password!!")
	require.Error(t, err)
	status, _ := apierr.StatusOf(err)
	require.Equal(t, 401, status)
}

func TestRegisterPasswordPolicy(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, err := svc.RegisterUser(ctx, "bob@example.com", "short!")
	require.Error(t, err)
	status, _ := apierr.StatusOf(err)
	require.Equal(t, 400, status)

	_, err = svc.RegisterUser(ctx, "bob@example.com", "longenoughbutplain1")
	require.Error(t, err)
	status, _ = apierr.StatusOf(err)
	require.Equal(t, 400, status)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, err := svc.RegisterUser(ctx, "carol@example.com", "a fine password!")
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, "CAROL@example.com", "a fine password!")
	require.Error(t, err)
	status, _ := apierr.StatusOf(err)
	require.Equal(t, 400, status)
}

func TestSetContextFromToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	user, err := svc.RegisterUser(ctx, "dave@example.com", "a fine password!")
	require.NoError(t, err)
	pair, err := svc.LoginUser(ctx, "dave@example.com", "a fine password!")
	require.NoError(t, err)

	gotCtx, err := svc.SetContextFromToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	rd := requestdata.GetRequestData(gotCtx)
	require.NotNil(t, rd)
	require.Equal(t, user.ID, rd.UserID)
	require.Equal(t, "dave@example.com", rd.UserEmail)

	// A refresh token must not pass as an access token.
	_, err = svc.SetContextFromToken(ctx, pair.RefreshToken)
	require.Error(t, err)

	_, err = svc.SetContextFromToken(ctx, "garbage.token.here")
	require.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, err := svc.RegisterUser(ctx, "erin@example.com", "a fine password!")
	require.NoError(t, err)
	pair, err := svc.LoginUser(ctx, "erin@example.com", "a fine password!")
	require.NoError(t, err)

	next, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, next.AccessToken)

	// An access token must not pass as a refresh token.
	_, err = svc.RefreshTokens(ctx, pair.AccessToken)
	require.Error(t, err)
}
