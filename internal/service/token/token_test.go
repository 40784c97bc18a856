package token

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/roles"
)

func newTestService(t *testing.T) (*Service, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		Roles:        "USER,DEALER",
	}
	require.NoError(t, db.Create(user).Error)
	return NewService(db, "access-secret", "refresh-secret"), user
}

func TestIssueAndParseAccess(t *testing.T) {
	svc, user := newTestService(t)

	access, err := svc.IssueAccess(user)
	require.NoError(t, err)

	userID, set, err := svc.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
	require.True(t, set.Has(roles.User))
	require.True(t, set.Has(roles.Dealer))
	require.False(t, set.Has(roles.Admin))
}

func TestParseAccessRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.ParseAccess("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessRejectsRefreshToken(t *testing.T) {
	svc, user := newTestService(t)

	refresh, err := svc.IssueRefresh(context.Background(), user)
	require.NoError(t, err)

	// Wrong secret, wrong type; must not pass as an access token.
	_, _, err = svc.ParseAccess(refresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateRevokesOldToken(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	refresh, err := svc.IssueRefresh(ctx, user)
	require.NoError(t, err)

	access, next, err := svc.Rotate(ctx, refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, refresh, next)

	// The spent token cannot be used again.
	_, _, err = svc.Rotate(ctx, refresh)
	require.ErrorIs(t, err, ErrRevoked)

	// The replacement still works.
	_, _, err = svc.Rotate(ctx, next)
	require.NoError(t, err)
}

func TestRevokeAll(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	r1, err := svc.IssueRefresh(ctx, user)
	require.NoError(t, err)
	r2, err := svc.IssueRefresh(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, user.ID))

	_, _, err = svc.Rotate(ctx, r1)
	require.ErrorIs(t, err, ErrRevoked)
	_, _, err = svc.Rotate(ctx, r2)
	require.ErrorIs(t, err, ErrRevoked)
}
