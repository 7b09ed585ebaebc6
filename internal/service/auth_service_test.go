package service

import (
	"context"
	"testing"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminSeedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, " Admin@BloodLink.test ", "root-pass-1"))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "admin@bloodlink.test", "another-pass-2"))

	user, err := f.users.FindByEmail(ctx, "admin@bloodlink.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, utils.ComparePassword(user.PasswordHash, "root-pass-1"), "second call must not reset the password")

	assert.NoError(t, f.auth.EnsureAdmin(ctx, "", ""), "unset bootstrap credentials are a no-op")
}

func TestLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.auth.RegisterDonor(ctx, "sam@donor.test", "blood-drive-9", "Sam", "Reyes")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDonor, registered.User.Role)
	assert.Empty(t, registered.User.HospitalID)

	_, err = f.auth.Login(ctx, "sam@donor.test", "wrong-pass-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "nobody@donor.test", "blood-drive-9")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := f.auth.Login(ctx, "SAM@donor.test", "blood-drive-9")
	require.NoError(t, err)

	access, err := f.auth.RefreshAccessToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := utils.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, claims.UserID)
	assert.Equal(t, models.RoleDonor, claims.Role)

	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken))
	_, err = f.auth.RefreshAccessToken(ctx, login.RefreshToken)
	assert.Error(t, err)
}

func TestRegisterDonorValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterDonor(ctx, "not-an-email", "blood-drive-9", "", "")
	assert.Equal(t, "email", fieldOf(t, err))

	_, err = f.auth.RegisterDonor(ctx, "sam@donor.test", "short", "", "")
	assert.Equal(t, "password", fieldOf(t, err))

	_, err = f.auth.RegisterDonor(ctx, "sam@donor.test", "blood-drive-9", "", "")
	require.NoError(t, err)
	_, err = f.auth.RegisterDonor(ctx, "sam@donor.test", "blood-drive-9", "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Field
}
