package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ostrikov/auth-service/internal/models"
	"github.com/ostrikov/auth-service/internal/repo"
	"github.com/ostrikov/auth-service/internal/tokens"
)

func newTestService(t *testing.T) *AccountService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.UserRole{},
		&models.RefreshTokenInfo{},
	))

	return &AccountService{
		Repo: repo.GormRepo{DB: db},
		Issuer: &tokens.Issuer{
			Secret:   []byte("test-jwt-secret"),
			Issuer:   "auth-service-test",
			Audience: "test-clients",
		},
	}
}

func uniqueEmail() string {
	return "u_" + uuid.NewString() + "@example.com"
}

func registerOK(t *testing.T, svc *AccountService, email, password string) {
	t.Helper()

	res, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Test User",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
}

func roleNameOf(t *testing.T, svc *AccountService, email string) string {
	t.Helper()

	ctx := context.Background()
	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, user)

	link, err := svc.Repo.FindUserRole(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, link)

	role, err := svc.Repo.FindRoleByID(ctx, link.RoleID)
	require.NoError(t, err)
	require.NotNil(t, role)
	return role.Name
}

func TestRegister_NilRequest(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Register(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	first := uniqueEmail()
	second := uniqueEmail()
	third := uniqueEmail()

	registerOK(t, svc, first, "Secret123")
	registerOK(t, svc, second, "Secret123")
	registerOK(t, svc, third, "Secret123")

	assert.Equal(t, models.RoleAdmin, roleNameOf(t, svc, first))
	assert.Equal(t, models.RoleUser, roleNameOf(t, svc, second))
	assert.Equal(t, models.RoleUser, roleNameOf(t, svc, third))

	var adminRoles, userRoles int64
	require.NoError(t, svc.Repo.DB.Model(&models.Role{}).Where("name = ?", models.RoleAdmin).Count(&adminRoles).Error)
	require.NoError(t, svc.Repo.DB.Model(&models.Role{}).Where("name = ?", models.RoleUser).Count(&userRoles).Error)
	assert.EqualValues(t, 1, adminRoles)
	assert.EqualValues(t, 1, userRoles)
}

func TestRegister_DuplicateEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	email := "Dup_" + uuid.NewString() + "@Example.com"
	registerOK(t, svc, email, "Secret123")

	res, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Someone Else",
		Email:    strings.ToLower(email),
		Password: "Other456",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "email is already registered", res.Message)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// The duplicate check runs before any hashing: a password bcrypt would
// refuse (over 72 bytes) still yields the plain duplicate result when the
// address is taken.
func TestRegister_DuplicateEmail_CheckedBeforeHashing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	res, err := svc.Register(context.Background(), &RegisterRequest{
		FullName: "Someone Else",
		Email:    email,
		Password: strings.Repeat("a", 100),
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "email is already registered", res.Message)
}

// The bootstrap gate is the existence of an Admin role row, not a user
// count: once the role row is gone, the next registrant becomes Admin.
func TestRegister_AdminRoleDeleted_NextRegistrantBecomesAdmin(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	first := uniqueEmail()
	second := uniqueEmail()

	registerOK(t, svc, first, "Secret123")
	require.NoError(t, svc.Repo.DB.
		Where("name = ?", models.RoleAdmin).Delete(&models.Role{}).Error)

	registerOK(t, svc, second, "Secret123")
	assert.Equal(t, models.RoleAdmin, roleNameOf(t, svc, second))
}

func TestSignIn_NilRequest(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.SignIn(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignIn_Success_IssuesTokensAndStoresRefreshRow(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	res, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.Token)
	require.NotEmpty(t, res.RefreshToken)

	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, user)

	claims, err := svc.Issuer.ParseAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(int(user.ID)), claims.Subject)
	assert.Equal(t, user.FullName, claims.FullName)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(tokens.AccessTokenTTL), claims.ExpiresAt.Time, time.Minute)

	info, err := svc.Repo.FindRefreshByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, res.RefreshToken, info.Token)
}

func TestSignIn_WrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	res, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Wrong456"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "password is incorrect", res.Message)
	assert.Empty(t, res.Token)
	assert.Empty(t, res.RefreshToken)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.RefreshTokenInfo{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSignIn_UnknownEmail(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.SignIn(context.Background(), &SignInRequest{
		Email:    uniqueEmail(),
		Password: "Secret123",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "email does not exist", res.Message)
	assert.Empty(t, res.Token)
}

func TestSignIn_RoleMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	require.NoError(t, svc.Repo.DB.
		Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error)

	res, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "user role is not assigned", res.Message)
}

func TestSignIn_SecondLoginRotatesRowInPlace(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	first, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.RefreshTokenInfo{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	info, err := svc.Repo.FindRefreshByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, second.RefreshToken, info.Token)
}

func TestRefresh_NilRequest(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	res, err := svc.Refresh(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefresh_Success_RotatesToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	login, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	require.True(t, login.Success)

	refreshed, err := svc.Refresh(ctx, &RefreshRequest{Token: login.RefreshToken})
	require.NoError(t, err)
	require.True(t, refreshed.Success)
	require.NotEmpty(t, refreshed.Token)
	require.NotEmpty(t, refreshed.RefreshToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	info, err := svc.Repo.FindRefreshByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, refreshed.RefreshToken, info.Token)

	// The superseded token no longer matches any row.
	old, err := svc.Repo.FindRefreshByToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, old)

	stale, err := svc.Refresh(ctx, &RefreshRequest{Token: login.RefreshToken})
	require.NoError(t, err)
	assert.False(t, stale.Success)
	assert.Equal(t, "refresh token not found", stale.Message)
}

func TestRefresh_UnknownToken_MutatesNothing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	login, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, &RefreshRequest{Token: "no-such-token"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "refresh token not found", res.Message)
	assert.Empty(t, res.Token)

	user, err := svc.Repo.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	info, err := svc.Repo.FindRefreshByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, login.RefreshToken, info.Token)
}

func TestRefresh_UserGone(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	email := uniqueEmail()
	registerOK(t, svc, email, "Secret123")

	login, err := svc.SignIn(ctx, &SignInRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Repo.DB.
		Where("LOWER(email) = LOWER(?)", email).Delete(&models.User{}).Error)

	res, err := svc.Refresh(ctx, &RefreshRequest{Token: login.RefreshToken})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "user for refresh token no longer exists", res.Message)
}
