package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/gabfadel/gab-health/config"
	"github.com/gabfadel/gab-health/internal/delivery/dto"
	"github.com/gabfadel/gab-health/internal/delivery/http/middleware"
	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	usecase    AuthUsecase
	users      *fakeUserRepo
	tokens     *memoryTokenStore
	jwtService *jwt.JWTService
	audit      *recordingAudit
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  newFakeUserRepo(),
		tokens: newMemoryTokenStore(),
		jwtService: jwt.NewJWTService(config.JWTConfig{
			Secret:        "test-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: time.Hour,
		}),
		audit: &recordingAudit{},
	}
	f.usecase = NewAuthUsecase(newTestLogger(), f.users, f.jwtService, f.tokens, f.audit)
	return f
}

func (f *authFixture) register(t *testing.T, username string, doctor bool) *dto.UserResponse {
	t.Helper()
	user, err := f.usecase.Register(context.Background(), &dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
		IsDoctor: doctor,
	})
	require.NoError(t, err)
	return user
}

func (f *authFixture) login(t *testing.T, username string) *dto.TokenResponse {
	t.Helper()
	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{Username: username, Password: "correct-horse"})
	require.NoError(t, err)
	return tokens
}

func TestRegister(t *testing.T) {
	f := newAuthFixture()

	doctor := f.register(t, "drhouse", true)
	assert.Equal(t, "doctor", doctor.Role)
	assert.True(t, doctor.IsDoctor)

	patient := f.register(t, "alice", false)
	assert.Equal(t, "patient", patient.Role)
	assert.False(t, patient.IsDoctor)

	stored, _ := f.users.FindByUsername(context.Background(), "alice")
	require.NotNil(t, stored)
	assert.NotEqual(t, "correct-horse", stored.Password)
}

func TestRegister_Duplicates(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", false)

	_, err := f.usecase.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrUsernameAlreadyExists)

	_, err = f.usecase.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "drhouse", true)

	tokens := f.login(t, "drhouse")
	claims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	allowed, _ := f.tokens.IsAllowed(context.Background(), jwt.AccessToken, user.ID, claims.TokenID)
	assert.True(t, allowed)

	_, err = f.usecase.Login(context.Background(), &dto.LoginRequest{Username: "drhouse", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.usecase.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "alice", false)
	inactive := false
	f.users.users[user.ID].IsActive = &inactive

	_, err := f.usecase.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_RotatesAndIsSingleUse(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice", false)
	tokens := f.login(t, "alice")

	rotated, err := f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// the replay dropped the rotated pair as well
	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: rotated.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesTokens(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "alice", false)
	tokens := f.login(t, "alice")

	access, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	refresh, err := f.jwtService.ValidateToken(tokens.RefreshToken)
	require.NoError(t, err)

	ctx := middleware.WithIdentity(context.Background(), middleware.Identity{UserID: user.ID, Role: entity.RolePatient})
	require.NoError(t, f.usecase.Logout(ctx, access.TokenID, &dto.LogoutRequest{RefreshToken: tokens.RefreshToken}))

	allowed, _ := f.tokens.IsAllowed(context.Background(), jwt.AccessToken, user.ID, access.TokenID)
	assert.False(t, allowed)
	allowed, _ = f.tokens.IsAllowed(context.Background(), jwt.RefreshToken, user.ID, refresh.TokenID)
	assert.False(t, allowed)
	assert.Contains(t, f.audit.actions(), entity.AuditActionUserLogout)
}

func TestGetCurrentUserAndListDoctors(t *testing.T) {
	f := newAuthFixture()
	doctor := f.register(t, "drhouse", true)
	f.register(t, "alice", false)
	f.register(t, "drwho", true)

	ctx := middleware.WithIdentity(context.Background(), middleware.Identity{UserID: doctor.ID, Role: entity.RoleDoctor})
	me, err := f.usecase.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "drhouse", me.Username)

	doctors, err := f.usecase.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, doctors.Total)
	assert.Equal(t, "drhouse", doctors.Users[0].Username)
	assert.Equal(t, "drwho", doctors.Users[1].Username)
}
