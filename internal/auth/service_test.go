package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/internal/users"
	pkgAuth "github.com/petfinder-app/petfinder-backend/pkg/auth"
	"github.com/petfinder-app/petfinder-backend/pkg/auth/session"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]fakeSession
}

type fakeSession struct {
	userID uuid.UUID
	token  string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]fakeSession{}}
}

func (f *fakeSessions) Generate(_ context.Context, userID uuid.UUID, accessID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := "rt-" + uuid.NewString()
	f.sessions[accessID] = fakeSession{userID: userID, token: tok}
	return tok, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error) {
	f.mu.Lock()
	s, ok := f.sessions[oldAccessID]
	if !ok || s.token != provided {
		f.mu.Unlock()
		return nil, session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	f.mu.Unlock()

	accessID := session.NewAccessID()
	tok, _ := f.Generate(ctx, s.userID, accessID)
	return &session.Rotation{UserID: s.userID, AccessID: accessID, RefreshToken: tok}, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "petfinder", ExpirationMinutes: 30}

var testPasswords = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func newTestService(t *testing.T) (Service, *fakeSessions) {
	t.Helper()
	client := dbtest.Open(t)
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(client.DB()),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPasswords,
	})
	require.NoError(t, err)
	return svc, sessions
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Name: "Ana", Email: "Ana@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "ana@example.com", resp.User.Email)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, "ana@example.com", claims.Email)
	require.False(t, claims.IsAdmin)
	require.Contains(t, sessions.sessions, claims.ID)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Ana 2", Email: "ANA@example.com", Password: "correct-horse"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestRegisterShortPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "a@example.com", Password: "short"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "wrong-horse"})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	resp, err := svc.Login(ctx, LoginRequest{Email: " ANA@example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: reg.Token, RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: reg.Token, RefreshToken: reg.RefreshToken})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims.ID))
	require.NotContains(t, sessions.sessions, claims.ID)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	accessID := "expired-access"
	rt, err := sessions.Generate(ctx, reg.User.ID, accessID)
	require.NoError(t, err)
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: reg.User.ID, Email: reg.User.Email, JTI: accessID,
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(ctx, RefreshRequest{AccessToken: expired, RefreshToken: rt})
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, resp.User.ID)
}

func TestLoginUpgradesHashAfterCostChange(t *testing.T) {
	client := dbtest.Open(t)
	repo := users.NewRepository(client.DB())
	ctx := context.Background()

	build := func(cost config.PasswordConfig) Service {
		svc, err := NewService(ServiceParams{
			UserRepo:       repo,
			SessionManager: newFakeSessions(),
			JWTConfig:      testJWT,
			PasswordConfig: cost,
		})
		require.NoError(t, err)
		return svc
	}

	_, err := build(testPasswords).Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	raised := testPasswords
	raised.ArgonTime = 2
	_, err = build(raised).Login(ctx, LoginRequest{Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Contains(t, user.PasswordHash, "m=8192,t=2,p=1$")

	_, err = build(testPasswords).Login(ctx, LoginRequest{Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err, "upgraded hash still verifies under any cost")
}
