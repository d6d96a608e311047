package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "petfinder",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:  userID,
		Email:   " Owner@Example.com ",
		IsAdmin: true,
		JTI:     "access-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "owner@example.com", claims.Email)
	require.True(t, claims.IsAdmin)
	require.Equal(t, "access-1", claims.ID)
	require.Equal(t, userID.String(), claims.Subject)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), JTI: "old"})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	require.Equal(t, "old", claims.ID)
}

func TestMintAccessTokenRequiresUser(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{})
	require.Error(t, err)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	// expired ten seconds ago, inside the skew allowance
	token, err := MintAccessToken(cfg, time.Now().Add(-30*time.Minute-10*time.Second), AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.NoError(t, err)
}

func TestParseAccessTokenRejectsForeignIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "petfinder-partners"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
	_, err = ParseAccessTokenAllowExpired(other, token)
	require.Error(t, err, "refresh must not accept tokens from another issuer either")
}

func TestParseAccessTokenRequiresAudience(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{"petfinder-admin-console"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsNoneAlgorithm(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}
