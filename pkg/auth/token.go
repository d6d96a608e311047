package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
)

// Audience is the aud claim of every access token; tokens minted for
// another petfinder surface are refused here.
const Audience = "petfinder-api"

// clockSkew tolerates small drift between API replicas.
const clockSkew = 30 * time.Second

var signing = jwt.SigningMethodHS256

// AccessTokenPayload is what the auth service knows when it signs a user in.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
	JTI     string
}

// AccessTokenClaims is the signed body. The jti doubles as the key of the
// refresh session paired with the token.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// MintAccessToken signs an access token valid from now for the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, p AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt: PETFINDER_JWT_SECRET is empty")
	case cfg.Issuer == "":
		return "", errors.New("jwt: issuer is empty")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt: expiration must be positive")
	case p.UserID == uuid.Nil:
		return "", errors.New("jwt: token without a user")
	}
	jti := strings.TrimSpace(p.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:  p.UserID,
		Email:   strings.ToLower(strings.TrimSpace(p.Email)),
		IsAdmin: p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL())),
		},
	}
	signed, err := jwt.NewWithClaims(signing, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer, audience and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))
}

// ParseAccessTokenAllowExpired verifies the signature but not the time
// claims, so a refresh can still read the jti of an expired token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, raw string, opts ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: PETFINDER_JWT_SECRET is empty")
	}
	opts = append(opts,
		jwt.WithValidMethods([]string{signing.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(Audience),
	)
	claims := &AccessTokenClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	// checked here as well because WithoutClaimsValidation skips them
	if claims.Issuer != cfg.Issuer || !slices.Contains(claims.Audience, Audience) {
		return nil, errors.New("jwt: token issued for another service")
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("jwt: token without a user")
	}
	return claims, nil
}
