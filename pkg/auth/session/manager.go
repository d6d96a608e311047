package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	redisclient "github.com/petfinder-app/petfinder-backend/pkg/redis"
	"github.com/petfinder-app/petfinder-backend/pkg/security"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Manager keeps one refresh session per access id, stored as
// "<user id>|<sha256 of the refresh token>". The raw token only ever lives
// with the client.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Rotation is the result of exchanging a refresh token.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("session: refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("session: refresh ttl %s must exceed access ttl %s", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// Generate issues a refresh token for userID under accessID.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("session: user id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		return "", errors.New("session: access id is required")
	}
	token, err := security.RandomURLToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("session: refresh token: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), sessionValue(userID, token), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate consumes the session for oldAccessID and, when provided matches it,
// issues a fresh access id and refresh token for the same user. The old
// session is gone after the call whatever the outcome, so of two concurrent
// refreshes with the same token only one can succeed.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}
	stored, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if errors.Is(err, redislib.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	userID, digest, ok := parseSessionValue(stored)
	if !ok || subtle.ConstantTimeCompare([]byte(digest), []byte(tokenDigest(provided))) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, userID, accessID)
	if err != nil {
		return nil, err
	}
	return &Rotation{UserID: userID, AccessID: accessID, RefreshToken: token}, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("session: access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errors.New("session: access id is required")
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

// NewAccessID is used as the JWT jti and the session key.
func NewAccessID() string {
	return uuid.NewString()
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sessionValue(userID uuid.UUID, token string) string {
	return userID.String() + "|" + tokenDigest(token)
}

func parseSessionValue(v string) (uuid.UUID, string, bool) {
	idPart, digest, found := strings.Cut(v, "|")
	if !found || len(digest) != sha256.Size*2 {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(idPart)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, "", false
	}
	return id, digest, true
}
