package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Every key this service writes lives under pf:<kind>:...
const (
	keyRoot          = "pf"
	kindIdempotency  = "idem"
	kindAccessSess   = "sess"
	kindAttemptCount = "auth"
)

// ErrNotConnected is returned by a zero Client.
var ErrNotConnected = errors.New("redis: client not connected")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	GetDel(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	ExpireNX(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the petfinder view of Redis: refresh sessions, idempotent
// replays, login attempt counters and the cron leader lock.
type Client struct {
	store cmdable
	conn  *redis.Client
}

// IdempotencyStore is what the replay middleware needs.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// New dials Redis and fails fast when the server does not answer.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis ready")
	}
	return &Client{store: conn, conn: conn}, nil
}

// dialOptions prefers PETFINDER_REDIS_URL; the discrete fields fill whatever
// the URL left unset.
func dialOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address == "":
		return nil, errors.New("redis: PETFINDER_REDIS_URL or PETFINDER_REDIS_ADDR must be set")
	}
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T comparable](dst *T, fallback T) {
	var zero T
	if *dst == zero {
		*dst = fallback
	}
}

func (c *Client) cmd() (cmdable, error) {
	if c == nil || c.store == nil {
		return nil, ErrNotConnected
	}
	return c.store, nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s, err := c.cmd()
	if err != nil {
		return err
	}
	return s.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	s, err := c.cmd()
	if err != nil {
		return "", err
	}
	return s.Get(ctx, key).Result()
}

// GetDel reads and removes key in one step; only one caller can win it.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	s, err := c.cmd()
	if err != nil {
		return "", err
	}
	return s.GetDel(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s, err := c.cmd()
	if err != nil {
		return false, err
	}
	return s.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	s, err := c.cmd()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Del(ctx, keys...).Err()
}

// IncrWithTTL bumps a fixed-window counter. The expiry is set with NX on
// every call so a counter whose first EXPIRE was lost still ages out.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s, err := c.cmd()
	if err != nil {
		return 0, err
	}
	n, err := s.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := s.ExpireNX(ctx, key, ttl).Err(); err != nil {
			return n, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n, nil
}

func (c *Client) Ping(ctx context.Context) error {
	s, err := c.cmd()
	if err != nil {
		return err
	}
	return s.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// IdempotencyKey scopes a client supplied Idempotency-Key to the caller
// that sent it.
func (c *Client) IdempotencyKey(scope, id string) string {
	return Key(kindIdempotency, scope, id)
}

// AccessSessionKey holds the refresh token paired with one access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return Key(kindAccessSess, accessID)
}

// AttemptKey names an auth attempt counter, e.g. pf:auth:login:ip:1.2.3.4.
func AttemptKey(surface, counter, value string) string {
	return Key(kindAttemptCount, surface, counter, value)
}

// Key joins non-empty parts under the pf root.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyRoot)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
