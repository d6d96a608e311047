package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	pkgredis "github.com/petfinder-app/petfinder-backend/pkg/redis"
)

// maxAuthBody caps how much of a login or register body is buffered to find
// the email; the handler still sees the full body.
const maxAuthBody = 16 << 10

// AuthSurface names the auth endpoint a throttle guards.
type AuthSurface string

const (
	AuthSurfaceLogin    AuthSurface = "login"
	AuthSurfaceRegister AuthSurface = "register"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// AuthThrottle bounds attempts per client IP and per account email within a
// fixed window. A zero limit disables that counter.
type AuthThrottle struct {
	Surface  AuthSurface
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginThrottle(cfg config.AuthRateLimitConfig) AuthThrottle {
	return AuthThrottle{
		Surface:  AuthSurfaceLogin,
		Window:   cfg.LoginWindow,
		PerIP:    cfg.LoginIPLimit,
		PerEmail: cfg.LoginEmailLimit,
	}
}

func RegisterThrottle(cfg config.AuthRateLimitConfig) AuthThrottle {
	return AuthThrottle{
		Surface:  AuthSurfaceRegister,
		Window:   cfg.RegisterWindow,
		PerIP:    cfg.RegisterIPLimit,
		PerEmail: cfg.RegisterEmailLimit,
	}
}

func (t AuthThrottle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerEmail > 0)
}

func (t AuthThrottle) key(counter, value string) string {
	return pkgredis.AttemptKey(string(t.Surface), counter, value)
}

// ThrottleAuth rejects the request with 429 and a Retry-After header once
// either counter passes its limit. Without a store it is a no-op.
func ThrottleAuth(t AuthThrottle, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if t.PerIP > 0 {
				if ip := remoteIP(r); ip != "" {
					if !t.count(ctx, w, store, logg, "ip", ip, t.PerIP) {
						return
					}
				}
			}

			if t.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				if email != "" && !t.count(ctx, w, store, logg, "email", emailDigest(email), t.PerEmail) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// count bumps one counter and writes the rejection when it is over limit.
// It reports whether the request may continue.
func (t AuthThrottle) count(ctx context.Context, w http.ResponseWriter, store counterStore, logg *logger.Logger, counter, value string, limit int) bool {
	attempts, err := store.IncrWithTTL(ctx, t.key(counter, value), t.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auth throttle unavailable"))
		return false
	}
	if attempts <= int64(limit) {
		return true
	}
	if logg != nil {
		fields := map[string]any{
			"auth_surface": string(t.Surface),
			"counter":      counter,
			"attempts":     attempts,
			"limit":        limit,
		}
		if counter == "ip" {
			fields["client_ip"] = value
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth attempt throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// peekEmail reads the email from a JSON body and puts the bytes back for the
// handler. Bodies that are not JSON yield an empty email.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &body) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:16])
}

// remoteIP prefers the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the socket peer.
func remoteIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
