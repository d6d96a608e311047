package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	pkgredis "github.com/petfinder-app/petfinder-backend/pkg/redis"
)

// IdempotencyHeader carries the client chosen replay key.
const IdempotencyHeader = "Idempotency-Key"

// Replay windows. Anything that moves money or stock is kept for a week so
// a mobile client retrying after a long offline stretch still gets the
// original answer.
const (
	ReplayWindow      = 24 * time.Hour
	ReplayWindowMoney = 7 * 24 * time.Hour
)

const (
	maxIdempotencyKeyLen = 255
	pendingTTL           = 2 * time.Minute
)

type replayStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// storedReply is what a finished request leaves behind under its key.
// Pending is set while the first request is still running.
type storedReply struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes a mutation safe to retry. Requests without the header
// run normally. The first request with a key claims it and later requests
// with the same body get the stored reply. A different body answers
// IDEMPOTENCY_KEY_REUSED, a retry racing the first request answers CONFLICT.
// Server errors release the key.
func Idempotency(store replayStore, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long").
					WithDetails(map[string]any{"max_length": maxIdempotencyKeyLen}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fp := fingerprint(r, body)
			key := store.IdempotencyKey(callerScope(r), clientKey)

			marker, _ := json.Marshal(storedReply{Pending: true, Fingerprint: fp})
			claimed, err := store.SetNX(ctx, key, string(marker), pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayStored(w, r, store, key, fp, logg)
				return
			}

			capture := &replyCapture{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					// handler panicked; free the key before the recoverer answers
					_ = store.Del(context.WithoutCancel(ctx), key)
				}
			}()
			next.ServeHTTP(capture, r)
			completed = true

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			reply, _ := json.Marshal(storedReply{
				Fingerprint: fp,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(context.WithoutCancel(ctx), key, string(reply), window); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_status", status), "store idempotent reply", err)
			}
		})
	}
}

func replayStored(w http.ResponseWriter, r *http.Request, store replayStore, key, fp string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the client may simply retry
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent reply"))
		return
	}
	var stored storedReply
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotent reply"))
		return
	}
	if stored.Fingerprint != fp {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request"))
		return
	}
	if stored.Pending {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request still in progress"))
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// callerScope keeps two callers from colliding on the same key: the user
// when signed in, otherwise the guest cart.
func callerScope(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	if cartID, ok := CartIDFromContext(r.Context()); ok {
		return "cart:" + cartID.String()
	}
	return "anon"
}

func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type replyCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *replyCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *replyCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *replyCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
