package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

const (
	defaultCartCookie = "pf_cart"
	defaultCartTTL    = 30 * 24 * time.Hour
)

type cartResolver interface {
	GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, string, error)
	AttachUser(ctx context.Context, cartID, userID uuid.UUID) error
}

// CartSession resolves the shopper's cart from the session cookie, creating
// one when the cookie is missing or stale. Run it after OptionalAuth so a
// signed-in shopper's cart gets linked to the account.
func CartSession(carts cartResolver, cfg config.CartConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = defaultCartCookie
	}
	ttl := cfg.CookieTTL
	if ttl <= 0 {
		ttl = defaultCartTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var current string
			if c, err := r.Cookie(name); err == nil {
				current = c.Value
			}

			c, token, err := carts.GetOrCreateCart(ctx, current)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if token != current {
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    token,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if userID, ok := UserUUIDFromContext(ctx); ok && c.UserID == nil {
				if err := carts.AttachUser(ctx, c.ID, userID); err != nil && logg != nil {
					logg.Error(ctx, "attach cart to user", err)
				}
			}

			ctx = WithCartID(ctx, c.ID)
			if logg != nil {
				ctx = logg.WithCartID(ctx, c.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
