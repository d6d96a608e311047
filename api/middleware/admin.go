package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

// CaptureSecretHeader is sent by the payment provider callback.
const CaptureSecretHeader = "X-Petfinder-Capture-Secret"

// RequireAdmin must run after Auth.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCaptureAuthority guards payment capture. Knowing an order id is not
// enough: the caller is either staff recording a manual payment (admin
// token, so it runs after OptionalAuth) or the provider callback presenting
// the shared secret. An empty secret disables the callback path.
func RequireCaptureAuthority(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if IsAdminFromContext(ctx) {
				next.ServeHTTP(w, r)
				return
			}
			presented := r.Header.Get(CaptureSecretHeader)
			if secret != "" && presented != "" {
				got := sha256.Sum256([]byte(presented))
				if subtle.ConstantTimeCompare(got[:], want[:]) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"signed_in":      UserIDFromContext(ctx) != "",
					"capture_header": presented != "",
				})
				logg.Warn(logCtx, "payment capture refused")
			}
			if UserIDFromContext(ctx) == "" && presented == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "capture requires staff or provider credentials"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to capture payments"))
		})
	}
}
