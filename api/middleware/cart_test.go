package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
)

type stubCarts struct {
	carts    map[string]*models.Cart
	attached map[uuid.UUID]uuid.UUID
	minted   int
}

func newStubCarts() *stubCarts {
	return &stubCarts{carts: map[string]*models.Cart{}, attached: map[uuid.UUID]uuid.UUID{}}
}

func (s *stubCarts) GetOrCreateCart(_ context.Context, token string) (*models.Cart, string, error) {
	if c, ok := s.carts[token]; ok {
		return c, token, nil
	}
	s.minted++
	token = uuid.NewString()
	c := &models.Cart{ID: uuid.New(), SessionToken: token}
	s.carts[token] = c
	return c, token, nil
}

func (s *stubCarts) AttachUser(_ context.Context, cartID, userID uuid.UUID) error {
	s.attached[cartID] = userID
	return nil
}

func TestCartSessionIssuesCookie(t *testing.T) {
	carts := newStubCarts()
	var seen uuid.UUID
	handler := CartSession(carts, config.CartConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CartIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := resp.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "pf_cart" || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if c.MaxAge != 30*24*60*60 {
		t.Fatalf("expected 30 day max age got %d", c.MaxAge)
	}
	if seen == uuid.Nil || seen != carts.carts[c.Value].ID {
		t.Fatalf("expected cart id in context")
	}
}

func TestCartSessionReusesExistingCart(t *testing.T) {
	carts := newStubCarts()
	existing, token, _ := carts.GetOrCreateCart(context.Background(), "")
	userID := uuid.New()

	var seen uuid.UUID
	handler := CartSession(carts, config.CartConfig{CookieName: "pf_cart"}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CartIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "pf_cart", Value: token})
	req = req.WithContext(WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if len(resp.Result().Cookies()) != 0 {
		t.Fatal("expected no new cookie for a known cart")
	}
	if seen != existing.ID {
		t.Fatalf("expected cart %s got %s", existing.ID, seen)
	}
	if carts.minted != 1 {
		t.Fatalf("expected no new cart, minted %d", carts.minted)
	}
	if carts.attached[existing.ID] != userID {
		t.Fatal("expected signed-in shopper attached to cart")
	}
}
