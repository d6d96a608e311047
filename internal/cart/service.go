package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/security"
)

const sessionTokenBytes = 32

// Service manages the anonymous, cookie-scoped cart.
type Service interface {
	GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, string, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error)
	AddToCart(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateCartItem(ctx context.Context, cartID uuid.UUID, input UpdateItemInput) (*CartView, error)
	RemoveCartItem(ctx context.Context, cartID uuid.UUID, input RemoveItemInput) (*CartView, error)
	AttachUser(ctx context.Context, cartID, userID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByRef(ctx context.Context, ref string) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo     *Repository
	products productLoader
	newToken func() (string, error)
}

func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:     repo,
		products: products,
		newToken: func() (string, error) { return security.RandomURLToken(sessionTokenBytes) },
	}, nil
}

// GetOrCreateCart resolves the cart for sessionToken, creating a new cart
// and token when the token is empty or unknown. The returned token is the
// one the caller must persist.
func (s *service) GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, string, error) {
	if token := strings.TrimSpace(sessionToken); token != "" {
		c, err := s.repo.FindByToken(ctx, token)
		if err == nil {
			return c, token, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
	}
	token, err := s.newToken()
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate cart token")
	}
	c := &models.Cart{SessionToken: token}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return c, token, nil
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	items, err := s.repo.Items(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	view := &CartView{ID: cartID, Items: make([]ItemView, 0, len(items))}
	productsByID := map[uuid.UUID]*models.Product{}
	mixed := false
	for _, item := range items {
		product, ok := productsByID[item.ProductID]
		if !ok {
			product, err = s.products.FindByID(ctx, item.ProductID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			productsByID[item.ProductID] = product
		}
		line := ItemView{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Currency:       item.Currency,
			LineTotalCents: item.UnitPriceCents * int64(item.Quantity),
		}
		if product != nil {
			line.Slug = product.Slug
			line.Name = product.Name
			if item.VariantID != nil {
				for _, v := range product.Variants {
					if v.ID == *item.VariantID {
						line.VariantName = v.Name
					}
				}
			}
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.SubtotalCents += line.LineTotalCents
		if view.Currency == nil {
			cur := item.Currency
			view.Currency = &cur
		} else if *view.Currency != item.Currency {
			mixed = true
		}
	}
	if mixed {
		view.Currency = nil
	}
	return view, nil
}

// AddToCart upserts the (product, variant) line. An existing line grows by
// quantity up to MaxQuantity and takes the current price.
func (s *service) AddToCart(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartView, error) {
	ref := strings.TrimSpace(input.ProductRef())
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id or slug required")
	}
	product, err := s.products.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeProductInactive, "product inactive")
	}
	var variant *models.ProductVariant
	if input.VariantID != nil {
		variant, err = s.resolveVariant(ctx, product, *input.VariantID)
		if err != nil {
			return nil, err
		}
	}
	qty := input.Quantity
	if qty < 1 {
		qty = 1
	}
	price := variant.EffectivePrice(product)

	existing, err := s.repo.FindItem(ctx, cartID, product.ID, input.VariantID)
	switch {
	case err == nil:
		err = s.repo.UpdateItem(ctx, existing.ID, map[string]any{
			"quantity":         capQuantity(existing.Quantity + qty),
			"unit_price_cents": price,
			"currency":         product.Currency,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.repo.CreateItem(ctx, &models.CartItem{
			CartID:         cartID,
			ProductID:      product.ID,
			VariantID:      input.VariantID,
			Quantity:       capQuantity(qty),
			UnitPriceCents: price,
			Currency:       product.Currency,
		})
		if db.IsUniqueViolation(err, "ux_cart_items_line") {
			return s.AddToCart(ctx, cartID, input)
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart item")
	}
	return s.GetCart(ctx, cartID)
}

// UpdateCartItem sets the quantity of an existing line; zero removes it.
func (s *service) UpdateCartItem(ctx context.Context, cartID uuid.UUID, input UpdateItemInput) (*CartView, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Quantity == 0 {
		return s.RemoveCartItem(ctx, cartID, RemoveItemInput{ProductID: input.ProductID, VariantID: input.VariantID})
	}
	existing, err := s.repo.FindItem(ctx, cartID, input.ProductID, input.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	updates := map[string]any{"quantity": capQuantity(input.Quantity)}
	if product, err := s.products.FindByID(ctx, input.ProductID); err == nil {
		var variant *models.ProductVariant
		if input.VariantID != nil {
			for i := range product.Variants {
				if product.Variants[i].ID == *input.VariantID {
					variant = &product.Variants[i]
				}
			}
		}
		updates["unit_price_cents"] = variant.EffectivePrice(product)
		updates["currency"] = product.Currency
	}
	if err := s.repo.UpdateItem(ctx, existing.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.GetCart(ctx, cartID)
}

func (s *service) RemoveCartItem(ctx context.Context, cartID uuid.UUID, input RemoveItemInput) (*CartView, error) {
	if err := s.repo.DeleteItem(ctx, cartID, input.ProductID, input.VariantID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.GetCart(ctx, cartID)
}

func (s *service) AttachUser(ctx context.Context, cartID, userID uuid.UUID) error {
	if err := s.repo.AttachUser(ctx, cartID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach cart user")
	}
	return nil
}

func (s *service) resolveVariant(ctx context.Context, product *models.Product, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.products.FindVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidVariant, "invalid variant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if variant.ProductID != product.ID || !variant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVariant, "invalid variant")
	}
	return variant, nil
}

func capQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
