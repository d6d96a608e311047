package cart

import (
	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// AddItemInput adds a product by id or slug.
type AddItemInput struct {
	ProductID string     `json:"product_id"`
	Slug      string     `json:"slug"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity"`
}

// ProductRef is whichever of id or slug was supplied.
func (in AddItemInput) ProductRef() string {
	if in.ProductID != "" {
		return in.ProductID
	}
	return in.Slug
}

type UpdateItemInput struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity"`
}

type RemoveItemInput struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
}

type ItemView struct {
	ProductID      uuid.UUID      `json:"product_id"`
	VariantID      *uuid.UUID     `json:"variant_id,omitempty"`
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	VariantName    string         `json:"variant_name,omitempty"`
	Quantity       int            `json:"quantity"`
	UnitPriceCents int64          `json:"unit_price_cents"`
	Currency       enums.Currency `json:"currency"`
	LineTotalCents int64          `json:"line_total_cents"`
}

// CartView is the cart as shown to the shopper. SubtotalCents is an
// estimate from snapshotted prices; checkout reprices from live rows.
type CartView struct {
	ID            uuid.UUID       `json:"id"`
	Items         []ItemView      `json:"items"`
	ItemCount     int             `json:"item_count"`
	SubtotalCents int64           `json:"subtotal_cents"`
	Currency      *enums.Currency `json:"currency,omitempty"`
}
