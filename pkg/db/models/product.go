package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// ProductCategory groups shop products.
type ProductCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *ProductCategory) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Product is a sellable catalog entry. Prices are integer minor units.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex"`
	SKU         string           `gorm:"column:sku;not null;uniqueIndex"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	PriceCents  int64            `gorm:"column:price_cents;not null"`
	Currency    enums.Currency   `gorm:"column:currency;type:text;not null"`
	Stock       int              `gorm:"column:stock;not null;default:0"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	ImageURL    *string          `gorm:"column:image_url"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant specializes a product (size, color) with its own stock and
// an optional price override.
type ProductVariant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	SKU        string    `gorm:"column:sku;not null;uniqueIndex"`
	PriceCents *int64    `gorm:"column:price_cents"`
	Stock      int       `gorm:"column:stock;not null;default:0"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// EffectivePrice returns the variant override when present, otherwise the
// product price.
func (v *ProductVariant) EffectivePrice(product *Product) int64 {
	if v != nil && v.PriceCents != nil {
		return *v.PriceCents
	}
	if product == nil {
		return 0
	}
	return product.PriceCents
}
