package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

type VariantDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	IsActive   bool      `json:"is_active"`
}

type ProductDTO struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	PriceCents  int64          `json:"price_cents"`
	Currency    enums.Currency `json:"currency"`
	Stock       int            `json:"stock"`
	IsActive    bool           `json:"is_active"`
	CategoryID  *uuid.UUID     `json:"category_id,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
	Variants    []VariantDTO   `json:"variants"`
	CreatedAt   time.Time      `json:"created_at"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// ListFilters are the public browse knobs.
type ListFilters struct {
	Category string
	Query    string
}

type CreateProductInput struct {
	Slug         string         `json:"slug" validate:"required,max=120"`
	SKU          string         `json:"sku" validate:"required,max=64"`
	Name         string         `json:"name" validate:"required,max=200"`
	Description  *string        `json:"description"`
	PriceCents   int64          `json:"price_cents" validate:"gte=0"`
	Currency     enums.Currency `json:"currency" validate:"required,oneof=COP USD EUR MXN"`
	InitialStock int            `json:"initial_stock" validate:"gte=0"`
	CategoryID   *uuid.UUID     `json:"category_id"`
	ImageURL     *string        `json:"image_url" validate:"omitempty,url"`
}

type UpdateProductInput struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description"`
	PriceCents  *int64          `json:"price_cents" validate:"omitempty,gte=0"`
	Currency    *enums.Currency `json:"currency" validate:"omitempty,oneof=COP USD EUR MXN"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,url"`
	IsActive    *bool           `json:"is_active"`
}

type CreateVariantInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	SKU          string `json:"sku" validate:"required,max=64"`
	PriceCents   *int64 `json:"price_cents" validate:"omitempty,gte=0"`
	InitialStock int    `json:"initial_stock" validate:"gte=0"`
}

type UpdateVariantInput struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	PriceCents *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	IsActive   *bool   `json:"is_active"`
}

type CreateCategoryInput struct {
	Slug string `json:"slug" validate:"required,max=80"`
	Name string `json:"name" validate:"required,max=120"`
}

func FromModel(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Slug:        p.Slug,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CategoryID:  p.CategoryID,
		ImageURL:    p.ImageURL,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:         v.ID,
			Name:       v.Name,
			SKU:        v.SKU,
			PriceCents: v.EffectivePrice(p),
			Stock:      v.Stock,
			IsActive:   v.IsActive,
		})
	}
	return dto
}

func (in UpdateProductInput) columns() map[string]any {
	cols := map[string]any{}
	if in.Name != nil {
		cols["name"] = *in.Name
	}
	if in.Description != nil {
		cols["description"] = *in.Description
	}
	if in.PriceCents != nil {
		cols["price_cents"] = *in.PriceCents
	}
	if in.Currency != nil {
		cols["currency"] = *in.Currency
	}
	if in.CategoryID != nil {
		cols["category_id"] = *in.CategoryID
	}
	if in.ImageURL != nil {
		cols["image_url"] = *in.ImageURL
	}
	if in.IsActive != nil {
		cols["is_active"] = *in.IsActive
	}
	return cols
}

func (in UpdateVariantInput) columns() map[string]any {
	cols := map[string]any{}
	if in.Name != nil {
		cols["name"] = *in.Name
	}
	if in.PriceCents != nil {
		cols["price_cents"] = *in.PriceCents
	}
	if in.IsActive != nil {
		cols["is_active"] = *in.IsActive
	}
	return cols
}
