package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/internal/inventory"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

const initialStockReference = "initial stock"

// Service exposes the public catalog and its admin maintenance.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[ProductDTO], error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)

	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CreateVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*ProductDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error)
	Restock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int, reference string) (*ProductDTO, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      *Repository
	inventory inventory.Service
	tx        txRunner
}

func NewService(repo *Repository, inv inventory.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, inventory: inv, tx: tx}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	return s.list(ctx, filters, params, false)
}

func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	return s.list(ctx, filters, params, true)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params, includeInactive bool) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := ListQuery{
		Search:          filters.Query,
		IncludeInactive: includeInactive,
		Cursor:          cursor,
		Limit:           pagination.LimitWithBuffer(params.Limit),
	}
	if slug := strings.TrimSpace(filters.Category); slug != "" {
		category, err := s.repo.FindCategoryBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				empty := pagination.BuildPage[ProductDTO](nil, params.Limit, nil)
				return &empty, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
		}
		q.CategoryID = &category.ID
	}
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	dtos := make([]ProductDTO, len(rows))
	for i := range rows {
		dtos[i] = FromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, params.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// GetBySlug returns an active product with its active variants.
func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	p, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, mapErr(err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	}
	active := p.Variants[:0]
	for _, v := range p.Variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	p.Variants = active
	dto := FromModel(p)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, len(rows))
	for i, c := range rows {
		out[i] = CategoryDTO{ID: c.ID, Slug: c.Slug, Name: c.Name}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "load product")
	}
	dto := FromModel(p)
	return &dto, nil
}

// Create inserts the product with zero stock and books InitialStock as a
// manual movement so the ledger starts in step with the counter.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	p := &models.Product{
		Slug:        strings.TrimSpace(input.Slug),
		SKU:         strings.TrimSpace(input.SKU),
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Currency:    input.Currency,
		IsActive:    true,
		CategoryID:  input.CategoryID,
		ImageURL:    input.ImageURL,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		if input.InitialStock == 0 {
			return nil
		}
		return s.inventory.Increment(ctx, tx, inventory.StockRef{ProductID: p.ID}, input.InitialStock, enums.MovementReasonManual, initialStockReference)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_products_slug", "ux_products_sku", "products.slug", "products.sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug or sku already exists")
		}
		return nil, mapErr(err, "create product")
	}
	return s.Get(ctx, p.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.Currency != nil && !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	if err := s.repo.Update(ctx, id, input.columns()); err != nil {
		return nil, mapErr(err, "update product")
	}
	return s.Get(ctx, id)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return mapErr(err, "deactivate product")
	}
	return nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*ProductDTO, error) {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, mapErr(err, "load product")
	}
	v := &models.ProductVariant{
		ProductID:  productID,
		Name:       input.Name,
		SKU:        strings.TrimSpace(input.SKU),
		PriceCents: input.PriceCents,
		IsActive:   true,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateVariant(ctx, v); err != nil {
			return err
		}
		if input.InitialStock == 0 {
			return nil
		}
		ref := inventory.StockRef{ProductID: productID, VariantID: &v.ID}
		return s.inventory.Increment(ctx, tx, ref, input.InitialStock, enums.MovementReasonManual, initialStockReference)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_product_variants_sku", "product_variants.sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "variant sku already exists")
		}
		return nil, mapErr(err, "create variant")
	}
	return s.Get(ctx, productID)
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error) {
	if _, err := s.loadVariant(ctx, productID, variantID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVariant(ctx, variantID, input.columns()); err != nil {
		return nil, mapErr(err, "update variant")
	}
	return s.Get(ctx, productID)
}

func (s *service) Restock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int, reference string) (*ProductDTO, error) {
	if variantID != nil {
		if _, err := s.loadVariant(ctx, productID, *variantID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(reference) == "" {
		reference = "admin restock"
	}
	ref := inventory.StockRef{ProductID: productID, VariantID: variantID}
	if err := s.inventory.Restock(ctx, ref, qty, enums.MovementReasonRestock, reference); err != nil {
		return nil, err
	}
	return s.Get(ctx, productID)
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	c := &models.ProductCategory{Slug: strings.TrimSpace(input.Slug), Name: input.Name}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return &CategoryDTO{ID: c.ID, Slug: c.Slug, Name: c.Name}, nil
}

func (s *service) loadVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	v, err := s.repo.FindVariant(ctx, variantID)
	if err != nil || v.ProductID != productID {
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidVariant, "variant does not belong to product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	return v, nil
}

func mapErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
