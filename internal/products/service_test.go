package products_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/internal/inventory"
	"github.com/petfinder-app/petfinder-backend/internal/products"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

func newService(t *testing.T) (*db.Client, products.Service, inventory.Service) {
	t.Helper()
	client := dbtest.Open(t)
	inv, err := inventory.NewService(inventory.NewRepository(client.DB()), client)
	require.NoError(t, err)
	svc, err := products.NewService(products.NewRepository(client.DB()), inv, client)
	require.NoError(t, err)
	return client, svc, inv
}

func collar(slug string, stock int) products.CreateProductInput {
	return products.CreateProductInput{
		Slug:         slug,
		SKU:          slug,
		Name:         "Collar " + slug,
		PriceCents:   45000,
		Currency:     enums.CurrencyCOP,
		InitialStock: stock,
	}
}

func TestCreateBooksInitialStockAsMovement(t *testing.T) {
	_, svc, inv := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, collar("collar-qr-s", 12))
	require.NoError(t, err)
	require.Equal(t, 12, p.Stock)

	rec, err := inv.Reconcile(ctx, inventory.StockRef{ProductID: p.ID})
	require.NoError(t, err)
	require.True(t, rec.Consistent)

	_, err = svc.Create(ctx, collar("collar-qr-s", 1))
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestVariantsAndRestock(t *testing.T) {
	_, svc, inv := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, collar("harness", 0))
	require.NoError(t, err)

	override := int64(52000)
	withVariant, err := svc.CreateVariant(ctx, p.ID, products.CreateVariantInput{Name: "L", SKU: "harness-l", PriceCents: &override, InitialStock: 3})
	require.NoError(t, err)
	require.Len(t, withVariant.Variants, 1)
	variant := withVariant.Variants[0]
	require.Equal(t, int64(52000), variant.PriceCents)
	require.Equal(t, 3, variant.Stock)

	restocked, err := svc.Restock(ctx, p.ID, &variant.ID, 4, "po-1")
	require.NoError(t, err)
	require.Equal(t, 7, restocked.Variants[0].Stock)

	rec, err := inv.Reconcile(ctx, inventory.StockRef{ProductID: p.ID, VariantID: &variant.ID})
	require.NoError(t, err)
	require.True(t, rec.Consistent)

	other, err := svc.Create(ctx, collar("leash", 0))
	require.NoError(t, err)
	_, err = svc.UpdateVariant(ctx, other.ID, variant.ID, products.UpdateVariantInput{Name: dbtest.Ptr("XL")})
	require.Equal(t, pkgerrors.CodeInvalidVariant, pkgerrors.As(err).Code())

	hidden, err := svc.UpdateVariant(ctx, p.ID, variant.ID, products.UpdateVariantInput{IsActive: dbtest.Ptr(false)})
	require.NoError(t, err)
	require.False(t, hidden.Variants[0].IsActive)

	public, err := svc.GetBySlug(ctx, "harness")
	require.NoError(t, err)
	require.Empty(t, public.Variants)
}

func TestPublicListingHidesInactive(t *testing.T) {
	_, svc, _ := newService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, products.CreateCategoryInput{Slug: "collars", Name: "Collars"})
	require.NoError(t, err)

	for _, slug := range []string{"collar-qr-s", "collar-qr-m", "collar-qr-l"} {
		in := collar(slug, 5)
		in.CategoryID = &cat.ID
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}
	toy, err := svc.Create(ctx, collar("chew-toy", 5))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, toy.ID))

	page, err := svc.List(ctx, products.ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	byCategory, err := svc.List(ctx, products.ListFilters{Category: "collars", Query: "QR-M"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 1)
	require.Equal(t, "collar-qr-m", byCategory.Items[0].Slug)

	unknown, err := svc.List(ctx, products.ListFilters{Category: "beds"}, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, unknown.Items)

	admin, err := svc.AdminList(ctx, products.ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, admin.Items, 4)

	_, err = svc.GetBySlug(ctx, "chew-toy")
	require.Equal(t, pkgerrors.CodeProductNotFound, pkgerrors.As(err).Code())
}

func TestUpdateProductPatch(t *testing.T) {
	_, svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, collar("collar-qr-l", 1))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, products.UpdateProductInput{PriceCents: dbtest.Ptr(int64(52000))})
	require.NoError(t, err)
	require.Equal(t, int64(52000), updated.PriceCents)
	require.Equal(t, p.Name, updated.Name)

	bad := enums.Currency("ARS")
	_, err = svc.Update(ctx, p.ID, products.UpdateProductInput{Currency: &bad})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
