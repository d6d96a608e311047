// Package dbtest opens migrated SQLite databases for service and handler tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/migrate"
)

// Open returns a private shared-cache in-memory database with every table created.
func Open(t testing.TB) *db.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString()[:8])
	return open(t, dsn)
}

// OpenFile returns a file-backed database that serializes writers, for tests
// that run transactions from several goroutines.
func OpenFile(t testing.TB) *db.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "petfinder.db")
	return open(t, "file:"+path+"?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
}

func open(t testing.TB, dsn string) *db.Client {
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	client := db.NewFromGorm(conn)
	require.NoError(t, migrate.AutoMigrateModels(client))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// User inserts a user with a unique email.
func User(t testing.TB, conn *gorm.DB, mutate ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "Test Owner",
		Email:        fmt.Sprintf("owner_%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "hash",
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}

// Product inserts an active COP product with the given price and stock.
func Product(t testing.TB, conn *gorm.DB, slug string, priceCents int64, stock int, mutate ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Slug:       slug,
		SKU:        slug,
		Name:       strings.ToUpper(slug),
		PriceCents: priceCents,
		Currency:   enums.CurrencyCOP,
		Stock:      stock,
		IsActive:   true,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, conn.Create(p).Error)
	if !p.IsActive {
		require.NoError(t, conn.Model(p).Update("is_active", false).Error)
	}
	return p
}

// Variant inserts an active variant under product.
func Variant(t testing.TB, conn *gorm.DB, product *models.Product, sku string, stock int, priceCents *int64) *models.ProductVariant {
	t.Helper()
	v := &models.ProductVariant{
		ProductID:  product.ID,
		Name:       sku,
		SKU:        sku,
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(v).Error)
	return v
}

// Cart inserts an empty cart with a random session token.
func Cart(t testing.TB, conn *gorm.DB) *models.Cart {
	t.Helper()
	c := &models.Cart{SessionToken: uuid.NewString()}
	require.NoError(t, conn.Create(c).Error)
	return c
}

// CartItem inserts a line priced from the product at insert time.
func CartItem(t testing.TB, conn *gorm.DB, cart *models.Cart, product *models.Product, qty int) *models.CartItem {
	t.Helper()
	item := &models.CartItem{
		CartID:         cart.ID,
		ProductID:      product.ID,
		Quantity:       qty,
		UnitPriceCents: product.PriceCents,
		Currency:       product.Currency,
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

// Pet inserts a dog owned by owner.
func Pet(t testing.TB, conn *gorm.DB, owner *models.User, mutate ...func(*models.Pet)) *models.Pet {
	t.Helper()
	p := &models.Pet{
		OwnerID: owner.ID,
		QRID:    strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Name:    "Luna",
		Species: "dog",
		Status:  enums.PetStatusHome,
		Sex:     enums.PetSexUnknown,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
