package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petfinder-app/petfinder-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.CheckDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCartAndOrdersMigrationGuardsInvariants(t *testing.T) {
	content := readMigration(t, "create_cart_and_orders")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CONSTRAINT ux_carts_session_token UNIQUE (session_token)",
		"quantity integer NOT NULL CHECK (quantity BETWEEN 1 AND 99)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_line",
		"CONSTRAINT ux_coupons_code UNIQUE (code)",
		"CONSTRAINT ux_orders_order_number UNIQUE (order_number)",
		"total_cents bigint NOT NULL CHECK (total_cents >= 0)",
		"CREATE TABLE IF NOT EXISTS payments",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationKeepsStockNonNegative(t *testing.T) {
	content := readMigration(t, "create_catalog")

	checks := []string{
		"stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		"CONSTRAINT ux_products_slug UNIQUE (slug)",
		"CREATE TABLE IF NOT EXISTS inventory_movements",
		"reason text NOT NULL CHECK (reason IN ('order', 'restock', 'manual', 'refund'))",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPetsMigrationHasPublicIdentifiers(t *testing.T) {
	content := readMigration(t, "create_users_and_pets")
	for _, sub := range []string{
		"CONSTRAINT ux_pets_qr_id UNIQUE (qr_id)",
		"CONSTRAINT ux_pets_nfc_id UNIQUE (nfc_id)",
		"nfc_id varchar(32)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSeedCatalogPrices(t *testing.T) {
	content := readMigration(t, "seed_collar_catalog")
	for _, sub := range []string{
		"('collar-qr-s', 'COLLAR-QR-S', 'Collar QR talla S', 'Collar con placa QR para mascotas pequeñas', 45000)",
		"('collar-qr-m', 'COLLAR-QR-M', 'Collar QR talla M', 'Collar con placa QR para mascotas medianas', 49000)",
		"('collar-qr-l', 'COLLAR-QR-L', 'Collar QR talla L', 'Collar con placa QR para mascotas grandes', 52000)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing seed row %q", sub)
		}
	}
}
