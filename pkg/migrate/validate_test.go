package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestCheckDirReportsEveryBadFile(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_init.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20251001000000_pets.sql", "-- +goose Up\nSELECT 1;\n")
	writeMigration(t, dir, "20251001000100_orders.sql", "-- +goose Down\nSELECT 1;\n-- +goose Up\n")
	writeMigration(t, dir, "README.md", "not a migration")

	err := CheckDir(dir)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "001_init.sql: name must look like")
	require.Contains(t, msg, "20251001000000_pets.sql: missing -- +goose Down")
	require.Contains(t, msg, "20251001000100_orders.sql: -- +goose Down comes before")
}

func TestCheckDirRejectsImpossibleVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20251399000000_pets.sql", "-- +goose Up\n-- +goose Down\n")

	err := CheckDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "version is not a timestamp")
}

func TestNewMigrationFile(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.FixedZone("COT", -5*3600))

	path, err := NewMigrationFile(dir, "Add Pet Photos!", at)
	require.NoError(t, err)
	require.Equal(t, "20260314143000_add_pet_photos.sql", filepath.Base(path))
	require.NoError(t, CheckDir(dir))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "-- +goose Up"))

	_, err = NewMigrationFile(dir, "add pet photos", at)
	require.Error(t, err, "same version and name must not overwrite")

	_, err = NewMigrationFile(dir, "!!!", at)
	require.Error(t, err)
}
