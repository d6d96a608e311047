package db

import (
	"context"
	"errors"
	"testing"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "panicked").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic rollback, found %d rows", count)
	}
}

func TestWithTx_NestedSavepointRecoversFromUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&testModel{Name: "taken"}).Error)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		inner := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&testModel{Name: "taken"}).Error
		})
		if !IsUniqueViolation(inner, "") {
			return inner
		}
		return tx.Create(&testModel{Name: "fresh"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestNewOpensConfiguredDriver(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver:       DriverSQLite,
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.Equal(t, DriverSQLite, client.DB().Dialector.Name())
	pool, err := client.SQL()
	require.NoError(t, err)
	require.Equal(t, 1, pool.Stats().MaxOpenConnections)
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor(config.DBConfig{Driver: DriverPostgres})
	require.Error(t, err, "dsn is required")

	_, err = dialectorFor(config.DBConfig{Driver: "mysql", DSN: "x"})
	require.ErrorContains(t, err, "unsupported driver")

	d, err := dialectorFor(config.DBConfig{DSN: "postgres://localhost/petfinder"})
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, d.Name())
}
