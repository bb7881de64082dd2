package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/repo"
)

// newTestRepo opens a throwaway in-memory database. Capped at a single
// connection because every sqlite :memory: connection is its own
// database.
func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Category{}, &models.Product{},
		&models.Cart{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))
	return repo.New(gdb)
}

func seedProduct(t *testing.T, r *repo.GormRepo, name string, price float64, inventory int64) *models.Product {
	t.Helper()

	p := &models.Product{Name: name, Brand: "acme", Price: price, Inventory: inventory}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}
