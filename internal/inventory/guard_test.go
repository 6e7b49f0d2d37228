package inventory

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.StockMovement{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func createProduct(t *testing.T, db *gorm.DB, sku string, quantity int64) *models.Product {
	t.Helper()
	p := models.Product{
		Name:      "product " + sku,
		Slug:      "product-" + sku,
		SKU:       sku,
		UnitPrice: 100_000,
		Quantity:  quantity,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestReserveAndDecrement(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-1", 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, []Demand{{ProductID: p.ID, Quantity: 3}}, 1, "order ORD-1")
	})
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, int64(7), got.Quantity)

	var movement models.StockMovement
	require.NoError(t, db.Where("product_id = ?", p.ID).First(&movement).Error)
	require.Equal(t, MovementSale, movement.MovementType)
	require.Equal(t, int64(-3), movement.Quantity)
	require.Equal(t, int64(10), movement.BeforeQuantity)
	require.Equal(t, int64(7), movement.AfterQuantity)
}

func TestReserveAndDecrementInsufficient(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-2", 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, []Demand{{ProductID: p.ID, Quantity: 5}}, 1, "")
	})

	var stockErr *shoperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, p.ID, stockErr.ProductID)
	require.Equal(t, int64(2), stockErr.Available)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, int64(2), got.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.StockMovement{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestReserveAndDecrementAllOrNothing(t *testing.T) {
	db := initTestDB(t)
	a := createProduct(t, db, "A-3", 10)
	b := createProduct(t, db, "B-3", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, []Demand{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 5},
		}, 1, "")
	})

	var stockErr *shoperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, b.ID, stockErr.ProductID)

	var gotA, gotB models.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.NoError(t, db.First(&gotB, b.ID).Error)
	require.Equal(t, int64(10), gotA.Quantity)
	require.Equal(t, int64(1), gotB.Quantity)
}

func TestReserveAndDecrementLastUnit(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-4", 1)

	demand := []Demand{{ProductID: p.ID, Quantity: 1}}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, demand, 1, "first checkout")
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, demand, 2, "second checkout")
	})
	var stockErr *shoperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(0), stockErr.Available)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, int64(0), got.Quantity)
}

func TestReserveAndDecrementUnknownProduct(t *testing.T) {
	db := initTestDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, []Demand{{ProductID: 999, Quantity: 1}}, 1, "")
	})
	require.ErrorIs(t, err, shoperr.ErrNotFound)
}

func TestReserveAndDecrementRejectsBadDemand(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-5", 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAndDecrement(tx, []Demand{{ProductID: p.ID, Quantity: 0}}, 1, "")
	})
	require.ErrorIs(t, err, shoperr.ErrValidation)
}

func TestRestock(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-6", 3)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Restock(tx, []Demand{{ProductID: p.ID, Quantity: 2}}, MovementReturn, 7, "order cancelled")
	}))

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, int64(5), got.Quantity)

	var movement models.StockMovement
	require.NoError(t, db.Where("product_id = ?", p.ID).First(&movement).Error)
	require.Equal(t, MovementReturn, movement.MovementType)
	require.Equal(t, int64(2), movement.Quantity)
	require.Equal(t, uint(7), movement.CreatedBy)
}

func TestAdjust(t *testing.T) {
	db := initTestDB(t)
	p := createProduct(t, db, "A-7", 4)

	var updated *models.Product
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = Adjust(tx, p.ID, 10, 1, "restock delivery")
		return err
	}))
	require.Equal(t, int64(14), updated.Quantity)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = Adjust(tx, p.ID, -4, 1, "expired units")
		return err
	}))
	require.Equal(t, int64(10), updated.Quantity)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(tx, p.ID, -100, 1, "")
		return err
	})
	var stockErr *shoperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	var count int64
	require.NoError(t, db.Model(&models.StockMovement{}).Where("product_id = ?", p.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)
}
