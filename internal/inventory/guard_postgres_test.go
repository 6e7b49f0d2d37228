package inventory

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

// Needs real row locks, so it only runs against Postgres.
func initPostgresDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.StockMovement{}))
	t.Cleanup(func() {
		db.Exec("TRUNCATE TABLE stock_movements, products RESTART IDENTITY CASCADE")
	})
	return db
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	db := initPostgresDB(t)

	p := models.Product{
		Name: "single unit", Slug: "single-unit", SKU: "SINGLE-1",
		UnitPrice: 100_000, Quantity: 1, IsActive: true,
	}
	require.NoError(t, db.Create(&p).Error)

	demand := []Demand{{ProductID: p.ID, Quantity: 1}}
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				return ReserveAndDecrement(tx, demand, uint(i+1), "race")
			})
		}(i)
	}
	wg.Wait()

	var stockErrs, oks int
	for _, err := range errs {
		var stockErr *shoperr.InsufficientStockError
		switch {
		case err == nil:
			oks++
		default:
			require.ErrorAs(t, err, &stockErr)
			require.Equal(t, int64(0), stockErr.Available)
			stockErrs++
		}
	}
	require.Equal(t, 1, oks)
	require.Equal(t, 1, stockErrs)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, int64(0), got.Quantity)
}

func TestConcurrentMultiLineNoDeadlock(t *testing.T) {
	db := initPostgresDB(t)

	a := models.Product{Name: "a", Slug: "prod-a", SKU: "MULTI-A", UnitPrice: 1000, Quantity: 100, IsActive: true}
	b := models.Product{Name: "b", Slug: "prod-b", SKU: "MULTI-B", UnitPrice: 1000, Quantity: 100, IsActive: true}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	// Opposite demand orders; ordered locking must prevent circular wait.
	first := []Demand{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
	second := []Demand{{ProductID: b.ID, Quantity: 1}, {ProductID: a.ID, Quantity: 1}}

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			demand := first
			if i%2 == 1 {
				demand = second
			}
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				return ReserveAndDecrement(tx, demand, uint(i), "deadlock probe")
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var gotA, gotB models.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.NoError(t, db.First(&gotB, b.ID).Error)
	require.Equal(t, int64(80), gotA.Quantity)
	require.Equal(t, int64(80), gotB.Quantity)
}
