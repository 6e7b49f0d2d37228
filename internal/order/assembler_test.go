package order

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/cart"
	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Address{}, &models.Product{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{}, &models.OrderStatusHistory{},
		&models.StockMovement{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) (*models.User, *models.Address) {
	t.Helper()
	u := models.User{PhoneNumber: "09121234567", FirstName: "Sara", LastName: "Ahmadi", Role: "user"}
	require.NoError(t, db.Create(&u).Error)
	a := models.Address{
		UserID: u.ID, Receiver: "Sara Ahmadi", Phone: "09121234567",
		Province: "Tehran", City: "Tehran", PostalCode: "1234567890", Line: "Valiasr St, No 10",
	}
	require.NoError(t, db.Create(&a).Error)
	return &u, &a
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price, quantity, pct, perUnit int64) *models.Product {
	t.Helper()
	p := models.Product{
		Name: "product " + sku, Slug: "product-" + sku, SKU: sku,
		UnitPrice: price, Quantity: quantity, IsActive: true,
		DiscountPercent: pct, DiscountPerUnit: perUnit,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func fillCart(t *testing.T, db *gorm.DB, userID uint, demands map[uint]int64) {
	t.Helper()
	svc := &cart.Service{DB: db}
	for productID, quantity := range demands {
		_, err := svc.Add(context.Background(), userID, productID, quantity)
		require.NoError(t, err)
	}
}

func TestCheckoutWorkedScenario(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	u, addr := seedUser(t, db)
	a := seedProduct(t, db, "A", 100_000, 5, 10, 0)
	b := seedProduct(t, db, "B", 50_000, 5, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{a.ID: 2, b.ID: 1})

	o, items, err := svc.Checkout(ctx, u.ID, CheckoutInput{AddressID: addr.ID, Note: "deliver in the morning"})
	require.NoError(t, err)

	require.Equal(t, int64(250_000), o.Subtotal)
	require.Equal(t, int64(20_000), o.DiscountAmount)
	require.Equal(t, int64(25_000), o.ShippingCost)
	require.Equal(t, int64(255_000), o.TotalAmount)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, PaymentPending, o.PaymentStatus)
	require.Contains(t, o.OrderNumber, "ORD-")

	require.Len(t, items, 2)
	require.Equal(t, int64(200_000), items[0].Subtotal)
	require.Equal(t, int64(20_000), items[0].DiscountAmount)
	require.Equal(t, int64(180_000), items[0].LineTotal)
	require.Equal(t, a.Name, items[0].ProductName)
	require.Equal(t, "A", items[0].ProductSKU)
	require.Equal(t, int64(50_000), items[1].Subtotal)
	require.Equal(t, int64(0), items[1].DiscountAmount)
	require.Equal(t, int64(50_000), items[1].LineTotal)

	// Address and customer snapshots are denormalized onto the order.
	require.Equal(t, "Valiasr St, No 10", o.ShippingLine)
	require.Equal(t, "Sara Ahmadi", o.CustomerName)
	require.Equal(t, "09121234567", o.CustomerPhone)
	require.Equal(t, "deliver in the morning", o.CustomerNote)

	// Stock decremented, cart cleared, history written.
	var gotA, gotB models.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.NoError(t, db.First(&gotB, b.ID).Error)
	require.Equal(t, int64(3), gotA.Quantity)
	require.Equal(t, int64(4), gotB.Quantity)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartCount).Error)
	require.Equal(t, int64(0), cartCount)

	history, err := svc.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, StatusPending, history[0].NewStatus)
}

func TestCheckoutFreeShippingAtThreshold(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	u, addr := seedUser(t, db)
	p := seedProduct(t, db, "T", 500_000, 3, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 1})

	o, _, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	require.Equal(t, int64(500_000), o.Subtotal)
	require.Equal(t, int64(0), o.ShippingCost)
	require.Equal(t, int64(500_000), o.TotalAmount)
}

func TestCheckoutConfiguredZeroShippingFee(t *testing.T) {
	db := initTestDB(t)
	fee := int64(0)
	svc := &Service{DB: db, ShippingFee: &fee}
	u, addr := seedUser(t, db)
	p := seedProduct(t, db, "Z", 100_000, 3, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 1})

	// An explicit zero fee means free shipping even below the threshold.
	o, _, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	require.Equal(t, int64(100_000), o.Subtotal)
	require.Equal(t, int64(0), o.ShippingCost)
	require.Equal(t, int64(100_000), o.TotalAmount)
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	u, addr := seedUser(t, db)

	_, _, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	require.ErrorIs(t, err, shoperr.ErrEmptyCart)
}

func TestCheckoutAllOrNothing(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	u, addr := seedUser(t, db)
	a := seedProduct(t, db, "A", 100_000, 10, 0, 0)
	b := seedProduct(t, db, "B", 50_000, 10, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{a.ID: 2, b.ID: 5})

	// The second line becomes overstocked after it was added to the cart.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", b.ID).Update("quantity", 1).Error)

	_, _, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	var stockErr *shoperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, b.ID, stockErr.ProductID)
	require.Equal(t, int64(1), stockErr.Available)

	// No order, no items, no decrement, cart intact.
	var orderCount, itemCount, movementCount, cartCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.StockMovement{}).Count(&movementCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartCount).Error)
	require.Equal(t, int64(0), orderCount)
	require.Equal(t, int64(0), itemCount)
	require.Equal(t, int64(0), movementCount)
	require.Equal(t, int64(2), cartCount)

	var gotA models.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.Equal(t, int64(10), gotA.Quantity)
}

func TestCheckoutInactiveProduct(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	u, addr := seedUser(t, db)
	p := seedProduct(t, db, "A", 100_000, 10, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 1})

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)

	_, _, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	require.ErrorIs(t, err, shoperr.ErrUnavailable)
}

func TestCheckoutUsesLivePricesNotSnapshots(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	u, addr := seedUser(t, db)
	p := seedProduct(t, db, "A", 100_000, 10, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 1})

	// Price rises between add-to-cart and checkout.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("unit_price", 130_000).Error)

	o, items, err := svc.Checkout(context.Background(), u.ID, CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	require.Equal(t, int64(130_000), o.Subtotal)
	require.Equal(t, int64(130_000), items[0].UnitPrice)
}

func TestOrderSnapshotIsolation(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	u, addr := seedUser(t, db)
	p := seedProduct(t, db, "A", 100_000, 10, 10, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 2})

	o, created, err := svc.Checkout(ctx, u.ID, CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)

	// Catalog changes after assembly must not leak into the stored order.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).
		Updates(map[string]any{"unit_price": 999_999, "name": "renamed", "discount_percent": 0}).Error)

	got, items, err := svc.Get(ctx, u.ID, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.Subtotal, got.Subtotal)
	require.Equal(t, o.TotalAmount, got.TotalAmount)
	require.Len(t, items, 1)
	require.Equal(t, created[0].UnitPrice, items[0].UnitPrice)
	require.Equal(t, created[0].LineTotal, items[0].LineTotal)
	require.Equal(t, "product A", items[0].ProductName)
}

func TestGetAndListScopedToUser(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	u, addr := seedUser(t, db)
	other := models.User{PhoneNumber: "09120000000", Role: "user"}
	require.NoError(t, db.Create(&other).Error)

	p := seedProduct(t, db, "A", 100_000, 10, 0, 0)
	fillCart(t, db, u.ID, map[uint]int64{p.ID: 1})
	o, _, err := svc.Checkout(ctx, u.ID, CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, other.ID, o.ID)
	require.ErrorIs(t, err, shoperr.ErrNotFound)

	orders, err := svc.List(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	orders, err = svc.List(ctx, other.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 0)

	_, err = svc.List(ctx, 0, 10, 0)
	require.ErrorIs(t, err, shoperr.ErrUnauthenticated)
}
