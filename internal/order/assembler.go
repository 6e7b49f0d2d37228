// Package order converts carts into immutable orders and governs their status
// lifecycle afterwards. Stock is decremented at order-creation time, inside
// the same transaction as order assembly; MarkPaid never touches inventory.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/inventory"
	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/pricing"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

type Service struct {
	DB *gorm.DB

	// Nil values fall back to the pricing defaults. Pointers so an explicit
	// zero (always-free shipping) stays distinguishable from unset.
	FreeShippingThreshold *int64
	ShippingFee           *int64
}

type CheckoutInput struct {
	AddressID uint
	Note      string
}

func (s *Service) shippingParams() (int64, int64) {
	threshold, fee := pricing.DefaultFreeShippingThreshold, pricing.DefaultShippingFee
	if s.FreeShippingThreshold != nil {
		threshold = *s.FreeShippingThreshold
	}
	if s.ShippingFee != nil {
		fee = *s.ShippingFee
	}
	return threshold, fee
}

// Checkout is the single transactional operation converting the user's cart
// into an Order plus OrderItems, leaving the cart empty and inventory
// decremented, or changing nothing at all. Prices and discounts are re-read
// from the products under lock, never taken from cart snapshots.
func (s *Service) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*models.Order, []models.OrderItem, error) {
	if userID == 0 {
		return nil, nil, shoperr.ErrUnauthenticated
	}

	var (
		created models.Order
		items   []models.OrderItem
	)

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Cart
		if err := tx.Where("user_id = ?", userID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shoperr.ErrEmptyCart
			}
			return err
		}

		var cartItems []models.CartItem
		if err := tx.Where("cart_id = ?", c.ID).Order("product_id ASC").Find(&cartItems).Error; err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return shoperr.ErrEmptyCart
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("load user %d: %w", userID, err)
		}

		var addr models.Address
		if err := tx.Where("id = ? AND user_id = ?", in.AddressID, userID).First(&addr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: address %d", shoperr.ErrNotFound, in.AddressID)
			}
			return err
		}

		ids := make([]uint, 0, len(cartItems))
		for _, item := range cartItems {
			ids = append(ids, item.ProductID)
		}
		products, err := inventory.LockProducts(tx, ids)
		if err != nil {
			return err
		}

		for _, item := range cartItems {
			p := products[item.ProductID]
			if !p.IsActive {
				return fmt.Errorf("%w: %s", shoperr.ErrUnavailable, p.Name)
			}
			if item.Quantity > p.Quantity {
				return &shoperr.InsufficientStockError{ProductID: p.ID, Available: p.Quantity}
			}
		}

		now := time.Now()
		var subtotal, discount int64
		items = make([]models.OrderItem, 0, len(cartItems))
		demands := make([]inventory.Demand, 0, len(cartItems))

		for _, item := range cartItems {
			p := products[item.ProductID]
			lineSubtotal, lineDiscount, lineTotal := pricing.LineTotals(
				p.UnitPrice, item.Quantity, p.DiscountPercent, p.DiscountPerUnit,
			)
			subtotal += lineSubtotal
			discount += lineDiscount

			items = append(items, models.OrderItem{
				ProductID:       p.ID,
				ProductName:     p.Name,
				ProductSKU:      p.SKU,
				UnitPrice:       p.UnitPrice,
				Quantity:        item.Quantity,
				DiscountPercent: p.DiscountPercent,
				DiscountPerUnit: p.DiscountPerUnit,
				Subtotal:        lineSubtotal,
				DiscountAmount:  lineDiscount,
				LineTotal:       lineTotal,
			})
			demands = append(demands, inventory.Demand{ProductID: p.ID, Quantity: item.Quantity})
		}

		threshold, fee := s.shippingParams()
		shipping := pricing.ShippingCost(subtotal, threshold, fee)

		created = models.Order{
			OrderNumber:   newOrderNumber(now),
			UserID:        userID,
			Status:        StatusPending,
			PaymentStatus: PaymentPending,

			Subtotal:       subtotal,
			DiscountAmount: discount,
			ShippingCost:   shipping,
			TotalAmount:    subtotal - discount + shipping,

			ShippingReceiver:   addr.Receiver,
			ShippingPhone:      addr.Phone,
			ShippingProvince:   addr.Province,
			ShippingCity:       addr.City,
			ShippingPostalCode: addr.PostalCode,
			ShippingLine:       addr.Line,

			CustomerName:  user.FullName(),
			CustomerPhone: user.PhoneNumber,
			CustomerNote:  in.Note,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = created.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		if err := inventory.ReserveAndDecrement(tx, demands, userID, "order "+created.OrderNumber); err != nil {
			return err
		}

		history := models.OrderStatusHistory{
			OrderID:   created.ID,
			NewStatus: StatusPending,
			ChangedBy: userID,
			Note:      "order placed",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return &created, items, nil
}

// Get returns one of the user's orders with its items.
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*models.Order, []models.OrderItem, error) {
	if userID == 0 {
		return nil, nil, shoperr.ErrUnauthenticated
	}

	var o models.Order
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: order %d", shoperr.ErrNotFound, orderID)
		}
		return nil, nil, err
	}

	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).Where("order_id = ?", o.ID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &o, items, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	if userID == 0 {
		return nil, shoperr.ErrUnauthenticated
	}

	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// History returns the append-only status log for an order.
func (s *Service) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := s.DB.WithContext(ctx).
		Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
