// Package cart is the customer's in-progress selection before checkout. Lines
// are validated against the live catalog on every mutation and totals are
// always derived from current product state, never from stored snapshots.
package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/pricing"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

type Service struct {
	DB *gorm.DB
}

// Line is a cart item with its product attached. Product may be stale by the
// time checkout runs; the assembler re-reads everything under lock.
type Line struct {
	Item    models.CartItem `json:"item"`
	Product models.Product  `json:"product"`
}

type Totals struct {
	Subtotal         int64 `json:"subtotal"`
	OriginalSubtotal int64 `json:"original_subtotal"`
	Savings          int64 `json:"savings"`
	TotalItems       int64 `json:"total_items"`
}

// Anomaly reports a line that can no longer be fulfilled as-is. The consuming
// handler decides whether to surface or remove it before checkout.
type Anomaly struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

const (
	AnomalyInactive      = "inactive"
	AnomalyOverRequested = "insufficient_stock"
)

func (s *Service) cartFor(tx *gorm.DB, userID uint) (*models.Cart, error) {
	if userID == 0 {
		return nil, shoperr.ErrUnauthenticated
	}
	var c models.Cart
	if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&c).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &c, nil
}

// Add puts quantity units of the product into the cart, merging with an
// existing line. The combined quantity is validated against live stock.
func (s *Service) Add(ctx context.Context, userID, productID uint, quantity int64) (*models.CartItem, error) {
	if err := pricing.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	var item *models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cartFor(tx, userID)
		if err != nil {
			return err
		}

		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return fmt.Errorf("%w: %s", shoperr.ErrUnavailable, product.Name)
		}

		var existing models.CartItem
		res := tx.Where("cart_id = ? AND product_id = ?", c.ID, productID).First(&existing)
		if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		newTotal := existing.Quantity + quantity
		if newTotal > product.Quantity {
			return &shoperr.InsufficientStockError{ProductID: product.ID, Available: product.Quantity}
		}

		if res.Error == nil {
			existing.Quantity = newTotal
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			item = &existing
			return nil
		}

		created := models.CartItem{
			CartID:        c.ID,
			ProductID:     productID,
			Quantity:      quantity,
			PriceSnapshot: product.UnitPrice,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		item = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuantity overwrites the line's quantity after the same validation as
// Add.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int64) (*models.CartItem, error) {
	if err := pricing.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	var item *models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cartFor(tx, userID)
		if err != nil {
			return err
		}

		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return fmt.Errorf("%w: %s", shoperr.ErrUnavailable, product.Name)
		}
		if quantity > product.Quantity {
			return &shoperr.InsufficientStockError{ProductID: product.ID, Available: product.Quantity}
		}

		var existing models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", c.ID, productID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: cart line for product %d", shoperr.ErrNotFound, productID)
			}
			return err
		}
		existing.Quantity = quantity
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		item = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes the line for the product if present.
func (s *Service) Remove(ctx context.Context, userID, productID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cartFor(tx, userID)
		if err != nil {
			return err
		}
		res := tx.Where("cart_id = ? AND product_id = ?", c.ID, productID).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: cart line for product %d", shoperr.ErrNotFound, productID)
		}
		return nil
	})
}

// Clear deletes every line in the user's cart.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.cartFor(tx, userID)
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error
	})
}

// Lines returns the cart contents with current product rows attached. Lines
// whose product has been deleted from the catalog are filtered out.
func (s *Service) Lines(ctx context.Context, userID uint) ([]Line, error) {
	c, err := s.cartFor(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := s.DB.WithContext(ctx).
		Where("cart_id = ?", c.ID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		var product models.Product
		if err := s.DB.WithContext(ctx).First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		lines = append(lines, Line{Item: item, Product: product})
	}
	return lines, nil
}

// TotalsFor derives cart totals from the live catalog: Subtotal uses effective
// prices, OriginalSubtotal ignores discounts, Savings is the difference.
func (s *Service) TotalsFor(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		effective := pricing.EffectiveUnitPrice(l.Product.UnitPrice, l.Product.DiscountPercent, l.Product.DiscountPerUnit)
		t.Subtotal += effective * l.Item.Quantity
		t.OriginalSubtotal += l.Product.UnitPrice * l.Item.Quantity
		t.TotalItems += l.Item.Quantity
	}
	t.Savings = t.OriginalSubtotal - t.Subtotal
	return t
}

// Anomalies reports lines that would fail checkout: inactive products and
// quantities that now exceed live stock.
func (s *Service) Anomalies(lines []Line) []Anomaly {
	var out []Anomaly
	for _, l := range lines {
		switch {
		case !l.Product.IsActive:
			out = append(out, Anomaly{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Reason:    AnomalyInactive,
				Requested: l.Item.Quantity,
				Available: l.Product.Quantity,
			})
		case l.Item.Quantity > l.Product.Quantity:
			out = append(out, Anomaly{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				Reason:    AnomalyOverRequested,
				Requested: l.Item.Quantity,
				Available: l.Product.Quantity,
			})
		}
	}
	return out
}

func loadProduct(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	if err := tx.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", shoperr.ErrNotFound, productID)
		}
		return nil, err
	}
	return &p, nil
}
