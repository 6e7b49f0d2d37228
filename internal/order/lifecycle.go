package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/inventory"
	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

// ReturnWindow is how long after delivery a paid order may be returned.
const ReturnWindow = 7 * 24 * time.Hour

func (s *Service) lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var o models.Order
	if err := inventory.Locked(tx).First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", shoperr.ErrNotFound, orderID)
		}
		return nil, err
	}
	return &o, nil
}

func appendHistory(tx *gorm.DB, orderID uint, previous, next string, actorID uint, note string) error {
	return tx.Create(&models.OrderStatusHistory{
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedBy:      actorID,
		Note:           note,
	}).Error
}

func (s *Service) demandsFor(tx *gorm.DB, orderID uint) ([]inventory.Demand, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	demands := make([]inventory.Demand, 0, len(items))
	for _, item := range items {
		demands = append(demands, inventory.Demand{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return demands, nil
}

// MarkPaid records a successful payment. It is idempotent: re-invoking on an
// already-paid order returns the stored state without side effects. Inventory
// was already decremented at assembly time, so this never touches stock.
func (s *Service) MarkPaid(ctx context.Context, orderID uint, authority, refID string, paidAt time.Time) (*models.Order, error) {
	var result *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == PaymentPaid {
			result = o
			return nil
		}
		if o.Status == StatusCancelled || o.Status == StatusReturned {
			return fmt.Errorf("%w: cannot pay a %s order", shoperr.ErrInvalidTransition, o.Status)
		}

		o.PaymentStatus = PaymentPaid
		o.PaymentAuthority = authority
		o.PaymentRefID = refID
		o.PaidAt = &paidAt
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, o.ID, o.Status, o.Status, 0, "payment confirmed, ref "+refID); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkPaymentFailed records a failed gateway callback. Paid orders are left
// untouched.
func (s *Service) MarkPaymentFailed(ctx context.Context, orderID uint, authority string) (*models.Order, error) {
	var result *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == PaymentPaid {
			return fmt.Errorf("%w: order is already paid", shoperr.ErrInvalidTransition)
		}
		o.PaymentStatus = PaymentFailed
		o.PaymentAuthority = authority
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel aborts an order that is still pending or confirmed and not paid, and
// returns its units to stock.
func (s *Service) Cancel(ctx context.Context, orderID, actorID uint, note string) (*models.Order, error) {
	var result *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !canCancel(o.Status, o.PaymentStatus) {
			return fmt.Errorf("%w: cannot cancel a %s order with payment %s",
				shoperr.ErrInvalidTransition, o.Status, o.PaymentStatus)
		}

		demands, err := s.demandsFor(tx, o.ID)
		if err != nil {
			return err
		}
		if err := inventory.Restock(tx, demands, inventory.MovementReturn, actorID, "order "+o.OrderNumber+" cancelled"); err != nil {
			return err
		}

		previous := o.Status
		o.Status = StatusCancelled
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, o.ID, previous, StatusCancelled, actorID, note); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Return accepts a delivered, paid order back within the return window,
// refunds the payment status and restocks the units.
func (s *Service) Return(ctx context.Context, orderID, actorID uint, note string) (*models.Order, error) {
	var result *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusDelivered || o.PaymentStatus != PaymentPaid || o.DeliveredAt == nil {
			return fmt.Errorf("%w: only delivered and paid orders can be returned", shoperr.ErrInvalidTransition)
		}
		if time.Since(*o.DeliveredAt) > ReturnWindow {
			return fmt.Errorf("%w: return window has closed", shoperr.ErrInvalidTransition)
		}

		demands, err := s.demandsFor(tx, o.ID)
		if err != nil {
			return err
		}
		if err := inventory.Restock(tx, demands, inventory.MovementReturn, actorID, "order "+o.OrderNumber+" returned"); err != nil {
			return err
		}

		previous := o.Status
		o.Status = StatusReturned
		o.PaymentStatus = PaymentRefunded
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, o.ID, previous, StatusReturned, actorID, note); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetStatus advances an order one step along the fulfilment path
// (pending → confirmed → preparing → shipped → delivered) and stamps the
// matching timestamp. Cancellation and returns go through their own guarded
// operations.
func (s *Service) SetStatus(ctx context.Context, orderID uint, newStatus string, actorID uint, note string) (*models.Order, error) {
	var result *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !canAdvance(o.Status, newStatus) {
			return fmt.Errorf("%w: %s to %s", shoperr.ErrInvalidTransition, o.Status, newStatus)
		}

		now := time.Now()
		previous := o.Status
		o.Status = newStatus
		switch newStatus {
		case StatusConfirmed:
			o.ConfirmedAt = &now
		case StatusShipped:
			o.ShippedAt = &now
		case StatusDelivered:
			o.DeliveredAt = &now
		}
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, o.ID, previous, newStatus, actorID, note); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an order entirely. Permitted only while it has not been
// paid; items and history go with it. Stock decremented at assembly is
// returned first, unless a cancellation or return already put it back.
func (s *Service) Delete(ctx context.Context, orderID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == PaymentPaid {
			return fmt.Errorf("%w: paid orders cannot be deleted", shoperr.ErrForbidden)
		}
		if o.Status != StatusCancelled && o.Status != StatusReturned {
			demands, err := s.demandsFor(tx, o.ID)
			if err != nil {
				return err
			}
			if err := inventory.Restock(tx, demands, inventory.MovementReturn, o.UserID, "order "+o.OrderNumber+" deleted"); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, o.ID).Error
	})
}
