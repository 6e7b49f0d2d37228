// Package inventory is the only code allowed to change a product's on-hand
// quantity for sales and restocks. Every mutation happens under an exclusive
// row lock taken inside the caller's transaction, with locks acquired in
// ascending product-id order so two multi-line checkouts can never deadlock.
package inventory

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

const (
	MovementPurchase   = "purchase"
	MovementSale       = "sale"
	MovementReturn     = "return"
	MovementAdjustment = "adjustment"
	MovementLoss       = "loss"
)

// Demand is one (product, quantity) requirement of a checkout or restock.
type Demand struct {
	ProductID uint
	Quantity  int64
}

// Locked adds SELECT ... FOR UPDATE to the query. The sqlite dialect used in
// tests has no row locks; its single-writer model serializes writes anyway.
func Locked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// LockProducts acquires exclusive row locks in ascending product-id order and
// returns the freshly read rows. Quantities read before this call must not be
// trusted.
func LockProducts(tx *gorm.DB, ids []uint) (map[uint]*models.Product, error) {
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[uint]*models.Product, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		var p models.Product
		if err := Locked(tx).First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", shoperr.ErrNotFound, id)
			}
			return nil, fmt.Errorf("lock product %d: %w", id, err)
		}
		out[id] = &p
	}
	return out, nil
}

// ReserveAndDecrement validates every demand against the quantity re-read
// under lock and decrements all of them, or none. On the first failing line it
// returns an InsufficientStockError carrying the available quantity, and the
// enclosing transaction is expected to roll back. The call is not idempotent;
// callers must invoke it at most once per order.
func ReserveAndDecrement(tx *gorm.DB, demands []Demand, actorID uint, note string) error {
	return apply(tx, demands, MovementSale, -1, actorID, note)
}

// Restock returns previously sold units to stock, used by the cancellation and
// return paths. movementType is one of the Movement constants.
func Restock(tx *gorm.DB, demands []Demand, movementType string, actorID uint, note string) error {
	return apply(tx, demands, movementType, +1, actorID, note)
}

func apply(tx *gorm.DB, demands []Demand, movementType string, sign int64, actorID uint, note string) error {
	if len(demands) == 0 {
		return nil
	}
	for _, d := range demands {
		if d.Quantity < 1 {
			return fmt.Errorf("%w: demand for product %d must be positive", shoperr.ErrValidation, d.ProductID)
		}
	}

	sorted := make([]Demand, len(demands))
	copy(sorted, demands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	ids := make([]uint, 0, len(sorted))
	for _, d := range sorted {
		ids = append(ids, d.ProductID)
	}
	products, err := LockProducts(tx, ids)
	if err != nil {
		return err
	}

	if sign < 0 {
		for _, d := range sorted {
			p := products[d.ProductID]
			if p.Quantity < d.Quantity {
				return &shoperr.InsufficientStockError{ProductID: p.ID, Available: p.Quantity}
			}
		}
	}

	for _, d := range sorted {
		p := products[d.ProductID]
		before := p.Quantity
		after := before + sign*d.Quantity

		if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).
			Update("quantity", after).Error; err != nil {
			return fmt.Errorf("update quantity of product %d: %w", p.ID, err)
		}

		movement := models.StockMovement{
			ProductID:      p.ID,
			MovementType:   movementType,
			Quantity:       sign * d.Quantity,
			BeforeQuantity: before,
			AfterQuantity:  after,
			Note:           note,
			CreatedBy:      actorID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("record stock movement for product %d: %w", p.ID, err)
		}
		p.Quantity = after
	}
	return nil
}

// Adjust applies a single signed manual correction (admin stock management).
// Negative deltas are validated against the quantity under lock so an
// adjustment can never push stock below zero.
func Adjust(tx *gorm.DB, productID uint, delta int64, actorID uint, note string) (*models.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta must not be zero", shoperr.ErrValidation)
	}

	products, err := LockProducts(tx, []uint{productID})
	if err != nil {
		return nil, err
	}
	p := products[productID]

	after := p.Quantity + delta
	if after < 0 {
		return nil, &shoperr.InsufficientStockError{ProductID: p.ID, Available: p.Quantity}
	}

	movementType := MovementPurchase
	if delta < 0 {
		movementType = MovementAdjustment
	}

	if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).
		Update("quantity", after).Error; err != nil {
		return nil, fmt.Errorf("update quantity of product %d: %w", p.ID, err)
	}
	movement := models.StockMovement{
		ProductID:      p.ID,
		MovementType:   movementType,
		Quantity:       delta,
		BeforeQuantity: p.Quantity,
		AfterQuantity:  after,
		Note:           note,
		CreatedBy:      actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("record stock movement for product %d: %w", p.ID, err)
	}
	p.Quantity = after
	return p, nil
}
