package models

import (
	"time"

	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultUnitWeightKg is used for impact statistics when a listing has no weight estimate.
const DefaultUnitWeightKg = 0.4

// Product is a perishable listing owned by a store. Quantities are only changed
// through the ledger methods below.
type Product struct {
	ID               uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	StoreID          uuid.UUID           `gorm:"type:uuid;index" json:"storeId"`
	Name             string              `json:"name"`
	QuantityTotal    int                 `gorm:"not null;default:0" json:"quantityTotal"`
	QuantityReserved int                 `gorm:"not null;default:0" json:"quantityReserved"`
	OriginalPrice    decimal.Decimal     `gorm:"type:numeric(10,2)" json:"originalPrice"`
	DiscountedPrice  decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"discountedPrice"`
	Currency         string              `gorm:"size:3" json:"currency"`
	UnitWeightKg     float64             `json:"unitWeightKg,omitempty"`
	PickupStart      time.Time           `json:"pickupStart"`
	PickupEnd        time.Time           `gorm:"index" json:"pickupEnd"`
	ExpiresAt        time.Time           `gorm:"index" json:"expiresAt"`
	Status           types.ProductStatus `gorm:"size:16;index;not null" json:"status"`

	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	types.Timestamps
}

func (p *Product) QuantityAvailable() int {
	return p.QuantityTotal - p.QuantityReserved
}

func (p *Product) IsExpired(now time.Time) bool {
	if p.Status == types.PRODUCT_EXPIRED {
		return true
	}
	if !p.PickupEnd.IsZero() && !now.Before(p.PickupEnd) {
		return true
	}
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

func (p *Product) WeightPerUnit() float64 {
	if p.UnitWeightKg > 0 {
		return p.UnitWeightKg
	}
	return DefaultUnitWeightKg
}

// Reserve holds qty units. The caller must hold the product row lock.
func (p *Product) Reserve(qty int) error {
	if qty <= 0 {
		return types.ErrInvalidQuantity
	}
	switch p.Status {
	case types.PRODUCT_ACTIVE:
	case types.PRODUCT_SOLD_OUT:
		return &types.InsufficientStockError{Requested: qty, Available: 0}
	default:
		return types.NewInvalidStateTransition("product", p.Status, "RESERVED")
	}
	available := p.QuantityAvailable()
	if qty > available {
		return &types.InsufficientStockError{Requested: qty, Available: available}
	}
	p.QuantityReserved += qty
	p.syncStatus()
	return nil
}

// ReleaseStock returns qty units to the pool. Over-release clamps at zero.
func (p *Product) ReleaseStock(qty int) {
	if qty <= 0 {
		return
	}
	p.QuantityReserved -= qty
	if p.QuantityReserved < 0 {
		p.QuantityReserved = 0
	}
	p.syncStatus()
}

// ConfirmSale consumes qty reserved units permanently.
func (p *Product) ConfirmSale(qty int) {
	if qty <= 0 {
		return
	}
	consumed := min(qty, p.QuantityReserved)
	p.QuantityReserved -= consumed
	p.QuantityTotal -= consumed
	p.syncStatus()
}

func (p *Product) Restock(qty int) error {
	if qty <= 0 {
		return types.ErrInvalidQuantity
	}
	p.QuantityTotal += qty
	p.syncStatus()
	return nil
}

func (p *Product) MarkExpired() {
	p.Status = types.PRODUCT_EXPIRED
}

func (p *Product) syncStatus() {
	available := p.QuantityAvailable()
	switch {
	case p.Status == types.PRODUCT_ACTIVE && available <= 0:
		p.Status = types.PRODUCT_SOLD_OUT
	case p.Status == types.PRODUCT_SOLD_OUT && available > 0:
		p.Status = types.PRODUCT_ACTIVE
	}
}
