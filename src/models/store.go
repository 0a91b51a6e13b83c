package models

import (
	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	ID          uuid.UUID       `gorm:"primarykey;type:uuid" json:"id"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name        string          `json:"name"`
	MealsSaved  int64           `gorm:"not null;default:0" json:"mealsSaved"`
	Revenue     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"revenue"`
	FoodSavedKg float64         `gorm:"not null;default:0" json:"foodSavedKg"`

	types.Timestamps
}

func (s *Store) OwnedBy(userID uuid.UUID) bool {
	return s.OwnerID == userID
}

// UserImpact aggregates what a buyer rescued across completed pickups.
type UserImpact struct {
	UserID      uuid.UUID       `gorm:"primarykey;type:uuid" json:"userId"`
	MealsSaved  int64           `gorm:"not null;default:0" json:"mealsSaved"`
	MoneySpent  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"moneySpent"`
	MoneySaved  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"moneySaved"`
	FoodSavedKg float64         `gorm:"not null;default:0" json:"foodSavedKg"`

	types.Timestamps
}

// ImpactDelta is what one completed booking adds to buyer and store statistics.
type ImpactDelta struct {
	Meals   int64
	Revenue decimal.Decimal
	Saved   decimal.Decimal
	FoodKg  float64
}

func NewImpactDelta(b *Booking, p *Product) ImpactDelta {
	qty := decimal.NewFromInt(int64(b.Quantity))
	saved := decimal.Zero
	if p.OriginalPrice.GreaterThan(b.UnitPrice) {
		saved = p.OriginalPrice.Sub(b.UnitPrice).Mul(qty)
	}
	return ImpactDelta{
		Meals:   int64(b.Quantity),
		Revenue: b.TotalPrice,
		Saved:   saved,
		FoodKg:  p.WeightPerUnit() * float64(b.Quantity),
	}
}
