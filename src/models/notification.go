package models

import (
	"time"

	"mazza/src/types"

	"github.com/google/uuid"
)

type Notification struct {
	ID     uuid.UUID              `gorm:"primarykey;type:uuid" json:"id"`
	UserID uuid.UUID              `gorm:"type:uuid;index;not null" json:"userId"`
	Type   types.NotificationType `gorm:"size:32;not null" json:"type"`
	Title  string                 `json:"title"`
	Body   string                 `json:"body"`
	Data   *types.JSONB           `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt *time.Time             `json:"readAt,omitempty"`

	types.Timestamps
}
