package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// InventoryMovement is an append-only stock change for a product or variant.
type InventoryMovement struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	ChangeQty int                  `gorm:"column:change_qty;not null"`
	Reason    enums.MovementReason `gorm:"column:reason;type:text;not null"`
	Reference string               `gorm:"column:reference;not null"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (m *InventoryMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
