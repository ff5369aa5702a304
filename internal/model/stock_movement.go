package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock movement types.
const (
	MovementLineCreated    = "order_line_created"
	MovementLineUpdated    = "order_line_updated"
	MovementLineDeleted    = "order_line_deleted"
	MovementOrderDeleted   = "order_deleted"
	MovementOrderCancelled = "order_cancelled"
	MovementManual         = "manual_adjustment"
)

// StockMovement records every change to a product's stock.
// Rows are append-only.
type StockMovement struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type        string     `gorm:"not null"`
	Delta       int        `gorm:"not null"` // positive = stock in, negative = stock out
	StockBefore int        `gorm:"not null"`
	StockAfter  int        `gorm:"not null"`
	Reason      string     `gorm:"type:text"`
	OrderID     *uuid.UUID `gorm:"type:uuid;index"`
	OrderLineID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }
