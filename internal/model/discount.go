package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountTier is a block price: Quantity units of the product cost Price.
// At most one tier exists per (product, quantity).
type DiscountTier struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_discount_product_quantity"`
	Quantity  int             `gorm:"not null;uniqueIndex:idx_discount_product_quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name explicit (discount_tiers).
func (DiscountTier) TableName() string { return "discount_tiers" }
