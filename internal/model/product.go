package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item. When OneSetQuantity is set, one ordered
// unit is a bundle of OneSetQuantity stock units sold at OneSetPrice.
type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string           `gorm:"uniqueIndex;not null"`
	Description    *string          `gorm:"type:text"`
	Price          decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	OneSetQuantity *int             `gorm:"column:one_set_quantity"`
	OneSetPrice    *decimal.Decimal `gorm:"type:decimal(10,2)"`
	StockQuantity  int              `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0"`
	Unit           *string          `gorm:"size:20"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Discounts []DiscountTier `gorm:"foreignKey:ProductID"`
}

// IsBundle reports whether the product is sold in sets.
func (p *Product) IsBundle() bool {
	return p.OneSetQuantity != nil && *p.OneSetQuantity > 0
}
