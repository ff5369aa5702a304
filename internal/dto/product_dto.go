package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name           string           `json:"name"             validate:"required,min=1,max=120"`
	Description    *string          `json:"description"`
	Price          decimal.Decimal  `json:"price"            validate:"required,gt=0"`
	OneSetQuantity *int             `json:"one_set_quantity" validate:"omitempty,min=0,max=10000"`
	OneSetPrice    *decimal.Decimal `json:"one_set_price"    validate:"omitempty,gt=0"`
	StockQuantity  int              `json:"stock_quantity"   validate:"min=0,max=1000000000"`
	Unit           *string          `json:"unit"             validate:"omitempty,max=20"`
}

// UpdateProductRequest lists every field a product update may touch.
// Stock is changed through the stock endpoint, never here.
type UpdateProductRequest struct {
	Name           *string          `json:"name"             validate:"omitempty,min=1,max=120"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"            validate:"omitempty,gt=0"`
	OneSetQuantity *int             `json:"one_set_quantity" validate:"omitempty,min=0,max=10000"`
	OneSetPrice    *decimal.Decimal `json:"one_set_price"    validate:"omitempty,gt=0"`
	Unit           *string          `json:"unit"             validate:"omitempty,max=20"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta"  validate:"required,ne=0,min=-1000000000,max=1000000000"`
	Reason string `json:"reason" validate:"required,min=3,max=200"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Name  string `form:"name"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    *string            `json:"description"`
	Price          decimal.Decimal    `json:"price"`
	OneSetQuantity *int               `json:"one_set_quantity"`
	OneSetPrice    *decimal.Decimal   `json:"one_set_price"`
	StockQuantity  int                `json:"stock_quantity"`
	Unit           *string            `json:"unit"`
	Discounts      []DiscountResponse `json:"discounts"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// QuoteResponse prices a quantity of a product with its current tiers.
type QuoteResponse struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	ActualUnits   int             `json:"actual_units"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	SavedAmount   decimal.Decimal `json:"saved_amount"`
	DiscountID    *string         `json:"discount_id"`
}
