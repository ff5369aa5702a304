package dto

import "github.com/shopspring/decimal"

type DiscountTierRequest struct {
	Quantity int             `json:"quantity" validate:"required,gt=0"`
	Price    decimal.Decimal `json:"price"    validate:"required,gt=0"`
}

// ReplaceDiscountsRequest is the desired tier set for one product.
type ReplaceDiscountsRequest struct {
	Discounts []DiscountTierRequest `json:"discounts" validate:"dive"`
}

type DiscountResponse struct {
	DiscountID string          `json:"discount_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Referenced bool            `json:"referenced"`
}

type DeleteDiscountsResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
	Skipped int    `json:"skipped"`
}
