package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OrderLineRequest is one line of a new order or a line added later.
// UnitPrice, Subtotal and DiscountID are what the client displayed; the
// server always prices the line itself.
type OrderLineRequest struct {
	ProductID  string           `json:"product_id"  validate:"required,uuid"`
	Quantity   int              `json:"quantity"    validate:"required,gt=0,lte=10000"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Subtotal   *decimal.Decimal `json:"subtotal"`
	DiscountID *string          `json:"discount_id" validate:"omitempty,uuid"`
}

type CreateOrderRequest struct {
	// CustomerID is honoured for staff only; customers always order for themselves.
	CustomerID      string             `json:"customer_id"`
	ScheduleID      *string            `json:"schedule_id"      validate:"omitempty,uuid"`
	DeliveryMethod  string             `json:"delivery_method"  validate:"omitempty,oneof=pickup home_delivery courier"`
	DeliveryAddress *string            `json:"delivery_address" validate:"omitempty,max=300"`
	PaymentMethod   *string            `json:"payment_method"   validate:"omitempty,max=40"`
	Lines           []OrderLineRequest `json:"lines"            validate:"dive"`
}

type UpdateOrderLineRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type FinishLineRequest struct {
	IsFinish bool `json:"is_finish"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type UpdateScheduleRequest struct {
	ScheduleID string `json:"schedule_id" validate:"required,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

// OrderFilter narrows the order list. From/To are pickup dates (YYYY-MM-DD)
// matched against the schedule of the order.
type OrderFilter struct {
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
	From       string `form:"from"`
	To         string `form:"to"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// DisplayPricing is the line re-priced with the tiers the product has now.
type DisplayPricing struct {
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	SavedAmount   decimal.Decimal `json:"saved_amount"`
}

type OrderLineResponse struct {
	ID             string          `json:"id"`
	ProductID      *string         `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ProductDeleted bool            `json:"product_deleted"`
	DiscountID     *string         `json:"discount_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	IsFinish       bool            `json:"is_finish"`
	DisplayPricing *DisplayPricing `json:"display_pricing"`
}

type ScheduleResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	PickupStart string `json:"pickup_start"`
	PickupEnd   string `json:"pickup_end"`
	Location    string `json:"location"`
	District    string `json:"district"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customer_id"`
	CustomerName    string              `json:"customer_name,omitempty"`
	Schedule        *ScheduleResponse   `json:"schedule"`
	DeliveryMethod  string              `json:"delivery_method"`
	DeliveryAddress *string             `json:"delivery_address"`
	Status          string              `json:"status"`
	PaymentMethod   *string             `json:"payment_method"`
	PaymentStatus   string              `json:"payment_status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Lines           []OrderLineResponse `json:"lines"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

type OrderListResponse struct {
	Data       []OrderResponse `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
