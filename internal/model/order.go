package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending          = "pending"
	OrderStatusPaid             = "paid"
	OrderStatusPreparing        = "preparing"
	OrderStatusReadyForPickup   = "ready_for_pickup"
	OrderStatusPartialCompleted = "partial_completed"
	OrderStatusCompleted        = "completed"
	OrderStatusCancelled        = "cancelled"
)

// Payment statuses. Payment is a label only; no gateway is involved.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Delivery methods.
const (
	DeliveryPickup       = "pickup"
	DeliveryHomeDelivery = "home_delivery"
	DeliveryCourier      = "courier"
)

var (
	OrderStatuses = []string{
		OrderStatusPending, OrderStatusPaid, OrderStatusPreparing, OrderStatusReadyForPickup,
		OrderStatusPartialCompleted, OrderStatusCompleted, OrderStatusCancelled,
	}
	PaymentStatuses = []string{PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded}
	DeliveryMethods = []string{DeliveryPickup, DeliveryHomeDelivery, DeliveryCourier}
)

// IsTerminalStatus reports whether no transition leaves the status.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// Order is a customer order. Lines are owned by the order and are deleted
// explicitly with it.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerID      string          `gorm:"not null;index"`
	ScheduleID      *uuid.UUID      `gorm:"type:uuid;index"`
	DeliveryMethod  string          `gorm:"not null;default:'pickup'"`
	DeliveryAddress *string         `gorm:"type:text"`
	OrderStatus     string          `gorm:"not null;default:'pending';index"`
	PaymentMethod   *string         `gorm:"size:40"`
	PaymentStatus   string          `gorm:"not null;default:'pending'"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Customer *Customer   `gorm:"foreignKey:CustomerID"`
	Schedule *Schedule   `gorm:"foreignKey:ScheduleID"`
	Lines    []OrderLine `gorm:"foreignKey:OrderID"`
}

// OrderLine is one product line of an order. ProductID and DiscountID become
// NULL when the product is deleted; ProductName keeps the history readable.
// SetSize is the stock units one ordered unit took when the line was priced,
// so later bundle changes on the product do not alter what the line holds.
type OrderLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      *uuid.UUID      `gorm:"type:uuid;index"`
	ProductName    string          `gorm:"not null"`
	ProductDeleted bool            `gorm:"not null;default:false"`
	DiscountID     *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity       int             `gorm:"not null"`
	SetSize        int             `gorm:"not null;default:1"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsFinish       bool            `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Product  *Product      `gorm:"foreignKey:ProductID"`
	Discount *DiscountTier `gorm:"foreignKey:DiscountID"`
}

// RecalculateTotal sets TotalAmount to the sum of the line subtotals.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal)
	}
	o.TotalAmount = total
}
