package repository

import (
	"context"

	"pickupshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderListFilter is the parsed form of dto.OrderFilter.
type OrderListFilter struct {
	CustomerID string
	Status     string
	From       *string // YYYY-MM-DD, inclusive
	To         *string // YYYY-MM-DD, inclusive
	Page       int
	Limit      int
}

// OrderRepository persists orders and their lines. Lines are never removed by
// a database cascade: every delete of a line is an explicit call.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error)

	// CreateTx inserts the order row and then each of its lines.
	CreateTx(tx *gorm.DB, o *model.Order) error
	// FindByIDForUpdateTx locks the order row and loads its lines.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	UpdateFieldsTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	CreateLineTx(tx *gorm.DB, l *model.OrderLine) error
	UpdateLineTx(tx *gorm.DB, l *model.OrderLine) error
	DeleteLineTx(tx *gorm.DB, lineID uuid.UUID) error
	DeleteLinesByOrderTx(tx *gorm.DB, orderID uuid.UUID) error

	// NeutralizeProductLinesTx detaches every line from a product that is
	// about to be deleted and returns how many lines were touched.
	NeutralizeProductLinesTx(tx *gorm.DB, productID uuid.UUID) (int64, error)

	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func linesOrdered(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Schedule.Location").
		Preload("Lines", linesOrdered).
		Preload("Lines.Product.Discounts").
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.CustomerID != "" {
		q = q.Where("orders.customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("orders.order_status = ?", filter.Status)
	}
	if filter.From != nil || filter.To != nil {
		q = q.Joins("JOIN schedules ON schedules.id = orders.schedule_id")
		if filter.From != nil {
			q = q.Where("schedules.date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("schedules.date <= ?", *filter.To)
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Schedule.Location").
		Preload("Lines", linesOrdered).
		Preload("Lines.Product.Discounts").
		Order("orders.created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.Order) error {
	if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
		return err
	}
	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
		if err := r.CreateLineTx(tx, &o.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := linesOrdered(tx.Where("order_id = ?", id)).Find(&o.Lines).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) UpdateFieldsTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *orderRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.Order{}).Error
}

func (r *orderRepo) CreateLineTx(tx *gorm.DB, l *model.OrderLine) error {
	return tx.Omit(clause.Associations).Create(l).Error
}

func (r *orderRepo) UpdateLineTx(tx *gorm.DB, l *model.OrderLine) error {
	return tx.Model(&model.OrderLine{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
		"quantity":    l.Quantity,
		"set_size":    l.SetSize,
		"unit_price":  l.UnitPrice,
		"subtotal":    l.Subtotal,
		"discount_id": l.DiscountID,
		"is_finish":   l.IsFinish,
	}).Error
}

func (r *orderRepo) DeleteLineTx(tx *gorm.DB, lineID uuid.UUID) error {
	return tx.Where("id = ?", lineID).Delete(&model.OrderLine{}).Error
}

func (r *orderRepo) DeleteLinesByOrderTx(tx *gorm.DB, orderID uuid.UUID) error {
	return tx.Where("order_id = ?", orderID).Delete(&model.OrderLine{}).Error
}

func (r *orderRepo) NeutralizeProductLinesTx(tx *gorm.DB, productID uuid.UUID) (int64, error) {
	res := tx.Model(&model.OrderLine{}).Where("product_id = ?", productID).Updates(map[string]interface{}{
		"product_deleted": true,
		"product_id":      nil,
		"discount_id":     nil,
	})
	return res.RowsAffected, res.Error
}
