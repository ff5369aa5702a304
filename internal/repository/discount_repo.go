package repository

import (
	"context"

	"pickupshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscountRepository manages the discount tiers of a product.
type DiscountRepository interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.DiscountTier, error)

	// ListByProductTx reads the tiers FOR SHARE so a concurrent tier edit
	// cannot change them while an order prices against them.
	ListByProductTx(tx *gorm.DB, productID uuid.UUID) ([]model.DiscountTier, error)

	// FindReferencedQuantitiesTx returns the tier quantities of productID that
	// at least one order line points to.
	FindReferencedQuantitiesTx(tx *gorm.DB, productID uuid.UUID) (map[int]bool, error)

	CreateTx(tx *gorm.DB, d *model.DiscountTier) error
	UpdatePriceTx(tx *gorm.DB, id uuid.UUID, price decimal.Decimal) error
	DeleteTx(tx *gorm.DB, ids []uuid.UUID) error
	DeleteByProductTx(tx *gorm.DB, productID uuid.UUID) error
	DB() *gorm.DB
}

type discountRepo struct{ db *gorm.DB }

func NewDiscountRepository(db *gorm.DB) DiscountRepository { return &discountRepo{db: db} }

func (r *discountRepo) DB() *gorm.DB { return r.db }

func (r *discountRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.DiscountTier, error) {
	var tiers []model.DiscountTier
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("quantity ASC").Find(&tiers).Error
	return tiers, err
}

func (r *discountRepo) ListByProductTx(tx *gorm.DB, productID uuid.UUID) ([]model.DiscountTier, error) {
	var tiers []model.DiscountTier
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("product_id = ?", productID).Order("quantity ASC").Find(&tiers).Error
	return tiers, err
}

func (r *discountRepo) FindReferencedQuantitiesTx(tx *gorm.DB, productID uuid.UUID) (map[int]bool, error) {
	var quantities []int
	err := tx.Model(&model.DiscountTier{}).
		Distinct("discount_tiers.quantity").
		Joins("JOIN order_lines ON order_lines.discount_id = discount_tiers.id").
		Where("discount_tiers.product_id = ?", productID).
		Pluck("discount_tiers.quantity", &quantities).Error
	if err != nil {
		return nil, err
	}
	referenced := make(map[int]bool, len(quantities))
	for _, q := range quantities {
		referenced[q] = true
	}
	return referenced, nil
}

func (r *discountRepo) CreateTx(tx *gorm.DB, d *model.DiscountTier) error {
	return tx.Create(d).Error
}

func (r *discountRepo) UpdatePriceTx(tx *gorm.DB, id uuid.UUID, price decimal.Decimal) error {
	return tx.Model(&model.DiscountTier{}).Where("id = ?", id).Update("price", price).Error
}

func (r *discountRepo) DeleteTx(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id IN ?", ids).Delete(&model.DiscountTier{}).Error
}

func (r *discountRepo) DeleteByProductTx(tx *gorm.DB, productID uuid.UUID) error {
	return tx.Where("product_id = ?", productID).Delete(&model.DiscountTier{}).Error
}
