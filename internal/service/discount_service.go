package service

import (
	"context"
	"fmt"
	"sort"

	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DiscountService maintains the tier set of a product. A tier that an order
// line points to is frozen: its price is never rewritten and it is never
// deleted while the reference exists.
type DiscountService interface {
	List(ctx context.Context, productID uuid.UUID) ([]dto.DiscountResponse, error)
	Replace(ctx context.Context, productID uuid.UUID, req dto.ReplaceDiscountsRequest) ([]dto.DiscountResponse, error)
	DeleteAll(ctx context.Context, productID uuid.UUID) (*dto.DeleteDiscountsResponse, error)
}

type discountService struct {
	products  repository.ProductRepository
	discounts repository.DiscountRepository
	cache     repository.CatalogCache
}

func NewDiscountService(
	products repository.ProductRepository,
	discounts repository.DiscountRepository,
	cache repository.CatalogCache,
) DiscountService {
	return &discountService{products: products, discounts: discounts, cache: cache}
}

func (s *discountService) List(ctx context.Context, productID uuid.UUID) ([]dto.DiscountResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, translate(err, "Product not found")
	}
	tiers, err := s.discounts.ListByProduct(ctx, productID)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	return tiersToResponse(tiers, nil), nil
}

// Replace reconciles the stored tiers with the desired set:
//   - referenced quantities keep their stored price,
//   - other quantities are updated in place or created,
//   - stored tiers absent from the desired set are deleted unless referenced.
//
// The product row is locked first so order transactions reading the tiers
// FOR SHARE either finish before the edit or see its result.
func (s *discountService) Replace(ctx context.Context, productID uuid.UUID, req dto.ReplaceDiscountsRequest) ([]dto.DiscountResponse, error) {
	seen := make(map[int]bool, len(req.Discounts))
	for _, d := range req.Discounts {
		if d.Quantity <= 0 || !d.Price.IsPositive() {
			return nil, ErrValidation("discount quantity and price must be greater than zero")
		}
		if seen[d.Quantity] {
			return nil, ErrDuplicate(fmt.Sprintf("Duplicate discount quantity %d", d.Quantity))
		}
		seen[d.Quantity] = true
	}

	var result []model.DiscountTier
	var referenced map[int]bool
	err := runTx(ctx, s.discounts.DB(), func(tx *gorm.DB) error {
		if _, err := s.products.FindByIDForUpdateTx(tx, productID); err != nil {
			return translate(err, "Product not found")
		}

		existing, err := s.discounts.ListByProductTx(tx, productID)
		if err != nil {
			return ErrPersistence(err)
		}
		referenced, err = s.discounts.FindReferencedQuantitiesTx(tx, productID)
		if err != nil {
			return ErrPersistence(err)
		}

		byQuantity := make(map[int]model.DiscountTier, len(existing))
		for _, t := range existing {
			byQuantity[t.Quantity] = t
		}

		for _, d := range req.Discounts {
			if referenced[d.Quantity] {
				continue
			}
			if cur, ok := byQuantity[d.Quantity]; ok {
				if !cur.Price.Equal(d.Price) {
					if err := s.discounts.UpdatePriceTx(tx, cur.ID, d.Price); err != nil {
						return ErrPersistence(err)
					}
				}
				continue
			}
			tier := &model.DiscountTier{ID: uuid.New(), ProductID: productID, Quantity: d.Quantity, Price: d.Price}
			if err := s.discounts.CreateTx(tx, tier); err != nil {
				return translate(err, "")
			}
		}

		var stale []uuid.UUID
		for _, t := range existing {
			if !seen[t.Quantity] && !referenced[t.Quantity] {
				stale = append(stale, t.ID)
			}
		}
		if err := s.discounts.DeleteTx(tx, stale); err != nil {
			return ErrPersistence(err)
		}

		result, err = s.discounts.ListByProductTx(tx, productID)
		if err != nil {
			return ErrPersistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.cache.Invalidate(ctx, productID)
	log.Info().
		Str("product_id", productID.String()).
		Int("tiers", len(result)).
		Int("referenced", len(referenced)).
		Msg("discount tiers replaced")

	return tiersToResponse(result, referenced), nil
}

// DeleteAll removes every unreferenced tier and reports the rest as skipped.
// Having only referenced tiers is not an error.
func (s *discountService) DeleteAll(ctx context.Context, productID uuid.UUID) (*dto.DeleteDiscountsResponse, error) {
	var deleted, skipped int
	err := runTx(ctx, s.discounts.DB(), func(tx *gorm.DB) error {
		if _, err := s.products.FindByIDForUpdateTx(tx, productID); err != nil {
			return translate(err, "Product not found")
		}
		existing, err := s.discounts.ListByProductTx(tx, productID)
		if err != nil {
			return ErrPersistence(err)
		}
		referenced, err := s.discounts.FindReferencedQuantitiesTx(tx, productID)
		if err != nil {
			return ErrPersistence(err)
		}

		var ids []uuid.UUID
		for _, t := range existing {
			if referenced[t.Quantity] {
				skipped++
				continue
			}
			ids = append(ids, t.ID)
		}
		deleted = len(ids)
		if err := s.discounts.DeleteTx(tx, ids); err != nil {
			return ErrPersistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.cache.Invalidate(ctx, productID)

	msg := "All discounts deleted successfully"
	if skipped > 0 {
		msg = fmt.Sprintf("Deleted %d discount(s); skipped %d referenced by existing orders", deleted, skipped)
	}
	return &dto.DeleteDiscountsResponse{Message: msg, Deleted: deleted, Skipped: skipped}, nil
}

func tiersToResponse(tiers []model.DiscountTier, referenced map[int]bool) []dto.DiscountResponse {
	sorted := make([]model.DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Quantity < sorted[j].Quantity })

	out := make([]dto.DiscountResponse, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, dto.DiscountResponse{
			DiscountID: t.ID.String(),
			Quantity:   t.Quantity,
			Price:      t.Price,
			Referenced: referenced[t.Quantity],
		})
	}
	return out
}
