package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/pricing"
	"pickupshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductService defines the business logic contract for the product catalog.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Quote(ctx context.Context, id uuid.UUID, quantity int) (*dto.QuoteResponse, error)
}

type productService struct {
	products  repository.ProductRepository
	discounts repository.DiscountRepository
	orders    repository.OrderRepository
	cache     repository.CatalogCache
}

func NewProductService(
	products repository.ProductRepository,
	discounts repository.DiscountRepository,
	orders repository.OrderRepository,
	cache repository.CatalogCache,
) ProductService {
	return &productService{products: products, discounts: discounts, orders: orders, cache: cache}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrValidation("name is required")
	}
	if err := validateBundle(req.OneSetQuantity, req.OneSetPrice != nil); err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 || req.StockQuantity > MaxStockUnits {
		return nil, ErrValidation(fmt.Sprintf("stock_quantity must be between 0 and %d", MaxStockUnits))
	}

	p := &model.Product{
		ID:             uuid.New(),
		Name:           name,
		Description:    req.Description,
		Price:          req.Price,
		OneSetQuantity: req.OneSetQuantity,
		OneSetPrice:    req.OneSetPrice,
		StockQuantity:  req.StockQuantity,
		Unit:           req.Unit,
	}
	if err := s.products.Create(ctx, p); err != nil {
		if e := translate(err, ""); IsKind(e, KindDuplicate) {
			return nil, ErrDuplicate("A product with this name already exists")
		}
		return nil, ErrPersistence(err)
	}

	log.Info().Str("product_id", p.ID.String()).Str("name", p.Name).Msg("product created")
	return productToResponse(p), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product not found")
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pageCount(total, filter.Limit),
	}, nil
}

// productUpdateFields merges the request into column updates. Only the
// listed fields can change; anything else in the payload is ignored.
func productUpdateFields(req dto.UpdateProductRequest) map[string]interface{} {
	fields := make(map[string]interface{})
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.OneSetQuantity != nil {
		fields["one_set_quantity"] = *req.OneSetQuantity
	}
	if req.OneSetPrice != nil {
		fields["one_set_price"] = *req.OneSetPrice
	}
	if req.Unit != nil {
		fields["unit"] = *req.Unit
	}
	return fields
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, ErrValidation("name must not be empty")
	}
	fields := productUpdateFields(req)

	err := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		p, err := s.products.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return translate(err, "Product not found")
		}
		setQty := p.OneSetQuantity
		if req.OneSetQuantity != nil {
			setQty = req.OneSetQuantity
		}
		if err := validateBundle(setQty, req.OneSetPrice != nil || p.OneSetPrice != nil); err != nil {
			return err
		}
		if err := s.products.UpdateFieldsTx(tx, id, fields); err != nil {
			if e := translate(err, ""); IsKind(e, KindDuplicate) {
				return ErrDuplicate("A product with this name already exists")
			}
			return ErrPersistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.cache.Invalidate(ctx, id)
	return s.Get(ctx, id)
}

// Delete removes the product with its tiers. Order lines that point at it
// keep their name snapshot and are flagged product_deleted.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	var neutralized int64
	err := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if _, err := s.products.FindByIDForUpdateTx(tx, id); err != nil {
			return translate(err, "Product not found")
		}
		n, err := s.orders.NeutralizeProductLinesTx(tx, id)
		if err != nil {
			return ErrPersistence(err)
		}
		neutralized = n
		if err := s.discounts.DeleteByProductTx(tx, id); err != nil {
			return ErrPersistence(err)
		}
		if err := s.products.DeleteTx(tx, id); err != nil {
			return ErrPersistence(err)
		}
		return nil
	})
	if err != nil {
		return translate(err, "Product not found")
	}

	s.cache.Invalidate(ctx, id)
	log.Info().
		Str("product_id", id.String()).
		Int64("lines_neutralized", neutralized).
		Msg("product deleted")
	return nil
}

// Quote prices quantity units with the product's current tiers. Reads go
// through the catalog cache.
func (s *productService) Quote(ctx context.Context, id uuid.UUID, quantity int) (*dto.QuoteResponse, error) {
	if err := validQuantity(quantity); err != nil {
		return nil, err
	}

	cached, ok := s.cache.Get(ctx, id)
	if !ok {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, translate(err, "Product not found")
		}
		cached = toCachedProduct(p)
		s.cache.Set(ctx, cached)
	}

	units, err := ActualUnits(&model.Product{OneSetQuantity: cached.OneSetQuantity}, quantity)
	if err != nil {
		return nil, err
	}
	item := cachedPricingItem(cached)
	res := pricing.PriceLine(item, quantity, cachedPricingTiers(cached))

	resp := &dto.QuoteResponse{
		ProductID:     id.String(),
		Quantity:      quantity,
		ActualUnits:   units,
		UnitPrice:     pricing.Round2(pricing.BasePrice(item)),
		Price:         pricing.Round2(res.Price),
		OriginalPrice: pricing.Round2(res.OriginalPrice),
		SavedAmount:   pricing.Round2(res.SavedAmount),
	}
	if res.Applied != nil {
		discountID := res.Applied.ID.String()
		resp.DiscountID = &discountID
	}
	return resp, nil
}

func validateBundle(setQty *int, hasSetPrice bool) error {
	if setQty != nil && (*setQty < 0 || *setQty > MaxLineQuantity) {
		return ErrValidation(fmt.Sprintf("one_set_quantity must be between 0 and %d", MaxLineQuantity))
	}
	if setQty != nil && *setQty > 0 && !hasSetPrice {
		return ErrValidation("one_set_price is required when one_set_quantity is set")
	}
	return nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		OneSetQuantity: p.OneSetQuantity,
		OneSetPrice:    p.OneSetPrice,
		StockQuantity:  p.StockQuantity,
		Unit:           p.Unit,
		Discounts:      tiersToResponse(p.Discounts, nil),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}
