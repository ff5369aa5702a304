package service

import (
	"context"
	"fmt"
	"time"

	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MovementRef describes why stock moved. It is copied onto the ledger row.
type MovementRef struct {
	Type    string
	Reason  string
	OrderID *uuid.UUID
	LineID  *uuid.UUID
}

// InventoryService owns every change to Product.stock_quantity.
//
// The *Tx methods expect p to be the row locked by the caller in the same
// transaction; they keep p.StockQuantity in step with the database so later
// calls on the same product see the current value. Stock held by an existing
// line is line.Quantity * line.SetSize, whatever the product's set size is now.
type InventoryService interface {
	ConsumeTx(tx *gorm.DB, p *model.Product, quantity int, ref MovementRef) error
	RestoreTx(tx *gorm.DB, p *model.Product, line *model.OrderLine, ref MovementRef) error
	ApplyQuantityChangeTx(tx *gorm.DB, p *model.Product, line *model.OrderLine, newQuantity int, ref MovementRef) error

	Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockMovementResponse, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewInventoryService(products repository.ProductRepository, movements repository.StockMovementRepository) InventoryService {
	return &inventoryService{products: products, movements: movements}
}

const (
	// MaxLineQuantity bounds the quantity of one order line.
	MaxLineQuantity = 10_000
	// MaxStockUnits bounds any single stock quantity or movement.
	MaxStockUnits = 1_000_000_000
)

// SetSize is the number of stock units one order unit of p consumes.
func SetSize(p *model.Product) int {
	if p.IsBundle() {
		return *p.OneSetQuantity
	}
	return 1
}

// ActualUnits converts an order quantity into stock units: bundles consume
// one_set_quantity units each.
func ActualUnits(p *model.Product, quantity int) (int, error) {
	return stockUnits(SetSize(p), quantity)
}

func validQuantity(quantity int) error {
	if quantity <= 0 || quantity > MaxLineQuantity {
		return ErrValidation(fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity))
	}
	return nil
}

func stockUnits(setSize, quantity int) (int, error) {
	if err := validQuantity(quantity); err != nil {
		return 0, err
	}
	if setSize < 1 {
		setSize = 1
	}
	if setSize > MaxStockUnits/quantity {
		return 0, ErrValidation(fmt.Sprintf("quantity %d of sets of %d exceeds the stock limit", quantity, setSize))
	}
	return quantity * setSize, nil
}

func (s *inventoryService) ConsumeTx(tx *gorm.DB, p *model.Product, quantity int, ref MovementRef) error {
	units, err := ActualUnits(p, quantity)
	if err != nil {
		return err
	}
	_, err = s.takeTx(tx, p, units, ref)
	return err
}

// RestoreTx gives back what line took, at the set size it was sold with.
func (s *inventoryService) RestoreTx(tx *gorm.DB, p *model.Product, line *model.OrderLine, ref MovementRef) error {
	units, err := stockUnits(line.SetSize, line.Quantity)
	if err != nil {
		return err
	}
	_, err = s.putTx(tx, p, units, ref)
	return err
}

// ApplyQuantityChangeTx moves line to newQuantity sets of p's current size.
// The caller stores SetSize(p) on the line afterwards.
func (s *inventoryService) ApplyQuantityChangeTx(tx *gorm.DB, p *model.Product, line *model.OrderLine, newQuantity int, ref MovementRef) error {
	held, err := stockUnits(line.SetSize, line.Quantity)
	if err != nil {
		return err
	}
	wanted, err := ActualUnits(p, newQuantity)
	if err != nil {
		return err
	}
	switch diff := wanted - held; {
	case diff > 0:
		_, err = s.takeTx(tx, p, diff, ref)
	case diff < 0:
		_, err = s.putTx(tx, p, -diff, ref)
	}
	return err
}

// takeTx decrements with the stock >= units guard in the UPDATE itself, so two
// transactions can never both spend the same units.
func (s *inventoryService) takeTx(tx *gorm.DB, p *model.Product, units int, ref MovementRef) (*model.StockMovement, error) {
	if units <= 0 {
		return nil, nil
	}
	if p.StockQuantity < units {
		return nil, ErrInsufficientStock(p.Name, p.StockQuantity, units)
	}
	ok, err := s.products.DecrementStockTx(tx, p.ID, units)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	if !ok {
		return nil, ErrInsufficientStock(p.Name, p.StockQuantity, units)
	}
	return s.recordTx(tx, p, -units, ref)
}

func (s *inventoryService) putTx(tx *gorm.DB, p *model.Product, units int, ref MovementRef) (*model.StockMovement, error) {
	if units <= 0 {
		return nil, nil
	}
	if err := s.products.IncrementStockTx(tx, p.ID, units); err != nil {
		return nil, ErrPersistence(err)
	}
	return s.recordTx(tx, p, units, ref)
}

func (s *inventoryService) recordTx(tx *gorm.DB, p *model.Product, delta int, ref MovementRef) (*model.StockMovement, error) {
	before := p.StockQuantity
	p.StockQuantity += delta
	mov := &model.StockMovement{
		ID:          uuid.New(),
		ProductID:   p.ID,
		Type:        ref.Type,
		Delta:       delta,
		StockBefore: before,
		StockAfter:  p.StockQuantity,
		Reason:      ref.Reason,
		OrderID:     ref.OrderID,
		OrderLineID: ref.LineID,
	}
	if err := s.movements.CreateTx(tx, mov); err != nil {
		return nil, ErrPersistence(err)
	}
	return mov, nil
}

// Adjust applies a manual stock correction. A negative delta larger than the
// current stock is rejected rather than clamped.
func (s *inventoryService) Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockMovementResponse, error) {
	if req.Delta == 0 {
		return nil, ErrValidation("delta must not be zero")
	}
	if req.Delta > MaxStockUnits || req.Delta < -MaxStockUnits {
		return nil, ErrValidation(fmt.Sprintf("delta must be within ±%d", MaxStockUnits))
	}

	var mov *model.StockMovement
	err := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		p, err := s.products.FindByIDForUpdateTx(tx, productID)
		if err != nil {
			return translate(err, "Product not found")
		}
		ref := MovementRef{Type: model.MovementManual, Reason: req.Reason}
		if req.Delta < 0 {
			mov, err = s.takeTx(tx, p, -req.Delta, ref)
		} else {
			mov, err = s.putTx(tx, p, req.Delta, ref)
		}
		return err
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	log.Info().
		Str("product_id", productID.String()).
		Int("delta", req.Delta).
		Int("stock_after", mov.StockAfter).
		Msg("stock adjusted manually")

	resp := movementToResponse(mov)
	return &resp, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.StockMovementFilter{Type: filter.Type, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductID != "" {
		id, err := uuid.Parse(filter.ProductID)
		if err != nil {
			return nil, ErrValidation("invalid product_id")
		}
		f.ProductID = &id
	}
	if filter.OrderID != "" {
		id, err := uuid.Parse(filter.OrderID)
		if err != nil {
			return nil, ErrValidation("invalid order_id")
		}
		f.OrderID = &id
	}

	movements, total, err := s.movements.List(ctx, f)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	data := make([]dto.StockMovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, movementToResponse(&movements[i]))
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func movementToResponse(m *model.StockMovement) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		Type:        m.Type,
		Delta:       m.Delta,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		OrderID:     uuidPtrString(m.OrderID),
		OrderLineID: uuidPtrString(m.OrderLineID),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
