package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/pricing"
	"pickupshop/internal/repository"
	"pickupshop/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Principal is the caller as resolved from the bearer token.
type Principal struct {
	CustomerID string
	Staff      bool
}

func (p Principal) canAccess(o *model.Order) bool {
	return p.Staff || (p.CustomerID != "" && p.CustomerID == o.CustomerID)
}

// OrderNotifier receives confirmed orders after commit.
type OrderNotifier interface {
	EnqueueOrderConfirmation(ctx context.Context, payload worker.OrderEmailPayload) error
}

type OrderService interface {
	Create(ctx context.Context, who Principal, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	Get(ctx context.Context, who Principal, id uuid.UUID) (*dto.OrderResponse, error)
	List(ctx context.Context, who Principal, filter dto.OrderFilter) (*dto.OrderListResponse, error)

	AddLine(ctx context.Context, who Principal, orderID uuid.UUID, req dto.OrderLineRequest) (*dto.OrderResponse, error)
	UpdateLine(ctx context.Context, who Principal, orderID, lineID uuid.UUID, req dto.UpdateOrderLineRequest) (*dto.OrderResponse, error)
	DeleteLine(ctx context.Context, who Principal, orderID, lineID uuid.UUID) (*dto.OrderResponse, error)
	SetLineFinished(ctx context.Context, orderID, lineID uuid.UUID, finished bool) (*dto.OrderResponse, error)

	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*dto.OrderResponse, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, status string) (*dto.OrderResponse, error)
	UpdateSchedule(ctx context.Context, who Principal, orderID uuid.UUID, req dto.UpdateScheduleRequest) (*dto.OrderResponse, error)
	Delete(ctx context.Context, who Principal, orderID uuid.UUID) error
}

type orderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	discounts repository.DiscountRepository
	schedules repository.ScheduleRepository
	customers repository.CustomerRepository
	inventory InventoryService
	notifier  OrderNotifier
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	discounts repository.DiscountRepository,
	schedules repository.ScheduleRepository,
	customers repository.CustomerRepository,
	inventory InventoryService,
	notifier OrderNotifier,
) OrderService {
	return &orderService{
		orders:    orders,
		products:  products,
		discounts: discounts,
		schedules: schedules,
		customers: customers,
		inventory: inventory,
		notifier:  notifier,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────
// One transaction:
//   1. lock every product of the order (sorted by id)
//   2. check the summed demand per product against stock
//   3. price each line with the tiers read FOR SHARE
//   4. insert order + lines, then decrement stock line by line
// Any failure rolls back the whole order.

type requestedLine struct {
	productID uuid.UUID
	quantity  int
	hint      dto.OrderLineRequest
}

func (s *orderService) Create(ctx context.Context, who Principal, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	customerID := who.CustomerID
	if who.Staff && req.CustomerID != "" {
		customerID = req.CustomerID
	}
	if customerID == "" {
		return nil, ErrValidation("customer_id is required")
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, translate(err, "Customer not found")
	}

	method := req.DeliveryMethod
	if method == "" {
		method = model.DeliveryPickup
	}
	if !contains(model.DeliveryMethods, method) {
		return nil, ErrValidation(fmt.Sprintf("Invalid delivery method %q", method))
	}
	scheduleID, err := s.resolveSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if method == model.DeliveryPickup && scheduleID == nil {
		return nil, ErrValidation("schedule_id is required for pickup orders")
	}

	lines := make([]requestedLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		pid, err := uuid.Parse(l.ProductID)
		if err != nil {
			return nil, ErrValidation("invalid product_id")
		}
		if err := validQuantity(l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, requestedLine{productID: pid, quantity: l.Quantity, hint: l})
	}

	order := &model.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ScheduleID:      scheduleID,
		DeliveryMethod:  method,
		DeliveryAddress: req.DeliveryAddress,
		OrderStatus:     model.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
	}

	err = runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.productID)
		}
		products, err := s.lockProductsTx(tx, ids)
		if err != nil {
			return err
		}

		demand := make(map[uuid.UUID]int, len(products))
		for _, l := range lines {
			units, err := ActualUnits(products[l.productID], l.quantity)
			if err != nil {
				return err
			}
			if demand[l.productID] > MaxStockUnits-units {
				return ErrValidation(fmt.Sprintf("too many units of %s in one order", products[l.productID].Name))
			}
			demand[l.productID] += units
		}
		for _, id := range sortedIDs(demand) {
			p := products[id]
			if p.StockQuantity < demand[id] {
				return ErrInsufficientStock(p.Name, p.StockQuantity, demand[id])
			}
		}

		tiers := make(map[uuid.UUID][]model.DiscountTier, len(products))
		for _, l := range lines {
			p := products[l.productID]
			t, err := s.tiersTx(tx, tiers, p)
			if err != nil {
				return err
			}
			line := priceOrderLine(p, t, l.quantity)
			line.ID = uuid.New()
			line.OrderID = order.ID
			logPriceHint(l.hint, &line)
			order.Lines = append(order.Lines, line)
		}
		order.RecalculateTotal()

		if err := s.orders.CreateTx(tx, order); err != nil {
			return ErrPersistence(err)
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			ref := MovementRef{Type: model.MovementLineCreated, Reason: "order created", OrderID: &order.ID, LineID: &line.ID}
			if err := s.inventory.ConsumeTx(tx, products[*line.ProductID], line.Quantity, ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("customer_id", customerID).
		Int("lines", len(order.Lines)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created")

	resp, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.notifyCreated(ctx, customer, resp)
	return resp, nil
}

func (s *orderService) resolveSchedule(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, ErrValidation("invalid schedule_id")
	}
	if _, err := s.schedules.FindByID(ctx, id); err != nil {
		return nil, translate(err, "Schedule not found")
	}
	return &id, nil
}

// notifyCreated is best effort: the order is committed whatever happens here.
func (s *orderService) notifyCreated(ctx context.Context, customer *model.Customer, resp *dto.OrderResponse) {
	if s.notifier == nil || customer.Email == nil || *customer.Email == "" {
		return
	}
	payload := worker.OrderEmailPayload{ToEmail: *customer.Email, CustomerName: customer.Name, Order: *resp}
	if err := s.notifier.EnqueueOrderConfirmation(ctx, payload); err != nil {
		log.Warn().Err(err).Str("order_id", resp.ID).Msg("failed to enqueue order confirmation")
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *orderService) Get(ctx context.Context, who Principal, id uuid.UUID) (*dto.OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	if !who.canAccess(o) {
		return nil, ErrUnauthorized("You do not have access to this order")
	}
	return orderToResponse(o), nil
}

func (s *orderService) List(ctx context.Context, who Principal, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	f := repository.OrderListFilter{Status: filter.Status, Page: filter.Page, Limit: filter.Limit}
	if who.Staff {
		f.CustomerID = filter.CustomerID
	} else {
		if who.CustomerID == "" {
			return nil, ErrUnauthorized("customer identity required")
		}
		f.CustomerID = who.CustomerID
	}
	if filter.Status != "" && !contains(model.OrderStatuses, filter.Status) {
		return nil, ErrValidation(fmt.Sprintf("Invalid order status %q", filter.Status))
	}
	for _, d := range []struct {
		raw string
		dst **string
	}{{filter.From, &f.From}, {filter.To, &f.To}} {
		if d.raw == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.raw); err != nil {
			return nil, ErrValidation("dates must use the YYYY-MM-DD format")
		}
		v := d.raw
		*d.dst = &v
	}

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	data := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, *orderToResponse(&orders[i]))
	}
	return &dto.OrderListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pageCount(total, filter.Limit),
	}, nil
}

func (s *orderService) load(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return orderToResponse(o), nil
}

// ── Line mutations ────────────────────────────────────────────────────────────

func (s *orderService) AddLine(ctx context.Context, who Principal, orderID uuid.UUID, req dto.OrderLineRequest) (*dto.OrderResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrValidation("invalid product_id")
	}
	if err := validQuantity(req.Quantity); err != nil {
		return nil, err
	}

	err = runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.lockMutableOrderTx(tx, who, orderID)
		if err != nil {
			return err
		}
		p, err := s.products.FindByIDForUpdateTx(tx, productID)
		if err != nil {
			return translate(err, "Product not found")
		}
		tiers, err := s.discounts.ListByProductTx(tx, p.ID)
		if err != nil {
			return ErrPersistence(err)
		}

		line := priceOrderLine(p, tiers, req.Quantity)
		line.ID = uuid.New()
		line.OrderID = o.ID
		logPriceHint(req, &line)

		ref := MovementRef{Type: model.MovementLineCreated, Reason: "line added", OrderID: &o.ID, LineID: &line.ID}
		if err := s.inventory.ConsumeTx(tx, p, line.Quantity, ref); err != nil {
			return err
		}
		if err := s.orders.CreateLineTx(tx, &line); err != nil {
			return ErrPersistence(err)
		}
		o.Lines = append(o.Lines, line)
		return s.saveTotalTx(tx, o)
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

func (s *orderService) UpdateLine(ctx context.Context, who Principal, orderID, lineID uuid.UUID, req dto.UpdateOrderLineRequest) (*dto.OrderResponse, error) {
	if err := validQuantity(req.Quantity); err != nil {
		return nil, err
	}

	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.lockMutableOrderTx(tx, who, orderID)
		if err != nil {
			return err
		}
		line := findLine(o, lineID)
		if line == nil {
			return ErrNotFound("Order line not found")
		}
		if line.ProductID == nil {
			return ErrNotFound("Product not found")
		}
		p, err := s.products.FindByIDForUpdateTx(tx, *line.ProductID)
		if err != nil {
			return translate(err, "Product not found")
		}

		ref := MovementRef{Type: model.MovementLineUpdated, Reason: "line quantity changed", OrderID: &o.ID, LineID: &line.ID}
		if err := s.inventory.ApplyQuantityChangeTx(tx, p, line, req.Quantity, ref); err != nil {
			return err
		}

		tiers, err := s.discounts.ListByProductTx(tx, p.ID)
		if err != nil {
			return ErrPersistence(err)
		}
		priced := priceOrderLine(p, tiers, req.Quantity)
		line.Quantity = priced.Quantity
		line.SetSize = priced.SetSize
		line.UnitPrice = priced.UnitPrice
		line.Subtotal = priced.Subtotal
		line.DiscountID = priced.DiscountID
		if err := s.orders.UpdateLineTx(tx, line); err != nil {
			return ErrPersistence(err)
		}
		return s.saveTotalTx(tx, o)
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

func (s *orderService) DeleteLine(ctx context.Context, who Principal, orderID, lineID uuid.UUID) (*dto.OrderResponse, error) {
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.lockMutableOrderTx(tx, who, orderID)
		if err != nil {
			return err
		}
		line := findLine(o, lineID)
		if line == nil {
			return ErrNotFound("Order line not found")
		}
		if line.ProductID != nil {
			p, err := s.products.FindByIDForUpdateTx(tx, *line.ProductID)
			if err != nil {
				return translate(err, "Product not found")
			}
			ref := MovementRef{Type: model.MovementLineDeleted, Reason: "line deleted", OrderID: &o.ID, LineID: &line.ID}
			if err := s.inventory.RestoreTx(tx, p, line, ref); err != nil {
				return err
			}
		}
		if err := s.orders.DeleteLineTx(tx, lineID); err != nil {
			return ErrPersistence(err)
		}
		o.Lines = removeLine(o.Lines, lineID)
		return s.saveTotalTx(tx, o)
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

// SetLineFinished records pickup of one line. The order follows its lines:
// all finished → completed, some → partial_completed.
func (s *orderService) SetLineFinished(ctx context.Context, orderID, lineID uuid.UUID, finished bool) (*dto.OrderResponse, error) {
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.lockMutableOrderTx(tx, Principal{Staff: true}, orderID)
		if err != nil {
			return err
		}
		line := findLine(o, lineID)
		if line == nil {
			return ErrNotFound("Order line not found")
		}
		if line.IsFinish == finished {
			return nil
		}
		line.IsFinish = finished
		if err := s.orders.UpdateLineTx(tx, line); err != nil {
			return ErrPersistence(err)
		}

		done := 0
		for _, l := range o.Lines {
			if l.IsFinish {
				done++
			}
		}
		next := o.OrderStatus
		switch {
		case done == len(o.Lines):
			next = model.OrderStatusCompleted
		case done > 0:
			next = model.OrderStatusPartialCompleted
		case o.OrderStatus == model.OrderStatusPartialCompleted:
			next = model.OrderStatusReadyForPickup
		}
		if next == o.OrderStatus {
			return nil
		}
		return s.setFieldsTx(tx, o.ID, map[string]interface{}{"order_status": next})
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

// ── Order-level transitions ───────────────────────────────────────────────────

// UpdateStatus accepts any status of the enum from a non-terminal order.
// Cancelling puts back the stock of every line not yet picked up.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*dto.OrderResponse, error) {
	if !contains(model.OrderStatuses, status) {
		return nil, ErrInvalidState(fmt.Sprintf("Invalid order status %q", status))
	}

	var from string
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, orderID)
		if err != nil {
			return translate(err, "Order not found")
		}
		from = o.OrderStatus
		if o.OrderStatus == status {
			return nil
		}
		if model.IsTerminalStatus(o.OrderStatus) {
			return ErrInvalidState(fmt.Sprintf("Order is %s; its status can no longer change", o.OrderStatus))
		}
		if status == model.OrderStatusCancelled {
			if err := s.restoreLinesTx(tx, o, model.MovementOrderCancelled, "order cancelled", true); err != nil {
				return err
			}
		}
		return s.setFieldsTx(tx, o.ID, map[string]interface{}{"order_status": status})
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}

	if from != status {
		log.Info().Str("order_id", orderID.String()).Str("from", from).Str("to", status).Msg("order status changed")
	}
	return s.load(ctx, orderID)
}

// UpdatePayment moves freely within the payment enum; payment is a label.
func (s *orderService) UpdatePayment(ctx context.Context, orderID uuid.UUID, status string) (*dto.OrderResponse, error) {
	if !contains(model.PaymentStatuses, status) {
		return nil, ErrInvalidState(fmt.Sprintf("Invalid payment status %q", status))
	}
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, orderID)
		if err != nil {
			return translate(err, "Order not found")
		}
		if o.PaymentStatus == status {
			return nil
		}
		return s.setFieldsTx(tx, o.ID, map[string]interface{}{"payment_status": status})
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

func (s *orderService) UpdateSchedule(ctx context.Context, who Principal, orderID uuid.UUID, req dto.UpdateScheduleRequest) (*dto.OrderResponse, error) {
	scheduleID, err := s.resolveSchedule(ctx, &req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if scheduleID == nil {
		return nil, ErrValidation("schedule_id is required")
	}

	err = runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, orderID)
		if err != nil {
			return translate(err, "Order not found")
		}
		if !who.canAccess(o) {
			return ErrUnauthorized("You do not have access to this order")
		}
		if model.IsTerminalStatus(o.OrderStatus) {
			return ErrInvalidState(fmt.Sprintf("Cannot change the schedule of a %s order", o.OrderStatus))
		}
		return s.setFieldsTx(tx, o.ID, map[string]interface{}{"schedule_id": *scheduleID})
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	return s.load(ctx, orderID)
}

// Delete removes the order and its lines. Completed orders are kept; a
// pending order gives its stock back first.
func (s *orderService) Delete(ctx context.Context, who Principal, orderID uuid.UUID) error {
	var status string
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, orderID)
		if err != nil {
			return translate(err, "Order not found")
		}
		if !who.canAccess(o) {
			return ErrUnauthorized("You do not have access to this order")
		}
		status = o.OrderStatus
		if o.OrderStatus == model.OrderStatusCompleted {
			return ErrInvalidState("Completed orders cannot be deleted")
		}
		if o.OrderStatus == model.OrderStatusPending {
			if err := s.restoreLinesTx(tx, o, model.MovementOrderDeleted, "order deleted", false); err != nil {
				return err
			}
		}
		if err := s.orders.DeleteLinesByOrderTx(tx, o.ID); err != nil {
			return ErrPersistence(err)
		}
		if err := s.orders.DeleteTx(tx, o.ID); err != nil {
			return ErrPersistence(err)
		}
		return nil
	})
	if err != nil {
		return translate(err, "Order not found")
	}

	log.Info().Str("order_id", orderID.String()).Str("status", status).Msg("order deleted")
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// lockMutableOrderTx locks the order for a line mutation and rejects
// foreign or terminal orders.
func (s *orderService) lockMutableOrderTx(tx *gorm.DB, who Principal, id uuid.UUID) (*model.Order, error) {
	o, err := s.orders.FindByIDForUpdateTx(tx, id)
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	if !who.canAccess(o) {
		return nil, ErrUnauthorized("You do not have access to this order")
	}
	if model.IsTerminalStatus(o.OrderStatus) {
		return nil, ErrInvalidState(fmt.Sprintf("Order is %s and can no longer be modified", o.OrderStatus))
	}
	return o, nil
}

// lockProductsTx locks each distinct product once, in id order, so two
// orders over the same products cannot deadlock.
func (s *orderService) lockProductsTx(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	set := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		set[id]++
	}
	products := make(map[uuid.UUID]*model.Product, len(set))
	for _, id := range sortedIDs(set) {
		p, err := s.products.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return nil, translate(err, "Product not found")
		}
		products[id] = p
	}
	return products, nil
}

func (s *orderService) tiersTx(tx *gorm.DB, memo map[uuid.UUID][]model.DiscountTier, p *model.Product) ([]model.DiscountTier, error) {
	if t, ok := memo[p.ID]; ok {
		return t, nil
	}
	t, err := s.discounts.ListByProductTx(tx, p.ID)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	memo[p.ID] = t
	return t, nil
}

// restoreLinesTx gives back the stock of the order's lines whose product
// still exists, in line order.
func (s *orderService) restoreLinesTx(tx *gorm.DB, o *model.Order, movementType, reason string, skipFinished bool) error {
	var ids []uuid.UUID
	for _, l := range o.Lines {
		if l.ProductID != nil && !(skipFinished && l.IsFinish) {
			ids = append(ids, *l.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := s.lockProductsTx(tx, ids)
	if err != nil {
		return err
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		if l.ProductID == nil || (skipFinished && l.IsFinish) {
			continue
		}
		ref := MovementRef{Type: movementType, Reason: reason, OrderID: &o.ID, LineID: &l.ID}
		if err := s.inventory.RestoreTx(tx, products[*l.ProductID], l, ref); err != nil {
			return err
		}
	}
	log.Info().Str("order_id", o.ID.String()).Int("lines", len(ids)).Str("reason", reason).Msg("stock restored")
	return nil
}

func (s *orderService) saveTotalTx(tx *gorm.DB, o *model.Order) error {
	o.RecalculateTotal()
	return s.setFieldsTx(tx, o.ID, map[string]interface{}{"total_amount": o.TotalAmount})
}

func (s *orderService) setFieldsTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if err := s.orders.UpdateFieldsTx(tx, id, fields); err != nil {
		return ErrPersistence(err)
	}
	return nil
}

// priceOrderLine prices a line server-side. UnitPrice is the price of one
// order unit (the bundle price for set products).
func priceOrderLine(p *model.Product, tiers []model.DiscountTier, quantity int) model.OrderLine {
	item := pricingItem(p)
	res := pricing.PriceLine(item, quantity, pricingTiers(tiers))

	productID := p.ID
	line := model.OrderLine{
		ProductID:   &productID,
		ProductName: p.Name,
		Quantity:    quantity,
		SetSize:     SetSize(p),
		UnitPrice:   pricing.BasePrice(item),
		Subtotal:    res.Price,
	}
	if res.Applied != nil {
		discountID := res.Applied.ID
		line.DiscountID = &discountID
	}
	withTiers := *p
	withTiers.Discounts = tiers
	line.Product = &withTiers
	return line
}

// logPriceHint compares what the client showed with what the server charges.
// The client values are never used.
func logPriceHint(hint dto.OrderLineRequest, line *model.OrderLine) {
	mismatch := (hint.Subtotal != nil && !hint.Subtotal.Equal(line.Subtotal)) ||
		(hint.UnitPrice != nil && !hint.UnitPrice.Equal(line.UnitPrice))
	if hint.DiscountID != nil {
		if line.DiscountID == nil || line.DiscountID.String() != *hint.DiscountID {
			mismatch = true
		}
	}
	if !mismatch {
		return
	}
	ev := log.Warn().
		Str("product_id", hint.ProductID).
		Int("quantity", hint.Quantity).
		Str("server_subtotal", line.Subtotal.StringFixed(2))
	if hint.Subtotal != nil {
		ev = ev.Str("client_subtotal", hint.Subtotal.StringFixed(2))
	}
	ev.Msg("client price differs from server price; using server price")
}

func findLine(o *model.Order, lineID uuid.UUID) *model.OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

func removeLine(lines []model.OrderLine, lineID uuid.UUID) []model.OrderLine {
	out := lines[:0]
	for _, l := range lines {
		if l.ID != lineID {
			out = append(out, l)
		}
	}
	return out
}

func sortedIDs(m map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func orderToResponse(o *model.Order) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		ID:              o.ID.String(),
		CustomerID:      o.CustomerID,
		DeliveryMethod:  o.DeliveryMethod,
		DeliveryAddress: o.DeliveryAddress,
		Status:          o.OrderStatus,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		TotalAmount:     o.TotalAmount,
		Lines:           make([]dto.OrderLineResponse, 0, len(o.Lines)),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
	if o.Customer != nil {
		resp.CustomerName = o.Customer.Name
	}
	if o.Schedule != nil {
		sr := &dto.ScheduleResponse{
			ID:          o.Schedule.ID.String(),
			Date:        o.Schedule.Date.Format("2006-01-02"),
			PickupStart: o.Schedule.PickupStart,
			PickupEnd:   o.Schedule.PickupEnd,
		}
		if o.Schedule.Location != nil {
			sr.Location = o.Schedule.Location.Name
			sr.District = o.Schedule.Location.District
		}
		resp.Schedule = sr
	}

	for _, l := range o.Lines {
		lr := dto.OrderLineResponse{
			ID:             l.ID.String(),
			ProductID:      uuidPtrString(l.ProductID),
			ProductName:    l.ProductName,
			ProductDeleted: l.ProductDeleted,
			DiscountID:     uuidPtrString(l.DiscountID),
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Subtotal:       l.Subtotal,
			IsFinish:       l.IsFinish,
		}
		if l.Product != nil {
			res := pricing.PriceLine(pricingItem(l.Product), l.Quantity, pricingTiers(l.Product.Discounts))
			lr.DisplayPricing = displayPricing(res)
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
