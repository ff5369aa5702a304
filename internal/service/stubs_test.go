package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/repository"
	"pickupshop/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore backs every repository stub. DB() returns nil everywhere, so
// runTx calls its function directly and nothing is rolled back: tests rely on
// the services checking before they write.
type memStore struct {
	products  map[uuid.UUID]*model.Product
	tiers     map[uuid.UUID]*model.DiscountTier
	orders    map[uuid.UUID]*model.Order
	schedules map[uuid.UUID]*model.Schedule
	customers map[string]*model.Customer
	movements []model.StockMovement
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[uuid.UUID]*model.Product),
		tiers:     make(map[uuid.UUID]*model.DiscountTier),
		orders:    make(map[uuid.UUID]*model.Order),
		schedules: make(map[uuid.UUID]*model.Schedule),
		customers: make(map[string]*model.Customer),
	}
}

func (s *memStore) tiersOf(productID uuid.UUID) []model.DiscountTier {
	var out []model.DiscountTier
	for _, t := range s.tiers {
		if t.ProductID == productID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out
}

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.Lines = make([]model.OrderLine, len(o.Lines))
	copy(c.Lines, o.Lines)
	for i := range c.Lines {
		c.Lines[i].Product = nil
		c.Lines[i].Discount = nil
	}
	c.Customer = nil
	c.Schedule = nil
	return &c
}

// ── products ──────────────────────────────────────────────────────────────────

type productStub struct{ s *memStore }

func (r *productStub) nameTaken(name string, except uuid.UUID) bool {
	for _, p := range r.s.products {
		if p.Name == name && p.ID != except {
			return true
		}
	}
	return false
}

func (r *productStub) Create(_ context.Context, p *model.Product) error {
	if r.nameTaken(p.Name, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	c := *p
	c.Discounts = nil
	r.s.products[p.ID] = &c
	return nil
}

func (r *productStub) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	c.Discounts = r.s.tiersOf(id)
	return &c, nil
}

func (r *productStub) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.s.products {
		if filter.Name == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			c := *p
			c.Discounts = r.s.tiersOf(p.ID)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *productStub) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r *productStub) UpdateFieldsTx(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := fields["name"].(string); ok && r.nameTaken(name, id) {
		return gorm.ErrDuplicatedKey
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "description":
			d := v.(string)
			p.Description = &d
		case "price":
			p.Price = v.(decimal.Decimal)
		case "one_set_quantity":
			q := v.(int)
			p.OneSetQuantity = &q
		case "one_set_price":
			d := v.(decimal.Decimal)
			p.OneSetPrice = &d
		case "unit":
			u := v.(string)
			p.Unit = &u
		default:
			panic("unexpected product column " + k)
		}
	}
	return nil
}

func (r *productStub) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.s.products, id)
	return nil
}

func (r *productStub) DecrementStockTx(_ *gorm.DB, id uuid.UUID, units int) (bool, error) {
	p, ok := r.s.products[id]
	if !ok || p.StockQuantity < units {
		return false, nil
	}
	p.StockQuantity -= units
	return true, nil
}

func (r *productStub) IncrementStockTx(_ *gorm.DB, id uuid.UUID, units int) error {
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockQuantity += units
	return nil
}

func (r *productStub) DB() *gorm.DB { return nil }

// ── discount tiers ────────────────────────────────────────────────────────────

type discountStub struct{ s *memStore }

func (r *discountStub) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.DiscountTier, error) {
	return r.s.tiersOf(productID), nil
}

func (r *discountStub) ListByProductTx(_ *gorm.DB, productID uuid.UUID) ([]model.DiscountTier, error) {
	return r.s.tiersOf(productID), nil
}

func (r *discountStub) FindReferencedQuantitiesTx(_ *gorm.DB, productID uuid.UUID) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, o := range r.s.orders {
		for _, l := range o.Lines {
			if l.DiscountID == nil {
				continue
			}
			if t, ok := r.s.tiers[*l.DiscountID]; ok && t.ProductID == productID {
				out[t.Quantity] = true
			}
		}
	}
	return out, nil
}

func (r *discountStub) CreateTx(_ *gorm.DB, d *model.DiscountTier) error {
	for _, t := range r.s.tiers {
		if t.ProductID == d.ProductID && t.Quantity == d.Quantity {
			return gorm.ErrDuplicatedKey
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	c := *d
	r.s.tiers[d.ID] = &c
	return nil
}

func (r *discountStub) UpdatePriceTx(_ *gorm.DB, id uuid.UUID, price decimal.Decimal) error {
	t, ok := r.s.tiers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Price = price
	return nil
}

func (r *discountStub) DeleteTx(_ *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(r.s.tiers, id)
	}
	return nil
}

func (r *discountStub) DeleteByProductTx(_ *gorm.DB, productID uuid.UUID) error {
	for id, t := range r.s.tiers {
		if t.ProductID == productID {
			delete(r.s.tiers, id)
		}
	}
	return nil
}

func (r *discountStub) DB() *gorm.DB { return nil }

// ── orders ────────────────────────────────────────────────────────────────────

type orderStub struct{ s *memStore }

func (r *orderStub) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := copyOrder(o)
	if cu, ok := r.s.customers[c.CustomerID]; ok {
		cc := *cu
		c.Customer = &cc
	}
	if c.ScheduleID != nil {
		if sc, ok := r.s.schedules[*c.ScheduleID]; ok {
			sch := *sc
			c.Schedule = &sch
		}
	}
	for i := range c.Lines {
		if pid := c.Lines[i].ProductID; pid != nil {
			if p, ok := r.s.products[*pid]; ok {
				pc := *p
				pc.Discounts = r.s.tiersOf(p.ID)
				c.Lines[i].Product = &pc
			}
		}
	}
	return c, nil
}

func (r *orderStub) List(ctx context.Context, f repository.OrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for id, o := range r.s.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		if f.From != nil || f.To != nil {
			if o.ScheduleID == nil {
				continue
			}
			day := r.s.schedules[*o.ScheduleID].Date.Format("2006-01-02")
			if (f.From != nil && day < *f.From) || (f.To != nil && day > *f.To) {
				continue
			}
		}
		full, _ := r.FindByID(ctx, id)
		out = append(out, *full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *orderStub) CreateTx(_ *gorm.DB, o *model.Order) error {
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *orderStub) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (r *orderStub) UpdateFieldsTx(_ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	o, ok := r.s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "order_status":
			o.OrderStatus = v.(string)
		case "payment_status":
			o.PaymentStatus = v.(string)
		case "total_amount":
			o.TotalAmount = v.(decimal.Decimal)
		case "schedule_id":
			sid := v.(uuid.UUID)
			o.ScheduleID = &sid
		default:
			panic("unexpected order column " + k)
		}
	}
	return nil
}

func (r *orderStub) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.s.orders, id)
	return nil
}

func (r *orderStub) CreateLineTx(_ *gorm.DB, l *model.OrderLine) error {
	o, ok := r.s.orders[l.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c := *l
	c.Product = nil
	o.Lines = append(o.Lines, c)
	return nil
}

func (r *orderStub) UpdateLineTx(_ *gorm.DB, l *model.OrderLine) error {
	o, ok := r.s.orders[l.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].ID == l.ID {
			c := *l
			c.Product = nil
			o.Lines[i] = c
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *orderStub) DeleteLineTx(_ *gorm.DB, lineID uuid.UUID) error {
	for _, o := range r.s.orders {
		o.Lines = removeLine(o.Lines, lineID)
	}
	return nil
}

func (r *orderStub) DeleteLinesByOrderTx(_ *gorm.DB, orderID uuid.UUID) error {
	if o, ok := r.s.orders[orderID]; ok {
		o.Lines = nil
	}
	return nil
}

func (r *orderStub) NeutralizeProductLinesTx(_ *gorm.DB, productID uuid.UUID) (int64, error) {
	var n int64
	for _, o := range r.s.orders {
		for i := range o.Lines {
			l := &o.Lines[i]
			if l.ProductID != nil && *l.ProductID == productID {
				l.ProductID = nil
				l.DiscountID = nil
				l.ProductDeleted = true
				n++
			}
		}
	}
	return n, nil
}

func (r *orderStub) DB() *gorm.DB { return nil }

// ── schedules, customers, movements ───────────────────────────────────────────

type scheduleStub struct{ s *memStore }

func (r *scheduleStub) FindByID(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *sc
	return &c, nil
}

type customerStub struct{ s *memStore }

func (r *customerStub) FindByID(_ context.Context, id string) (*model.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *customerStub) Upsert(_ context.Context, c *model.Customer) error {
	cc := *c
	r.s.customers[c.ID] = &cc
	return nil
}

type movementStub struct{ s *memStore }

func (r *movementStub) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	m.CreatedAt = time.Now()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r *movementStub) List(_ context.Context, f repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.s.movements {
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		if f.OrderID != nil && (m.OrderID == nil || *m.OrderID != *f.OrderID) {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// ── cache and notifier ────────────────────────────────────────────────────────

type memCache struct {
	entries map[uuid.UUID]*repository.CachedProduct
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uuid.UUID]*repository.CachedProduct)}
}

func (c *memCache) Get(_ context.Context, id uuid.UUID) (*repository.CachedProduct, bool) {
	p, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *memCache) Set(_ context.Context, p *repository.CachedProduct) { c.entries[p.ID] = p }

func (c *memCache) Invalidate(_ context.Context, id uuid.UUID) { delete(c.entries, id) }

type recordingNotifier struct {
	payloads []worker.OrderEmailPayload
}

func (n *recordingNotifier) EnqueueOrderConfirmation(_ context.Context, p worker.OrderEmailPayload) error {
	n.payloads = append(n.payloads, p)
	return nil
}

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memStore
	cache     *memCache
	notifier  *recordingNotifier
	orders    OrderService
	products  ProductService
	discounts DiscountService
	inventory InventoryService

	customer Principal
	staff    Principal
	schedule uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	f := &fixture{store: st, cache: newMemCache(), notifier: &recordingNotifier{}}

	products := &productStub{st}
	discounts := &discountStub{st}
	orders := &orderStub{st}
	f.inventory = NewInventoryService(products, &movementStub{st})
	f.products = NewProductService(products, discounts, orders, f.cache)
	f.discounts = NewDiscountService(products, discounts, f.cache)
	f.orders = NewOrderService(orders, products, discounts, &scheduleStub{st}, &customerStub{st}, f.inventory, f.notifier)

	email := "hana@example.com"
	st.customers["c1"] = &model.Customer{ID: "c1", Name: "Hana", Email: &email}
	st.customers["c2"] = &model.Customer{ID: "c2", Name: "Ken"}
	f.customer = Principal{CustomerID: "c1"}
	f.staff = Principal{Staff: true}

	loc := &model.PickupLocation{ID: uuid.New(), District: "North", Name: "Station kiosk"}
	f.schedule = uuid.New()
	st.schedules[f.schedule] = &model.Schedule{
		ID: f.schedule, Date: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		LocationID: loc.ID, PickupStart: "10:00", PickupEnd: "12:00", Location: loc,
	}
	return f
}

func (f *fixture) addProduct(t *testing.T, name string, price int64, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.store.products[id] = &model.Product{ID: id, Name: name, Price: decimal.NewFromInt(price), StockQuantity: stock}
	return id
}

func (f *fixture) addBundle(t *testing.T, name string, price int64, setQty int, setPrice int64, stock int) uuid.UUID {
	t.Helper()
	id := f.addProduct(t, name, price, stock)
	sp := decimal.NewFromInt(setPrice)
	f.store.products[id].OneSetQuantity = &setQty
	f.store.products[id].OneSetPrice = &sp
	return id
}

func (f *fixture) addTier(t *testing.T, productID uuid.UUID, qty int, price int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.store.tiers[id] = &model.DiscountTier{ID: id, ProductID: productID, Quantity: qty, Price: decimal.NewFromInt(price)}
	return id
}

func (f *fixture) stock(productID uuid.UUID) int {
	return f.store.products[productID].StockQuantity
}

func (f *fixture) placeOrder(t *testing.T, lines ...dto.OrderLineRequest) *dto.OrderResponse {
	t.Helper()
	sid := f.schedule.String()
	resp, err := f.orders.Create(context.Background(), f.customer, dto.CreateOrderRequest{
		ScheduleID: &sid,
		Lines:      lines,
	})
	require.NoError(t, err)
	return resp
}

func line(productID uuid.UUID, qty int) dto.OrderLineRequest {
	return dto.OrderLineRequest{ProductID: productID.String(), Quantity: qty}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}
