package service

import (
	"context"
	"testing"

	"pickupshop/internal/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiersReq(pairs ...int64) dto.ReplaceDiscountsRequest {
	var req dto.ReplaceDiscountsRequest
	for i := 0; i+1 < len(pairs); i += 2 {
		req.Discounts = append(req.Discounts, dto.DiscountTierRequest{Quantity: int(pairs[i]), Price: decimal.NewFromInt(pairs[i+1])})
	}
	return req
}

func TestReplaceDiscounts_Reconciles(t *testing.T) {
	f := newFixture(t)
	pid := f.addProduct(t, "Strawberry", 120, 20)
	two := f.addTier(t, pid, 2, 200)
	f.addTier(t, pid, 10, 900)

	got, err := f.discounts.Replace(context.Background(), pid, tiersReq(2, 210, 5, 450))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, two.String(), got[0].DiscountID, "an existing quantity is updated in place")
	requireDecimal(t, "210.00", got[0].Price)
	assert.Equal(t, 5, got[1].Quantity)
	requireDecimal(t, "450.00", got[1].Price)
	assert.Len(t, f.store.tiers, 2)
}

func TestReplaceDiscounts_ReferencedTierIsFrozen(t *testing.T) {
	f := newFixture(t)
	pid := f.addProduct(t, "Strawberry", 120, 20)
	five := f.addTier(t, pid, 5, 450)
	order := f.placeOrder(t, line(pid, 5))
	require.Equal(t, five.String(), *order.Lines[0].DiscountID)

	// Neither a new price nor leaving it out of the set touches the tier.
	got, err := f.discounts.Replace(context.Background(), pid, tiersReq(5, 400, 3, 300))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[1].Quantity)
	requireDecimal(t, "450.00", got[1].Price)
	assert.True(t, got[1].Referenced)

	got, err = f.discounts.Replace(context.Background(), pid, tiersReq())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, five.String(), got[0].DiscountID)

	stored, err := f.orders.Get(context.Background(), f.customer, uuid.MustParse(order.ID))
	require.NoError(t, err)
	requireDecimal(t, "450.00", stored.Lines[0].Subtotal)
}

func TestReplaceDiscounts_Errors(t *testing.T) {
	f := newFixture(t)
	pid := f.addProduct(t, "Strawberry", 120, 20)
	ctx := context.Background()

	_, err := f.discounts.Replace(ctx, pid, tiersReq(2, 200, 2, 190))
	assert.True(t, IsKind(err, KindDuplicate))

	_, err = f.discounts.Replace(ctx, pid, tiersReq(0, 200))
	assert.True(t, IsKind(err, KindValidation))

	_, err = f.discounts.Replace(ctx, uuid.New(), tiersReq(2, 200))
	assert.True(t, IsKind(err, KindNotFound))

	assert.Empty(t, f.store.tiers)
}

func TestDeleteAllDiscounts(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing referenced", func(t *testing.T) {
		f := newFixture(t)
		pid := f.addProduct(t, "Strawberry", 120, 20)
		f.addTier(t, pid, 2, 200)
		f.addTier(t, pid, 5, 450)

		resp, err := f.discounts.DeleteAll(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, "All discounts deleted successfully", resp.Message)
		assert.Equal(t, 2, resp.Deleted)
		assert.Zero(t, resp.Skipped)
		assert.Empty(t, f.store.tiers)
	})

	t.Run("referenced tiers survive", func(t *testing.T) {
		f := newFixture(t)
		pid := f.addProduct(t, "Strawberry", 120, 20)
		f.addTier(t, pid, 2, 200)
		five := f.addTier(t, pid, 5, 450)
		f.placeOrder(t, line(pid, 6))

		resp, err := f.discounts.DeleteAll(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Deleted)
		assert.Equal(t, 1, resp.Skipped)
		assert.Equal(t, "Deleted 1 discount(s); skipped 1 referenced by existing orders", resp.Message)
		require.Len(t, f.store.tiers, 1)
		assert.Contains(t, f.store.tiers, five)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.discounts.DeleteAll(ctx, uuid.New())
		assert.True(t, IsKind(err, KindNotFound))
	})
}

func TestDiscountWritesInvalidateCatalogCache(t *testing.T) {
	f := newFixture(t)
	pid := f.addProduct(t, "Strawberry", 120, 20)
	ctx := context.Background()

	q, err := f.products.Quote(ctx, pid, 2)
	require.NoError(t, err)
	requireDecimal(t, "240.00", q.Price)
	require.Contains(t, f.cache.entries, pid)

	_, err = f.discounts.Replace(ctx, pid, tiersReq(2, 200))
	require.NoError(t, err)
	assert.NotContains(t, f.cache.entries, pid)

	q, err = f.products.Quote(ctx, pid, 2)
	require.NoError(t, err)
	requireDecimal(t, "200.00", q.Price)
	requireDecimal(t, "40.00", q.SavedAmount)
	require.NotNil(t, q.DiscountID)
}
