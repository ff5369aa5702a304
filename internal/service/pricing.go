package service

import (
	"pickupshop/internal/dto"
	"pickupshop/internal/model"
	"pickupshop/internal/pricing"
	"pickupshop/internal/repository"
)

func pricingItem(p *model.Product) pricing.Item {
	return pricing.Item{Price: p.Price, OneSetQuantity: p.OneSetQuantity, OneSetPrice: p.OneSetPrice}
}

func pricingTiers(tiers []model.DiscountTier) []pricing.Tier {
	out := make([]pricing.Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, pricing.Tier{ID: t.ID, Quantity: t.Quantity, Price: t.Price})
	}
	return out
}

func cachedPricingItem(c *repository.CachedProduct) pricing.Item {
	return pricing.Item{Price: c.Price, OneSetQuantity: c.OneSetQuantity, OneSetPrice: c.OneSetPrice}
}

func cachedPricingTiers(c *repository.CachedProduct) []pricing.Tier {
	out := make([]pricing.Tier, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		out = append(out, pricing.Tier{ID: t.ID, Quantity: t.Quantity, Price: t.Price})
	}
	return out
}

func toCachedProduct(p *model.Product) *repository.CachedProduct {
	c := &repository.CachedProduct{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		OneSetQuantity: p.OneSetQuantity,
		OneSetPrice:    p.OneSetPrice,
		Tiers:          make([]repository.CachedTier, 0, len(p.Discounts)),
	}
	for _, t := range p.Discounts {
		c.Tiers = append(c.Tiers, repository.CachedTier{ID: t.ID, Quantity: t.Quantity, Price: t.Price})
	}
	return c
}

func displayPricing(res pricing.Result) *dto.DisplayPricing {
	return &dto.DisplayPricing{
		Price:         pricing.Round2(res.Price),
		OriginalPrice: pricing.Round2(res.OriginalPrice),
		SavedAmount:   pricing.Round2(res.SavedAmount),
	}
}
