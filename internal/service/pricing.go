package service

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/pkg/config"
)

// PricingPolicy turns an order subtotal into the full price breakdown.
type PricingPolicy struct {
	TaxRate          decimal.Decimal
	FreeShippingOver decimal.Decimal
	ShippingFee      decimal.Decimal
}

func NewPricingPolicy(p config.Pricing) PricingPolicy {
	return PricingPolicy{
		TaxRate:          decimal.NewFromFloat(p.TaxRate),
		FreeShippingOver: decimal.NewFromFloat(p.FreeShippingOver),
		ShippingFee:      decimal.NewFromFloat(p.ShippingFee),
	}
}

func DefaultPricingPolicy() PricingPolicy {
	return NewPricingPolicy(config.Pricing{TaxRate: 0.08, FreeShippingOver: 50, ShippingFee: 10})
}

// Price rounds tax to cents. Shipping is free strictly above the threshold.
func (p PricingPolicy) Price(subtotal decimal.Decimal) models.Pricing {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingFee.Round(2)
	if subtotal.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	discount := decimal.Zero

	return models.Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}
