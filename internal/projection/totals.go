package projection

import (
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/money"
)

// TotalsOptions are the caller flags of the get-totals operation.
type TotalsOptions struct {
	HTML bool
}

// Tax bucket fields that pass through unformatted even in HTML mode, kept
// for clients that still parse the legacy totals shape.
var passthroughTotals = map[string]bool{
	"shipping_taxes":      true,
	"cart_contents_taxes": true,
	"fee_taxes":           true,
}

// ProjectTotals returns the cart totals either as minor-unit integers or,
// in HTML mode, as display formatted strings.
func (p *Projector) ProjectTotals(cart *domain.Cart, opts TotalsOptions) map[string]interface{} {
	scalars := map[string]string{
		"subtotal":            cart.Totals.Subtotal,
		"subtotal_tax":        cart.Totals.SubtotalTax,
		"shipping_total":      cart.Totals.ShippingTotal,
		"shipping_tax":        cart.Totals.ShippingTax,
		"discount_total":      cart.Totals.DiscountTotal,
		"discount_tax":        cart.Totals.DiscountTax,
		"cart_contents_total": cart.Totals.Subtotal,
		"cart_contents_tax":   cart.Totals.SubtotalTax,
		"fee_total":           cart.Totals.FeeTotal,
		"fee_tax":             cart.Totals.FeeTax,
		"total":               cart.Totals.Total,
		"total_tax":           cart.Totals.TotalTax,
	}

	totals := make(map[string]interface{}, len(scalars)+len(passthroughTotals))
	for key, amount := range scalars {
		if opts.HTML {
			totals[key] = money.FormatPrice(amount, p.cfg.Currency)
		} else {
			totals[key] = p.normalize(amount)
		}
	}

	// The bucket collections are never formatted, whatever the mode.
	totals["cart_contents_taxes"] = cart.TaxTotals
	totals["shipping_taxes"] = []domain.TaxTotal{}
	totals["fee_taxes"] = []domain.TaxTotal{}

	return totals
}
