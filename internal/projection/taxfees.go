package projection

import (
	"log"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
	"github.com/fjod/go_cart/cart-api/internal/money"
)

// freeShippingLabel replaces a zero saving so clients never render "0" for
// a coupon that only unlocks free shipping.
const freeShippingLabel = "Free shipping coupon"

// TaxLines flattens the aggregate's tax total buckets into named lines, in
// the reported order, with normalized prices.
func (p *Projector) TaxLines(cart *domain.Cart) []TaxLine {
	taxLines := make([]TaxLine, 0, len(cart.TaxTotals))

	for _, total := range cart.TaxTotals {
		taxLines = append(taxLines, TaxLine{
			Name:  total.Label,
			Price: p.normalize(total.Amount),
		})
	}

	return taxLines
}

// Fees maps each cart fee to a display summary keyed by a slug of the fee
// name. The fee amount is tax inclusive when the store displays prices
// including tax.
func (p *Projector) Fees(cart *domain.Cart) map[string]FeeSummary {
	fees := make(map[string]FeeSummary, len(cart.Fees))

	for _, fee := range cart.Fees {
		amount := parseAmount(fee.Total)
		if p.cfg.PricesIncludeTax {
			amount = amount.Add(parseAmount(fee.Tax))
		}

		display := money.FormatPrice(amount.String(), p.cfg.Currency)
		display, err := p.hooks.ApplyString(hooks.PointFeeHTML, display)
		if err != nil {
			log.Printf("fee display hook rejected fee %q: %v", fee.Name, err)
		}

		fees[slugify(fee.Name)] = FeeSummary{
			Name: fee.Name,
			Fee:  display,
		}
	}

	return fees
}

// CouponSummaries maps each applied coupon to its saving, in minor-unit form
// and as a display string.
func (p *Projector) CouponSummaries(cart *domain.Cart) map[string]CouponSummary {
	coupons := make(map[string]CouponSummary, len(cart.Coupons))

	for _, coupon := range cart.Coupons {
		amount := parseAmount(coupon.DiscountTotal)
		if p.cfg.PricesIncludeTax {
			amount = amount.Add(parseAmount(coupon.DiscountTax))
		}

		saving := "-" + p.normalize(amount.String())
		savingHTML := "-" + money.FormatPrice(amount.String(), p.cfg.Currency)

		if coupon.FreeShipping && amount.IsZero() {
			saving = freeShippingLabel
			savingHTML = freeShippingLabel
		}

		savingHTML, err := p.hooks.ApplyString(hooks.PointCouponDiscountHTML, savingHTML)
		if err != nil {
			log.Printf("coupon display hook rejected coupon %q: %v", coupon.Code, err)
		}

		coupons[coupon.Code] = CouponSummary{
			Coupon:     slugify(coupon.Code),
			Label:      "Coupon: " + coupon.Code,
			Saving:     saving,
			SavingHTML: savingHTML,
		}
	}

	return coupons
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
