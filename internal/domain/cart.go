package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the cart aggregate as stored by the commerce engine. Monetary
// fields are decimal strings; the API layer reformats them, it never
// recomputes them.
type Cart struct {
	CartKey   string          `bson:"_id" json:"cart_key"`
	Hash      string          `bson:"hash" json:"hash"`
	Lines     []CartLine      `bson:"lines" json:"lines"`
	Coupons   []AppliedCoupon `bson:"coupons" json:"coupons"`
	Fees      []Fee           `bson:"fees" json:"fees"`
	TaxTotals []TaxTotal      `bson:"tax_totals" json:"tax_totals"`
	Totals    CartTotals      `bson:"totals" json:"totals"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// CartLine is a single cart entry. Key is deterministic for a given
// combination of product, variation, attributes and extra data.
type CartLine struct {
	Key             string                 `bson:"key" json:"key"`
	ProductID       int64                  `bson:"product_id" json:"product_id"`
	VariationID     int64                  `bson:"variation_id" json:"variation_id"`
	Variation       map[string]string      `bson:"variation" json:"variation"`
	Quantity        float64                `bson:"quantity" json:"quantity"`
	ExtraData       map[string]interface{} `bson:"extra_data" json:"extra_data"`
	LineSubtotal    string                 `bson:"line_subtotal" json:"line_subtotal"`
	LineSubtotalTax string                 `bson:"line_subtotal_tax" json:"line_subtotal_tax"`
	LineTotal       string                 `bson:"line_total" json:"line_total"`
	LineTax         string                 `bson:"line_tax" json:"line_tax"`
	AddedAt         time.Time              `bson:"added_at" json:"added_at"`
}

type AppliedCoupon struct {
	Code          string `bson:"code" json:"code"`
	DiscountTotal string `bson:"discount_total" json:"discount_total"`
	DiscountTax   string `bson:"discount_tax" json:"discount_tax"`
	FreeShipping  bool   `bson:"free_shipping" json:"free_shipping"`
}

type Fee struct {
	Name  string `bson:"name" json:"name"`
	Total string `bson:"total" json:"total"`
	Tax   string `bson:"tax" json:"tax"`
}

type TaxTotal struct {
	Label  string `bson:"label" json:"label"`
	Amount string `bson:"amount" json:"amount"`
}

// CartTotals are the aggregate scalar totals maintained by the engine.
type CartTotals struct {
	Subtotal       string  `bson:"subtotal" json:"subtotal"`
	SubtotalTax    string  `bson:"subtotal_tax" json:"subtotal_tax"`
	FeeTotal       string  `bson:"fee_total" json:"fee_total"`
	FeeTax         string  `bson:"fee_tax" json:"fee_tax"`
	DiscountTotal  string  `bson:"discount_total" json:"discount_total"`
	DiscountTax    string  `bson:"discount_tax" json:"discount_tax"`
	ShippingTotal  string  `bson:"shipping_total" json:"shipping_total"`
	ShippingTax    string  `bson:"shipping_tax" json:"shipping_tax"`
	Total          string  `bson:"total" json:"total"`
	TotalTax       string  `bson:"total_tax" json:"total_tax"`
	ContentsWeight float64 `bson:"contents_weight" json:"contents_weight"`
	ContentsCount  float64 `bson:"contents_count" json:"contents_count"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// ContentsCount returns the total quantity across all lines.
func (c *Cart) ContentsCount() float64 {
	var count float64
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// LineByKey returns the line with the given key, or nil.
func (c *Cart) LineByKey(key string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			return &c.Lines[i]
		}
	}
	return nil
}

func (c *Cart) HasCoupon(code string) bool {
	for _, coupon := range c.Coupons {
		if coupon.Code == code {
			return true
		}
	}
	return false
}

// Recalculate rebuilds the scalar totals from lines, fees and coupons.
// This is engine behaviour: the store invokes it on every write so totals
// stay derivable from the line collections. Shipping totals are carried over
// untouched, shipping is priced elsewhere.
func (c *Cart) Recalculate() {
	subtotal := decimal.Zero
	subtotalTax := decimal.Zero
	total := decimal.Zero
	totalTax := decimal.Zero
	var count float64

	for _, line := range c.Lines {
		subtotal = subtotal.Add(parseOrZero(line.LineSubtotal))
		subtotalTax = subtotalTax.Add(parseOrZero(line.LineSubtotalTax))
		total = total.Add(parseOrZero(line.LineTotal))
		totalTax = totalTax.Add(parseOrZero(line.LineTax))
		count += line.Quantity
	}

	feeTotal := decimal.Zero
	feeTax := decimal.Zero
	for _, fee := range c.Fees {
		feeTotal = feeTotal.Add(parseOrZero(fee.Total))
		feeTax = feeTax.Add(parseOrZero(fee.Tax))
	}

	discountTotal := decimal.Zero
	discountTax := decimal.Zero
	for _, coupon := range c.Coupons {
		discountTotal = discountTotal.Add(parseOrZero(coupon.DiscountTotal))
		discountTax = discountTax.Add(parseOrZero(coupon.DiscountTax))
	}

	shippingTotal := parseOrZero(c.Totals.ShippingTotal)
	shippingTax := parseOrZero(c.Totals.ShippingTax)

	grandTax := totalTax.Add(feeTax).Add(shippingTax)
	grand := total.Add(feeTotal).Add(shippingTotal).Add(grandTax)

	c.Totals.Subtotal = subtotal.String()
	c.Totals.SubtotalTax = subtotalTax.String()
	c.Totals.FeeTotal = feeTotal.String()
	c.Totals.FeeTax = feeTax.String()
	c.Totals.DiscountTotal = discountTotal.String()
	c.Totals.DiscountTax = discountTax.String()
	c.Totals.ShippingTotal = shippingTotal.String()
	c.Totals.ShippingTax = shippingTax.String()
	c.Totals.Total = grand.String()
	c.Totals.TotalTax = grandTax.String()
	c.Totals.ContentsCount = count
}

func parseOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
