package projection

import (
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/money"
)

// StoreConfig carries the store-wide settings the projector needs: currency
// formatting, measurement units and display behaviour.
type StoreConfig struct {
	Currency domain.CurrencyInfo

	// WeightUnit is the unit weights are reported in. Catalog weights are
	// kilograms and get converted on the way out.
	WeightUnit    string
	DimensionUnit string

	// PricesIncludeTax selects tax-inclusive display amounts for fees and
	// coupon savings.
	PricesIncludeTax bool
	CouponsEnabled   bool

	RoundingMode money.RoundingMode
}

// ReadOptions are the caller flags of the get-cart operation.
type ReadOptions struct {
	Raw         bool
	Default     bool
	Thumb       bool
	CartItemKey string
	FromSession bool
}

// CartResponse is the full projected cart.
type CartResponse struct {
	CartHash      string                    `json:"cart_hash"`
	CartKey       string                    `json:"cart_key"`
	Currency      CurrencyBlock             `json:"currency"`
	Items         map[string]ItemView       `json:"items"`
	ItemCount     float64                   `json:"item_count"`
	ItemsWeight   float64                   `json:"items_weight"`
	NeedsPayment  bool                      `json:"needs_payment"`
	NeedsShipping bool                      `json:"needs_shipping"`
	Coupons       map[string]CouponSummary  `json:"coupons"`
	Totals        TotalsBlock               `json:"totals"`
	Fees          map[string]FeeSummary     `json:"fees"`
	Notices       []string                  `json:"notices,omitempty"`
}

type CurrencyBlock struct {
	CurrencyCode              string `json:"currency_code"`
	CurrencySymbol            string `json:"currency_symbol"`
	CurrencyMinorUnit         int    `json:"currency_minor_unit"`
	CurrencyDecimalSeparator  string `json:"currency_decimal_separator"`
	CurrencyThousandSeparator string `json:"currency_thousand_separator"`
	CurrencyPrefix            string `json:"currency_prefix"`
	CurrencySuffix            string `json:"currency_suffix"`
}

type TotalsBlock struct {
	TotalItems       string    `json:"total_items"`
	TotalItemTax     string    `json:"total_item_tax"`
	TotalFees        string    `json:"total_fees"`
	TotalFeesTax     string    `json:"total_fees_tax"`
	TotalDiscount    string    `json:"total_discount"`
	TotalDiscountTax string    `json:"total_discount_tax"`
	TotalShipping    string    `json:"total_shipping"`
	TotalShippingTax string    `json:"total_shipping_tax"`
	TotalPrice       string    `json:"total_price"`
	TotalTax         string    `json:"total_tax"`
	TaxLines         []TaxLine `json:"tax_lines"`
}

type TaxLine struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type CouponSummary struct {
	Coupon     string `json:"coupon"`
	Label      string `json:"label"`
	Saving     string `json:"saving"`
	SavingHTML string `json:"saving_html"`
}

// FeeSummary's Fee field is a display string, the one formatted value in the
// projection. Callers must not parse it.
type FeeSummary struct {
	Name string `json:"name"`
	Fee  string `json:"fee"`
}

type ItemView struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	Title         string                 `json:"title"`
	Price         string                 `json:"price"`
	Quantity      float64                `json:"quantity"`
	Meta          ItemMeta               `json:"meta"`
	CartItemData  map[string]interface{} `json:"cart_item_data"`
	FeaturedImage string                 `json:"featured_image,omitempty"`
}

type ItemMeta struct {
	SKU                 string            `json:"sku"`
	Dimensions          *DimensionsView   `json:"dimensions"`
	MinPurchaseQuantity float64           `json:"min_purchase_quantity"`
	MaxPurchaseQuantity float64           `json:"max_purchase_quantity"`
	Weight              float64           `json:"weight"`
	Variation           map[string]string `json:"variation"`
}

type DimensionsView struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Unit   string `json:"unit"`
}
