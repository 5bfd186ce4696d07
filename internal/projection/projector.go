// Package projection transforms the live cart aggregate into the stable,
// monetarily precise wire representation, including the purchasability
// repair side effect.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/events"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
	"github.com/fjod/go_cart/cart-api/internal/media"
	"github.com/fjod/go_cart/cart-api/internal/money"
	"github.com/fjod/go_cart/cart-api/internal/repository"
)

type Projector struct {
	store      repository.CartStore
	catalog    catalog.ProductCatalog
	taxonomies catalog.TaxonomyResolver
	media      media.Resolver
	events     events.Publisher
	hooks      *hooks.Registry
	cfg        StoreConfig
}

func NewProjector(
	store repository.CartStore,
	productCatalog catalog.ProductCatalog,
	taxonomies catalog.TaxonomyResolver,
	mediaResolver media.Resolver,
	publisher events.Publisher,
	registry *hooks.Registry,
	cfg StoreConfig,
) *Projector {
	return &Projector{
		store:      store,
		catalog:    productCatalog,
		taxonomies: taxonomies,
		media:      mediaResolver,
		events:     publisher,
		hooks:      registry,
		cfg:        cfg,
	}
}

// Project builds the response for a get-cart read. The shape depends on the
// options: raw mode returns the unmodified line collection, default mode the
// engine's line data, a cart item key extracts a single line, and otherwise
// the full projected cart is returned.
func (p *Projector) Project(ctx context.Context, cart *domain.Cart, opts ReadOptions) (interface{}, error) {
	if opts.Raw {
		return rawContents(cart), nil
	}

	if cart.IsEmpty() || cart.ContentsCount() <= 0 {
		empty, err := p.hooks.Apply(hooks.PointEmptyCart, map[string]interface{}{})
		if err != nil {
			return nil, err
		}
		return empty, nil
	}

	if opts.CartItemKey != "" {
		line := cart.LineByKey(opts.CartItemKey)
		if line == nil {
			return nil, domain.NewCartError(domain.ErrCodeItemNotInCart,
				"Item specified does not exist in cart.", http.StatusNotFound)
		}
		item, err := p.hooks.Apply(hooks.PointGetCartItem, *line)
		if err != nil {
			return nil, err
		}
		return item, nil
	}

	if opts.Default {
		return rawContents(cart), nil
	}

	response := &CartResponse{
		CartHash:  cart.Hash,
		CartKey:   cart.CartKey,
		Currency:  p.currencyBlock(),
		Items:     make(map[string]ItemView, len(cart.Lines)),
		ItemCount: cart.ContentsCount(),
		Coupons:   make(map[string]CouponSummary),
		Totals:    p.totalsBlock(cart),
		Fees:      p.Fees(cart),
	}

	if p.cfg.CouponsEnabled {
		response.Coupons = p.CouponSummaries(cart)
	}

	lines := cart.Lines
	if filtered, err := p.hooks.Apply(hooks.PointCartItems, lines); err == nil {
		if l, ok := filtered.([]domain.CartLine); ok {
			lines = l
		}
	}

	var itemsWeight float64
	for _, line := range lines {
		item, notice, err := p.buildItem(ctx, cart.CartKey, line, opts)
		if err != nil {
			return nil, err
		}
		if notice != "" {
			response.Notices = append(response.Notices, notice)
			continue
		}
		response.Items[line.Key] = *item
		itemsWeight += item.Meta.Weight
	}
	response.ItemsWeight = itemsWeight
	response.NeedsShipping = itemsWeight > 0
	response.NeedsPayment = parseAmount(cart.Totals.Total).IsPositive()

	point := hooks.PointCart
	if opts.FromSession {
		point = hooks.PointCartSession
	}
	filtered, err := p.hooks.Apply(point, response.Items)
	if err != nil {
		return nil, err
	}
	if items, ok := filtered.(map[string]ItemView); ok {
		response.Items = items
	}

	return response, nil
}

// buildItem produces the wire view of a single line. A line whose product is
// no longer purchasable is not returned; instead its quantity is forced to
// zero in the store and a customer notice comes back in place of the view.
func (p *Projector) buildItem(ctx context.Context, cartKey string, line domain.CartLine, opts ReadOptions) (*ItemView, string, error) {
	productID := line.ProductID
	if line.VariationID > 0 {
		productID = line.VariationID
	}

	snapshot, err := p.catalog.Get(ctx, productID)
	if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
		return nil, "", fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	if snapshot != nil {
		if filtered, hookErr := p.hooks.Apply(hooks.PointItemProduct, snapshot); hookErr == nil {
			if s, ok := filtered.(*domain.ProductSnapshot); ok {
				snapshot = s
			}
		}
	}

	if snapshot == nil || !snapshot.Purchasable {
		notice, repairErr := p.repairLine(ctx, cartKey, line, snapshot)
		if repairErr != nil {
			return nil, "", repairErr
		}
		return nil, notice, nil
	}

	name, err := p.hooks.ApplyString(hooks.PointProductName, snapshot.Name)
	if err != nil {
		return nil, "", err
	}
	title, err := p.hooks.ApplyString(hooks.PointProductTitle, snapshot.Title)
	if err != nil {
		return nil, "", err
	}

	extraData := line.ExtraData
	if filtered, hookErr := p.hooks.Apply(hooks.PointCartItemData, extraData); hookErr == nil {
		if data, ok := filtered.(map[string]interface{}); ok {
			extraData = data
		}
	}

	variation, err := p.formatVariation(ctx, line.Variation, snapshot)
	if err != nil {
		return nil, "", err
	}

	item := &ItemView{
		ID:       snapshot.ID,
		Name:     name,
		Title:    title,
		Price:    money.FormatDecimal(snapshot.Price, p.cfg.Currency.MinorUnit),
		Quantity: line.Quantity,
		Meta: ItemMeta{
			SKU:                 snapshot.SKU,
			MinPurchaseQuantity: snapshot.MinPurchaseQty,
			MaxPurchaseQuantity: snapshot.MaxPurchaseQty,
			Weight:              p.lineWeight(snapshot, line.Quantity),
			Variation:           variation,
		},
		CartItemData: extraData,
	}

	if !snapshot.Dimensions.Empty() {
		item.Meta.Dimensions = &DimensionsView{
			Length: snapshot.Dimensions.Length,
			Width:  snapshot.Dimensions.Width,
			Height: snapshot.Dimensions.Height,
			Unit:   p.cfg.DimensionUnit,
		}
	}

	if opts.Thumb {
		item.FeaturedImage = p.resolveThumbnail(ctx, snapshot, line)
	}

	return item, "", nil
}

// repairLine forces the line's quantity to zero so the engine drops it on
// the next save. This is a silent repair during a read, not a validation
// failure, so it surfaces as a notice rather than an error.
func (p *Projector) repairLine(ctx context.Context, cartKey string, line domain.CartLine, snapshot *domain.ProductSnapshot) (string, error) {
	productName := fmt.Sprintf("Product #%d", line.ProductID)
	if snapshot != nil && snapshot.Name != "" {
		productName = snapshot.Name
	}

	message := fmt.Sprintf("%s has been removed from your cart because it can no longer be purchased. Please contact us if you need assistance.", productName)
	message, err := p.hooks.ApplyString(hooks.PointItemRemovedMessage, message)
	if err != nil {
		return "", err
	}

	if err := p.store.SetLineQuantity(ctx, cartKey, line.Key, 0); err != nil {
		return "", fmt.Errorf("failed to remove unpurchasable line %s: %w", line.Key, err)
	}

	log.Printf("removed unpurchasable item: cart=%s line=%s product=%d qty=%v",
		cartKey, line.Key, line.ProductID, line.Quantity)

	if err := p.events.ItemRepaired(ctx, cartKey, line.Key, line.ProductID, productName); err != nil {
		log.Printf("failed to publish item repaired event: %v", err)
	}

	return message, nil
}

// formatVariation converts raw attribute entries such as
// "attribute_pa_colour=dark-blue" into a human readable map keyed by the
// attribute label.
func (p *Projector) formatVariation(ctx context.Context, variation map[string]string, product *domain.ProductSnapshot) (map[string]string, error) {
	formatted := make(map[string]string, len(variation))
	if len(variation) == 0 {
		return formatted, nil
	}

	for rawKey, value := range variation {
		key := rawKey
		if decoded, err := url.QueryUnescape(rawKey); err == nil {
			key = decoded
		}
		slug := strings.TrimPrefix(key, "attribute_")

		exists, err := p.taxonomies.TaxonomyExists(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve taxonomy %q: %w", slug, err)
		}

		var label string
		if exists {
			if name, ok, termErr := p.taxonomies.ResolveTermDisplayName(ctx, slug, value); termErr != nil {
				return nil, termErr
			} else if ok && name != "" {
				value = name
			}
			label, err = p.taxonomies.ResolveAttributeLabel(ctx, slug)
			if err != nil {
				return nil, err
			}
		} else {
			// Custom option: the display value comes from the extension
			// point, the label falls back to the raw attribute key.
			value, err = p.hooks.ApplyString(hooks.PointVariationOptionName, value)
			if err != nil {
				return nil, err
			}
			label = catalog.HumanizeSlug(slug)
		}

		formatted[label] = value
	}

	return formatted, nil
}

func (p *Projector) resolveThumbnail(ctx context.Context, snapshot *domain.ProductSnapshot, line domain.CartLine) string {
	imageID := snapshot.ImageID
	if filtered, err := p.hooks.Apply(hooks.PointItemThumbnail, imageID); err == nil {
		if id, ok := filtered.(int64); ok {
			imageID = id
		}
	}

	src, err := p.media.ResolveImage(ctx, imageID)
	if err != nil {
		// Thumbnails are best effort: a failing media service degrades to an
		// empty string rather than failing the read.
		log.Printf("failed to resolve thumbnail for product %d: %v", snapshot.ID, err)
		return ""
	}

	src, err = p.hooks.ApplyString(hooks.PointItemThumbnailSrc, src)
	if err != nil {
		return ""
	}
	return src
}

func (p *Projector) lineWeight(snapshot *domain.ProductSnapshot, quantity float64) float64 {
	if snapshot.Weight == "" {
		return 0
	}
	w, err := decimal.NewFromString(snapshot.Weight)
	if err != nil {
		return 0
	}
	weight, _ := w.Mul(decimal.NewFromFloat(quantity)).Float64()
	return ConvertWeight(weight, "kg", p.cfg.WeightUnit)
}

func (p *Projector) currencyBlock() CurrencyBlock {
	cur := p.cfg.Currency
	return CurrencyBlock{
		CurrencyCode:              cur.Code,
		CurrencySymbol:            cur.Symbol,
		CurrencyMinorUnit:         cur.MinorUnit,
		CurrencyDecimalSeparator:  cur.DecimalSeparator,
		CurrencyThousandSeparator: cur.ThousandSeparator,
		CurrencyPrefix:            cur.Prefix(),
		CurrencySuffix:            cur.Suffix(),
	}
}

// normalize renders an engine amount in minor units using the configured
// rounding mode. Stored amounts that fail to parse read as zero.
func (p *Projector) normalize(amount string) string {
	s, err := money.Normalize(amount, p.cfg.Currency.MinorUnit, p.cfg.RoundingMode)
	if err != nil {
		log.Printf("invalid stored amount %q: %v", amount, err)
		return "0"
	}
	return s
}

func (p *Projector) totalsBlock(cart *domain.Cart) TotalsBlock {
	return TotalsBlock{
		TotalItems:       p.normalize(cart.Totals.Subtotal),
		TotalItemTax:     p.normalize(cart.Totals.SubtotalTax),
		TotalFees:        p.normalize(cart.Totals.FeeTotal),
		TotalFeesTax:     p.normalize(cart.Totals.FeeTax),
		TotalDiscount:    p.normalize(cart.Totals.DiscountTotal),
		TotalDiscountTax: p.normalize(cart.Totals.DiscountTax),
		TotalShipping:    p.normalize(cart.Totals.ShippingTotal),
		TotalShippingTax: p.normalize(cart.Totals.ShippingTax),
		TotalPrice:       p.normalize(cart.Totals.Total),
		TotalTax:         p.normalize(cart.Totals.TotalTax),
		TaxLines:         p.TaxLines(cart),
	}
}

// rawContents returns the engine's line collection keyed by line key,
// untouched by any formatting.
func rawContents(cart *domain.Cart) map[string]domain.CartLine {
	contents := make(map[string]domain.CartLine, len(cart.Lines))
	for _, line := range cart.Lines {
		contents[line.Key] = line
	}
	return contents
}
