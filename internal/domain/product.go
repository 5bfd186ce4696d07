package domain

// Product types as reported by the catalog.
const (
	ProductTypeSimple    = "simple"
	ProductTypeVariable  = "variable"
	ProductTypeVariation = "variation"
)

// Product statuses.
const (
	ProductStatusPublish = "publish"
	ProductStatusTrash   = "trash"
)

// Stock statuses.
const (
	StockStatusInStock    = "instock"
	StockStatusOutOfStock = "outofstock"
)

// ProductSnapshot is a read-only view of a catalog product at the moment of
// validation or projection.
type ProductSnapshot struct {
	ID                int64
	ParentID          int64
	Type              string
	Status            string
	Name              string
	Title             string
	SKU               string
	Price             string
	StockStatus       string
	ManagingStock     bool
	StockQuantity     float64
	BackordersAllowed bool
	SoldIndividually  bool
	Purchasable       bool
	Weight            string
	Dimensions        Dimensions
	ImageID           int64
	MinPurchaseQty    float64
	MaxPurchaseQty    float64

	// StockManagedBy is the identifier stock is tracked under when it is not
	// the product itself, e.g. a variation whose stock pool lives on the
	// parent. Zero means the product manages its own.
	StockManagedBy int64
}

type Dimensions struct {
	Length string
	Width  string
	Height string
}

func (d Dimensions) Empty() bool {
	return d.Length == "" && d.Width == "" && d.Height == ""
}

func (p *ProductSnapshot) IsType(t string) bool {
	return p.Type == t
}

func (p *ProductSnapshot) IsVariation() bool {
	return p.Type == ProductTypeVariation
}

func (p *ProductSnapshot) IsInStock() bool {
	return p.StockStatus == StockStatusInStock
}

// HasEnoughStock reports whether the requested quantity can be satisfied.
// Unmanaged stock and allowed backorders always satisfy.
func (p *ProductSnapshot) HasEnoughStock(quantity float64) bool {
	if !p.ManagingStock || p.BackordersAllowed {
		return true
	}
	return p.StockQuantity >= quantity
}

// StockManagedByID returns the identifier stock is tracked under.
func (p *ProductSnapshot) StockManagedByID() int64 {
	if p.StockManagedBy > 0 {
		return p.StockManagedBy
	}
	return p.ID
}

// VariationAttribute describes one attribute a variable product requires a
// value for, together with the valid options.
type VariationAttribute struct {
	Taxonomy string
	Label    string
	Options  []string
}
