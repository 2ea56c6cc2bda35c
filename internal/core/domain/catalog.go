package domain

import "github.com/shopspring/decimal"

type Variant struct {
	ID    VariantID `json:"id"`
	Name  string    `json:"name"`
	Stock *int      `json:"stock,omitempty"`
}

// CatalogItem is the item metadata supplied by the catalog when a shopper
// adds something to the cart.
type CatalogItem struct {
	ID         ItemID          `json:"id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"price"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	CategoryID CategoryID      `json:"categoryId,omitempty"`
	Variants   []Variant       `json:"variants,omitempty"`
	// Stock, when set, is the quantity available for each of the item's
	// keys unless a variant carries its own.
	Stock *int `json:"stock,omitempty"`
}

func (c CatalogItem) Variant(id VariantID) (Variant, bool) {
	for _, v := range c.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// StockFor reports the available quantity for the variant, if known.
func (c CatalogItem) StockFor(variant Variant) (int, bool) {
	if variant.Stock != nil {
		return *variant.Stock, true
	}
	if c.Stock != nil {
		return *c.Stock, true
	}
	return 0, false
}

// Line snapshots the item's display fields into a cart line.
func (c CatalogItem) Line(variant Variant, quantity int) Line {
	return Line{
		ItemID:      c.ID,
		Name:        c.Name,
		UnitPrice:   c.UnitPrice,
		ImageURL:    c.ImageURL,
		Quantity:    quantity,
		VariantID:   variant.ID,
		VariantName: variant.Name,
		CategoryID:  c.CategoryID,
	}
}
