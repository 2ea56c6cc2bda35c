package domain

import "github.com/shopspring/decimal"

// MaxLineQuantity is the largest quantity a single line can hold. Sums above
// it saturate.
const MaxLineQuantity = 9999

// AddQuantity returns a + b saturated to [0, MaxLineQuantity]. Inputs outside
// that range are clamped first, so the sum never overflows.
func AddQuantity(a, b int) int {
	return LimitQuantity(LimitQuantity(a) + LimitQuantity(b))
}

// LimitQuantity clamps n to [0, MaxLineQuantity].
func LimitQuantity(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxLineQuantity:
		return MaxLineQuantity
	}
	return n
}

// Line is one purchasable unit in the cart. Display fields are a snapshot
// taken when the line was first added.
type Line struct {
	ItemID      ItemID          `json:"itemId"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Quantity    int             `json:"quantity"`
	VariantID   VariantID       `json:"variantId,omitempty"`
	VariantName string          `json:"variantName,omitempty"`
	CategoryID  CategoryID      `json:"categoryId,omitempty"`
}

func (l Line) Key() Key {
	return Key{ItemID: l.ItemID, VariantID: l.VariantID}
}

// LineTotal is quantity * unit price.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is the ordered set of cart lines at one instant.
type Snapshot []Line

// Find returns the index of the line with the given key, or -1.
func (s Snapshot) Find(key Key) int {
	for i := range s {
		if s[i].ItemID == key.ItemID && s[i].VariantID == key.VariantID {
			return i
		}
	}
	return -1
}

func (s Snapshot) Quantity(key Key) int {
	if i := s.Find(key); i >= 0 {
		return s[i].Quantity
	}
	return 0
}

// Count is the sum of quantities across all lines. Each line contributes at
// most MaxLineQuantity.
func (s Snapshot) Count() int {
	n := 0
	for _, l := range s {
		n += LimitQuantity(l.Quantity)
	}
	return n
}

// Subtotal is the sum of quantity * unit price across all lines.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}
