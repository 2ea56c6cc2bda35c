package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced OrderStatus = "placed"
)

// Order is the confirmation produced when a cart is checked out. Orders are
// not processed further.
type Order struct {
	Number          string          `json:"number"`
	CartID          string          `json:"cartId"`
	Lines           Snapshot        `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}
