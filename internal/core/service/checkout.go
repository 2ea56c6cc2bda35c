package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/core/feed"
	"github.com/rl1809/cartstore/internal/port"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidDiscount = errors.New("discount percent must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Total applies a percentage discount to subtotal, never going below zero.
func Total(subtotal, percent decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(subtotal.Mul(percent).Div(hundred))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Total           decimal.Decimal `json:"total"`
}

type CheckoutOptions struct {
	CartID   string
	Notifier port.Notifier
	// OrderNumber generates confirmation numbers; defaults to "AW-" plus six
	// random characters.
	OrderNumber func() string
	Now         func() time.Time
}

// Checkout follows a cart's subtotal, applies a discount owned outside the
// cart and turns the cart into an order confirmation.
type Checkout struct {
	cart     *CartStore
	cartID   string
	notifier port.Notifier
	number   func() string
	now      func() time.Time

	mu       sync.Mutex
	subtotal decimal.Decimal
	percent  decimal.Decimal
	totals   *feed.Feed[Totals]
	stop     func()
}

func NewCheckout(cart *CartStore, opts CheckoutOptions) *Checkout {
	if opts.OrderNumber == nil {
		opts.OrderNumber = newOrderNumber
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Checkout{
		cart:     cart,
		cartID:   opts.CartID,
		notifier: opts.Notifier,
		number:   opts.OrderNumber,
		now:      opts.Now,
		totals:   feed.New(Totals{Subtotal: decimal.Zero, DiscountPercent: decimal.Zero, Total: decimal.Zero}),
	}
	c.stop = cart.Subtotal().Subscribe(func(subtotal decimal.Decimal) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subtotal = subtotal
		c.publish()
	})
	return c
}

// Totals publishes subtotal, discount and total whenever either input changes.
func (c *Checkout) Totals() *feed.Feed[Totals] { return c.totals }

func (c *Checkout) Discount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.percent
}

// ApplyDiscount sets the discount percentage. Percentages above 100 are
// accepted; the total bottoms out at zero.
func (c *Checkout) ApplyDiscount(percent decimal.Decimal) error {
	if percent.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrInvalidDiscount, percent)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.percent = percent
	c.publish()
	return nil
}

// publish requires c.mu.
func (c *Checkout) publish() {
	c.totals.Publish(Totals{
		Subtotal:        c.subtotal,
		DiscountPercent: c.percent,
		Total:           Total(c.subtotal, c.percent),
	})
}

// PlaceOrder empties the cart into an order confirmation. Nothing is sent
// anywhere; the order only exists in the returned value.
func (c *Checkout) PlaceOrder(ctx context.Context) (domain.Order, error) {
	lines, err := c.cart.drain(ctx, "checkout")
	if err != nil {
		c.notify(ctx, port.NotificationError, "Checkout failed", "Your order could not be placed, please try again.")
		return domain.Order{}, fmt.Errorf("place order: %w", err)
	}
	if len(lines) == 0 {
		c.notify(ctx, port.NotificationInfo, "Nothing to pay", "Your cart is empty.")
		return domain.Order{}, ErrEmptyCart
	}

	percent := c.Discount()
	subtotal := lines.Subtotal()
	order := domain.Order{
		Number:          c.number(),
		CartID:          c.cartID,
		Lines:           lines,
		Subtotal:        subtotal,
		DiscountPercent: percent,
		Total:           Total(subtotal, percent),
		Status:          domain.OrderStatusPlaced,
		CreatedAt:       c.now(),
	}
	c.notify(ctx, port.NotificationSuccess, "Order "+order.Number, "Your order has been placed successfully.")
	return order, nil
}

// Close stops following the cart.
func (c *Checkout) Close() {
	c.stop()
}

func (c *Checkout) notify(ctx context.Context, level port.NotificationLevel, title, msg string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(ctx, port.Notification{Level: level, Title: title, Message: msg})
}

func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "AW-" + id[:6]
}
