// Package cart holds the in-session shopping cart and its saved
// server-side snapshot. The Cart value is owned by whoever created it:
// every mutation happens through a method on an explicit value, never
// through shared state.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrIndexOutOfRange is returned by index-based operations instead of
// silently ignoring a bad index.
var ErrIndexOutOfRange = errors.New("cart index out of range")

// LineItem is one named entry in a cart. Identity within a cart is the
// Name string, not a catalog foreign key: the catalog is only consulted
// at checkout time.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (it LineItem) Validate() error {
	if it.Name == "" {
		return errors.New("line item name is required")
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("line item %q has a negative price", it.Name)
	}
	if it.Quantity < 1 {
		return fmt.Errorf("line item %q has quantity below 1", it.Name)
	}
	return nil
}

// Subtotal is price times quantity at full precision.
func (it LineItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is an ordered sequence of line items, unique by name.
type Cart struct {
	Items []LineItem `json:"items"`
}

// Add appends a new line or, when a line with the same name already
// exists, merges into it by summing quantities. Quantities below 1 are
// treated as 1.
func (c *Cart) Add(name string, price decimal.Decimal, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	for i := range c.Items {
		if c.Items[i].Name == name {
			c.Items[i].Quantity += quantity
			return
		}
	}

	c.Items = append(c.Items, LineItem{Name: name, Price: price, Quantity: quantity})
}

// Remove deletes the line at index.
func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrIndexOutOfRange
	}

	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return nil
}

// UpdateQuantity adds delta to the line's quantity. A resulting
// quantity of zero or less removes the line, so a quantity never
// persists at or below zero.
func (c *Cart) UpdateQuantity(index int, delta int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrIndexOutOfRange
	}

	newQty := c.Items[index].Quantity + delta
	if newQty <= 0 {
		return c.Remove(index)
	}

	c.Items[index].Quantity = newQty
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Total sums price times quantity over all lines at full precision.
// Round only for display; checkout receives the unrounded value.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ItemCount is the badge value: the sum of quantities across lines.
func (c Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
