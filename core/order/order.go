// Package order converts a submitted cart into a persisted order.
//
// The transaction price of every line is the client-submitted price,
// recorded as a snapshot; the catalog is consulted only to attach a
// best-effort product reference. Re-pricing against the catalog at
// checkout is an explicit non-feature of this storefront.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Shipped    Status = "shipped"
	Delivered  Status = "delivered"
	Cancelled  Status = "cancelled"
)

type Order struct {
	ID              string          `json:"id" db:"order_id"`
	UserID          string          `json:"userId" db:"user_id"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	ShippingAddress string          `json:"shippingAddress" db:"shipping_address"`
	BillingAddress  string          `json:"billingAddress" db:"billing_address"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	Status          Status          `json:"status" db:"status"`
	CheckoutKey     *string         `json:"-" db:"checkout_key"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// Item is a line-item snapshot. ProductID may be nil when the cart
// line's name matched nothing in the catalog; ProductName stays
// authoritative either way.
type Item struct {
	ItemID      int64           `json:"-" db:"item_id"`
	OrderID     string          `json:"orderId" db:"order_id"`
	ProductID   *string         `json:"productId" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}
