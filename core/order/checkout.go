package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/techstore/storefront/core/cart"
	"github.com/techstore/storefront/core/product"
	"github.com/techstore/storefront/database"
	"github.com/techstore/storefront/validate"
)

// ErrEmptyCart rejects a checkout with no lines before anything is
// written.
var ErrEmptyCart = errors.New("the submitted cart is empty")

// ErrInvalidCart marks a submitted line that fails validation, e.g. a
// quantity below 1 or a negative price.
var ErrInvalidCart = errors.New("the submitted cart is invalid")

// The storefront collects shipping and payment details on a later
// screen; until that exists the ledger records fixed placeholders.
const (
	placeholderAddress = "Sample Address"
	placeholderPayment = "Credit Card"
)

// uniqueViolation is the postgres error code raised when two checkouts
// race on the same checkout key.
const uniqueViolation = "23505"

// Checkout validates the submitted cart and commits it as one order
// plus its line items in a single transaction. Either every row exists
// afterwards or none does.
//
// A non-empty key makes the checkout idempotent: resubmitting the same
// key within window returns the order the key was first spent on
// instead of creating a duplicate. An empty key skips deduplication.
func Checkout(ctx context.Context, db *sqlx.DB, userID string, key string, items []cart.LineItem, window time.Duration) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	for _, it := range items {
		if err := it.Validate(); err != nil {
			return Order{}, fmt.Errorf("%w: %s", ErrInvalidCart, err)
		}
	}

	if key != "" {
		ord, err := FetchByKey(ctx, db, userID, key, window)
		if err == nil {
			return ord, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("checking checkout key: %w", err)
		}

		// The key may still sit on an order older than the window;
		// free it so this submission opens a brand new order instead
		// of tripping the unique index.
		if err := ReleaseKey(ctx, db, userID, key, window); err != nil {
			return Order{}, err
		}
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}

	now := time.Now().UTC()
	ord := Order{
		ID:              validate.GenerateID(),
		UserID:          userID,
		TotalAmount:     total,
		ShippingAddress: placeholderAddress,
		BillingAddress:  placeholderAddress,
		PaymentMethod:   placeholderPayment,
		Status:          Pending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if key != "" {
		ord.CheckoutKey = &key
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, ord); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		for _, line := range items {
			it := Item{
				OrderID:     ord.ID,
				ProductName: line.Name,
				Quantity:    line.Quantity,
				Price:       line.Price,
				CreatedAt:   now,
			}

			// Best effort: a cart line that matches nothing in the
			// catalog is still sold under its snapshot name.
			p, ok, err := product.FirstByName(ctx, tx, line.Name)
			if err != nil {
				return err
			}
			if ok {
				it.ProductID = &p.ID
			}

			if err := CreateItem(ctx, tx, it); err != nil {
				return fmt.Errorf("creating item[%s]: %w", line.Name, err)
			}
		}

		return nil
	})

	if err != nil {
		// Lost a race on the checkout key: the other submission won,
		// so return its order rather than reporting a failure.
		var pqerr *pq.Error
		if key != "" && errors.As(err, &pqerr) && pqerr.Code == uniqueViolation {
			won, ferr := FetchByKey(ctx, db, userID, key, window)
			if ferr != nil {
				return Order{}, fmt.Errorf("recovering keyed order for user[%s]: %w", userID, ferr)
			}
			return won, nil
		}
		return Order{}, fmt.Errorf("committing order for user[%s]: %w", userID, err)
	}

	return ord, nil
}
