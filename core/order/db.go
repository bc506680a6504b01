package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders (order_id, user_id, total_amount, shipping_address, billing_address, payment_method, status, checkout_key, created_at, updated_at)
	VALUES (:order_id, :user_id, :total_amount, :shipping_address, :billing_address, :payment_method, :status, :checkout_key, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items (order_id, product_id, product_name, quantity, price, created_at)
	VALUES (:order_id, :product_id, :product_name, :quantity, :price, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, id); err != nil {
		return Order{}, fmt.Errorf("fetching order[%s]: %w", id, err)
	}

	return ord, nil
}

// FetchByKey finds the order a checkout key was already spent on, if
// the key is newer than the dedup window. sql.ErrNoRows means the key
// is fresh.
func FetchByKey(ctx context.Context, db sqlx.ExtContext, userID string, key string, window time.Duration) (Order, error) {
	const q = `
	SELECT * FROM orders
	WHERE user_id = $1 AND checkout_key = $2 AND created_at > $3`

	cutoff := time.Now().UTC().Add(-window)

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, userID, key, cutoff); err != nil {
		return Order{}, err
	}

	return ord, nil
}

// ReleaseKey detaches a checkout key from any order older than the
// dedup window, freeing the key for a brand new order.
func ReleaseKey(ctx context.Context, db sqlx.ExtContext, userID string, key string, window time.Duration) error {
	const q = `
	UPDATE orders SET checkout_key = NULL
	WHERE user_id = $1 AND checkout_key = $2 AND created_at <= $3`

	cutoff := time.Now().UTC().Add(-window)

	if _, err := db.ExecContext(ctx, q, userID, key, cutoff); err != nil {
		return fmt.Errorf("releasing checkout key of user[%s]: %w", userID, err)
	}

	return nil
}

// FetchItems returns the order's lines in insertion order, i.e. the
// order they held in the submitted cart.
func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY item_id`

	its := []Item{}
	if err := sqlx.SelectContext(ctx, db, &its, q, orderID); err != nil {
		return nil, fmt.Errorf("fetching items of order[%s]: %w", orderID, err)
	}

	return its, nil
}

func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, userID); err != nil {
		return nil, fmt.Errorf("listing orders of user[%s]: %w", userID, err)
	}

	return ords, nil
}
