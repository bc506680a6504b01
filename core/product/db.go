package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	INSERT INTO products (product_id, name, description, price, category, image_url, stock_quantity, created_at, updated_at)
	VALUES (:product_id, :name, :description, :price, :category, :image_url, :stock_quantity, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, id); err != nil {
		return Product{}, fmt.Errorf("fetching product[%s]: %w", id, err)
	}

	return p, nil
}

// FirstByName resolves a cart line's display name to a catalog product.
// At most one product is used even when names collide; the oldest row
// wins so resolution is stable. The boolean reports whether a match
// exists: absence is a normal outcome, not an error.
func FirstByName(ctx context.Context, db sqlx.ExtContext, name string) (Product, bool, error) {
	const q = `SELECT * FROM products WHERE name = $1 ORDER BY created_at LIMIT 1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, false, nil
		}
		return Product{}, false, fmt.Errorf("resolving product by name[%s]: %w", name, err)
	}

	return p, true, nil
}

func List(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `SELECT * FROM products ORDER BY name`

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	return ps, nil
}

// Search filters the catalog. The query matches name or description
// case-insensitively, category is exact, and the price bounds are
// inclusive. Filters combine with AND; an empty filter lists everything.
func Search(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Product, error) {
	q := `SELECT * FROM products WHERE 1=1`
	var args []interface{}

	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		p := next()
		q += ` AND (name ILIKE ` + p + ` OR description ILIKE ` + p + `)`
	}

	if f.Category != "" {
		args = append(args, f.Category)
		q += ` AND category = ` + next()
	}

	if f.PriceMin != nil {
		args = append(args, *f.PriceMin)
		q += ` AND price >= ` + next()
	}

	if f.PriceMax != nil {
		args = append(args, *f.PriceMax)
		q += ` AND price <= ` + next()
	}

	q += ` ORDER BY name`

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, args...); err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}

	return ps, nil
}

// Related returns up to limit products sharing a category, excluding
// the product itself.
func Related(ctx context.Context, db sqlx.ExtContext, category string, excludeID string, limit int) ([]Product, error) {
	const q = `
	SELECT * FROM products
	WHERE category = $1 AND product_id != $2
	ORDER BY created_at DESC
	LIMIT $3`

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, category, excludeID, limit); err != nil {
		return nil, fmt.Errorf("listing related products: %w", err)
	}

	return ps, nil
}
