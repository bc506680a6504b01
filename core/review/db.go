package review

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, rev Review) error {
	const q = `
	INSERT INTO reviews (review_id, product_id, user_id, rating, comment, created_at)
	VALUES (:review_id, :product_id, :user_id, :rating, :comment, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, rev); err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}

	return nil
}

func ListByProduct(ctx context.Context, db sqlx.ExtContext, productID string) ([]Review, error) {
	const q = `SELECT * FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`

	revs := []Review{}
	if err := sqlx.SelectContext(ctx, db, &revs, q, productID); err != nil {
		return nil, fmt.Errorf("listing reviews of product[%s]: %w", productID, err)
	}

	return revs, nil
}
