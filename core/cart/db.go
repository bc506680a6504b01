package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/techstore/storefront/database"
)

// Replace swaps the user's saved cart for the submitted one. The old
// snapshot is always deleted; an empty cart leaves no row, so "no saved
// cart" and "saved an empty cart" are indistinguishable on purpose.
func Replace(ctx context.Context, db *sqlx.DB, userID string, items []LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart for user[%s]: %w", userID, err)
	}

	const del = `DELETE FROM saved_carts WHERE user_id = $1`

	const ins = `
	INSERT INTO saved_carts (user_id, cart_data, updated_at)
	VALUES ($1, $2, $3)`

	tx := func(tx sqlx.ExtContext) error {
		if _, err := tx.ExecContext(ctx, del, userID); err != nil {
			return fmt.Errorf("deleting saved cart: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, ins, userID, data, time.Now().UTC()); err != nil {
			return fmt.Errorf("inserting saved cart: %w", err)
		}
		return nil
	}

	return database.Transaction(db, tx)
}

// Fetch returns the user's saved cart, or an empty slice when there is
// none. A missing snapshot is never an error.
func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) ([]LineItem, error) {
	const q = `SELECT cart_data FROM saved_carts WHERE user_id = $1`

	var data []byte
	if err := sqlx.GetContext(ctx, db, &data, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []LineItem{}, nil
		}
		return nil, fmt.Errorf("fetching saved cart: %w", err)
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding saved cart: %w", err)
	}

	return items, nil
}
