package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/techstore/storefront/random"
)

// Generate mints a fresh token for the user and stores its hash. The
// returned plaintext goes into the recovery email and is never
// persisted.
func Generate(ctx context.Context, db sqlx.ExtContext, userID string, scope string, ttl time.Duration) (string, error) {
	plaintext, err := random.StringSecure(plaintextLength)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	tok := Token{
		Hash:   hash(plaintext),
		UserID: userID,
		Scope:  scope,
		Expiry: time.Now().UTC().Add(ttl),
	}

	const q = `
	INSERT INTO tokens (token_hash, user_id, scope, expiry)
	VALUES (:token_hash, :user_id, :scope, :expiry)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tok); err != nil {
		return "", fmt.Errorf("inserting token: %w", err)
	}

	return plaintext, nil
}

// ConsumeUserID resolves an unexpired plaintext token to its user.
// sql.ErrNoRows means the token is unknown, expired, or out of scope.
func ConsumeUserID(ctx context.Context, db sqlx.ExtContext, plaintext string, scope string) (string, error) {
	const q = `
	SELECT user_id FROM tokens
	WHERE token_hash = $1 AND scope = $2 AND expiry > $3`

	var userID string
	if err := sqlx.GetContext(ctx, db, &userID, q, hash(plaintext), scope, time.Now().UTC()); err != nil {
		return "", err
	}

	return userID, nil
}

// DeleteForUser burns every token of the user within a scope, so a
// spent recovery token (and any earlier one) can't be replayed.
func DeleteForUser(ctx context.Context, db sqlx.ExtContext, userID string, scope string) error {
	const q = `DELETE FROM tokens WHERE user_id = $1 AND scope = $2`

	if _, err := db.ExecContext(ctx, q, userID, scope); err != nil {
		return fmt.Errorf("deleting tokens of user[%s]: %w", userID, err)
	}

	return nil
}
