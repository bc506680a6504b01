package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users (user_id, fullname, username, email, role, password_hash, created_at, updated_at)
	VALUES (:user_id, :fullname, :username, :email, :role, :password_hash, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, id); err != nil {
		return User{}, err
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		return User{}, err
	}

	return usr, nil
}

func UpdatePassword(ctx context.Context, db sqlx.ExtContext, userID string, hash []byte) error {
	const q = `
	UPDATE users SET
	password_hash = $2,
	updated_at = $3,
	version = version + 1
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating password of user[%s]: %w", userID, err)
	}

	return nil
}
