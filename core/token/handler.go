package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/techstore/storefront/api/background"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
	"github.com/techstore/storefront/core/user"
	"github.com/techstore/storefront/database"
	"github.com/techstore/storefront/validate"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers the recovery token to the user.
type Mailer interface {
	SendRecovery(to string, token string) error
}

// HandleRecoveryToken mails a recovery token to the given address. The
// response is identical whether or not the address has an account, so
// the endpoint can't be used to enumerate users. Delivery happens in
// the background to keep the response time independent of the SMTP
// round trip.
func HandleRecoveryToken(db *sqlx.DB, mailer Mailer, ttl time.Duration, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		accepted := struct {
			Message string `json:"message"`
		}{"if the address has an account, a recovery email is on its way"}

		usr, err := user.FetchByEmail(ctx, db, req.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return web.Respond(ctx, w, accepted, http.StatusAccepted)
			}
			return fmt.Errorf("fetching user by email: %w", err)
		}

		plaintext, err := Generate(ctx, db, usr.ID, ScopeRecovery, ttl)
		if err != nil {
			return fmt.Errorf("generating recovery token: %w", err)
		}

		bg.Add(func() error {
			if err := mailer.SendRecovery(usr.Email, plaintext); err != nil {
				return fmt.Errorf("sending recovery email to user[%s]: %w", usr.ID, err)
			}
			return nil
		})

		return web.Respond(ctx, w, accepted, http.StatusAccepted)
	}
}

// HandleRecovery resets the password of whoever holds a valid token.
// The new hash and the token burn commit together: a half-applied
// reset cannot leave a spent token alive.
func HandleRecovery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Token           string `json:"token" validate:"required"`
			Password        string `json:"password" validate:"required,min=8"`
			ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
		}
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		userID, err := ConsumeUserID(ctx, db, req.Token, ScopeRecovery)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				msg := "invalid or expired recovery token"
				return weberr.NewError(err, msg, http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("resolving recovery token: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.UpdatePassword(ctx, tx, userID, hash); err != nil {
				return err
			}
			return DeleteForUser(ctx, tx, userID, ScopeRecovery)
		})
		if err != nil {
			return fmt.Errorf("resetting password of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
