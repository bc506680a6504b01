package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
	"github.com/techstore/storefront/core/claims"
	"github.com/techstore/storefront/validate"
)

const foreignKeyViolation = "23503"

func HandleListByProduct(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		revs, err := ListByProduct(ctx, db, productID)
		if err != nil {
			return fmt.Errorf("listing reviews: %w", err)
		}

		return web.Respond(ctx, w, revs, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID := web.Param(r, "id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		var rn ReviewNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		rev := Review{
			ID:        validate.GenerateID(),
			ProductID: productID,
			UserID:    clm.UserID,
			Rating:    rn.Rating,
			Comment:   rn.Comment,
			CreatedAt: time.Now().UTC(),
		}

		if err := Create(ctx, db, rev); err != nil {
			var pqerr *pq.Error
			if errors.As(err, &pqerr) && pqerr.Code == foreignKeyViolation {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("creating review: %w", err)
		}

		return web.Respond(ctx, w, rev, http.StatusCreated)
	}
}
