package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
	"github.com/techstore/storefront/validate"
)

// relatedLimit caps the "you may also like" strip on the detail page.
const relatedLimit = 4

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pn ProductNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if pn.Price.IsNegative() {
			err := errors.New("price must not be negative")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		p := Product{
			ID:            validate.GenerateID(),
			Name:          pn.Name,
			Description:   pn.Description,
			Price:         pn.Price,
			Category:      pn.Category,
			ImageURL:      pn.ImageURL,
			StockQuantity: pn.StockQuantity,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := Create(ctx, db, p); err != nil {
			return fmt.Errorf("creating product: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ps, err := List(ctx, db)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleListRelated(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		ps, err := Related(ctx, db, p.Category, p.ID, relatedLimit)
		if err != nil {
			return fmt.Errorf("listing related products: %w", err)
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

func HandleSearch(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := Filter{
			Query:    web.Query(r, "query"),
			Category: web.Query(r, "category"),
		}

		if band := web.Query(r, "price"); band != "" {
			min, max, err := ParsePriceBand(band)
			if err != nil {
				return weberr.BadRequest(err)
			}
			f.PriceMin, f.PriceMax = min, max
		}

		ps, err := Search(ctx, db, f)
		if err != nil {
			return fmt.Errorf("searching products: %w", err)
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

// ParsePriceBand maps a storefront price-band label to inclusive
// bounds. The open-ended band has no upper bound.
func ParsePriceBand(band string) (min, max *decimal.Decimal, err error) {
	bands := map[string][2]string{
		"0-100":    {"0", "100"},
		"100-500":  {"100", "500"},
		"500-1000": {"500", "1000"},
		"1000+":    {"1000", ""},
	}

	b, ok := bands[band]
	if !ok {
		return nil, nil, fmt.Errorf("unknown price band %q", band)
	}

	lo := decimal.RequireFromString(b[0])
	min = &lo

	if b[1] != "" {
		hi := decimal.RequireFromString(b[1])
		max = &hi
	}

	return min, max, nil
}
