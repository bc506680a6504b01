package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
	"github.com/techstore/storefront/core/cart"
	"github.com/techstore/storefront/core/claims"
	"github.com/techstore/storefront/validate"
)

// IdempotencyHeader carries the client-generated checkout key. A
// missing header means the client accepts duplicate orders on retry.
const IdempotencyHeader = "Idempotency-Key"

const (
	actionCheckout = "checkout"
	actionSaveCart = "save_cart"
	actionGetCart  = "get_cart"
)

// SyncRequest is the cart boundary payload, dispatched on Action.
type SyncRequest struct {
	Action string          `json:"action"`
	Cart   []cart.LineItem `json:"cart"`
}

// SyncResponse is the reply for checkout and save_cart.
type SyncResponse struct {
	Success       bool   `json:"success"`
	LoginRequired bool   `json:"login_required,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CartResponse is the get_cart reply. Cart is always present, so "no
// saved cart" reads as an empty cart rather than an error.
type CartResponse struct {
	Success bool            `json:"success"`
	Cart    []cart.LineItem `json:"cart"`
}

// HandleCartSync is the single cart boundary: one POST endpoint whose
// body names the action. The action is validated before the session,
// so an invalid action reads the same with or without a login; a known
// action without a session answers with login_required, letting the
// client redirect without dropping the cart.
func HandleCartSync(db *sqlx.DB, window time.Duration, debug bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req SyncRequest
		if err := web.Decode(w, r, &req); err != nil {
			return failure(fmt.Errorf("unable to decode payload: %w", err), "Invalid JSON data", http.StatusBadRequest, debug)
		}

		switch req.Action {
		case actionCheckout, actionSaveCart, actionGetCart:
		default:
			err := fmt.Errorf("unknown action %q", req.Action)
			return failure(err, "Invalid action", http.StatusBadRequest, debug)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return loginRequired()
		}

		switch req.Action {
		case actionCheckout:
			return handleCheckout(ctx, w, r, db, clm.UserID, req.Cart, window, debug)
		case actionSaveCart:
			return handleSaveCart(ctx, w, db, clm.UserID, req.Cart, debug)
		default:
			return handleGetCart(ctx, w, db, clm.UserID, debug)
		}
	}
}

func handleCheckout(ctx context.Context, w http.ResponseWriter, r *http.Request, db *sqlx.DB, userID string, items []cart.LineItem, window time.Duration, debug bool) error {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	ord, err := Checkout(ctx, db, userID, key, items, window)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return failure(err, "Your cart is empty", http.StatusUnprocessableEntity, debug)
		}
		if errors.Is(err, ErrInvalidCart) {
			return failure(err, "Your cart contains an invalid item", http.StatusUnprocessableEntity, debug)
		}
		return failure(err, "An error occurred while processing your order. Please try again later.", http.StatusInternalServerError, debug)
	}

	res := SyncResponse{
		Success: true,
		OrderID: ord.ID,
		Message: "Order placed successfully",
	}
	return web.Respond(ctx, w, res, http.StatusOK)
}

func handleSaveCart(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, userID string, items []cart.LineItem, debug bool) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return failure(err, "Your cart contains an invalid item", http.StatusUnprocessableEntity, debug)
		}
	}

	if err := cart.Replace(ctx, db, userID, items); err != nil {
		return failure(err, "An error occurred while saving your cart. Please try again later.", http.StatusInternalServerError, debug)
	}

	res := SyncResponse{Success: true, Message: "Cart saved successfully"}
	return web.Respond(ctx, w, res, http.StatusOK)
}

func handleGetCart(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, userID string, debug bool) error {
	items, err := cart.Fetch(ctx, db, userID)
	if err != nil {
		return failure(err, "An error occurred while retrieving your cart. Please try again later.", http.StatusInternalServerError, debug)
	}

	return web.Respond(ctx, w, CartResponse{Success: true, Cart: items}, http.StatusOK)
}

// loginRequired is the distinguishable authentication-required signal:
// unlike a generic failure it carries login_required so the client can
// redirect to the login page without losing the cart.
func loginRequired() error {
	err := errors.New("user not authenticated")
	body := SyncResponse{
		Success:       false,
		LoginRequired: true,
		Message:       "Please log in to complete your purchase",
	}
	return weberr.Wrap(&weberr.RequestError{Err: err}, weberr.WithResponse(body, http.StatusUnauthorized))
}

// failure wraps err with a SyncResponse body. The raw error only
// reaches the caller in debug mode; otherwise it is logged and the
// message stays generic.
func failure(err error, msg string, status int, debug bool) error {
	if debug {
		msg = msg + " (" + err.Error() + ")"
	}
	body := SyncResponse{Success: false, Message: msg}
	return weberr.Wrap(&weberr.RequestError{Err: err}, weberr.WithResponse(body, status))
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ords, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

// HandleShow returns one order with its line items. Admins can read
// any order, everyone else only their own.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			return weberr.NotFound(err)
		}

		if !claims.IsAdmin(ctx) && !claims.IsUser(ctx, ord.UserID) {
			return weberr.NotFound(errors.New("order belongs to another user"))
		}

		items, err := FetchItems(ctx, db, ord.ID)
		if err != nil {
			return fmt.Errorf("fetching order items: %w", err)
		}

		res := struct {
			Order
			Items []Item `json:"items"`
		}{ord, items}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
