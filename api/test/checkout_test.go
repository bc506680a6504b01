package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/techstore/storefront/core/order"
	"github.com/techstore/storefront/core/product"
	"github.com/techstore/storefront/database"
	"github.com/techstore/storefront/validate"
)

type checkoutTest struct {
	*TestEnv
}

type syncReply struct {
	Success       bool            `json:"success"`
	LoginRequired bool            `json:"login_required"`
	OrderID       string          `json:"order_id"`
	Message       string          `json:"message"`
	Cart          json.RawMessage `json:"cart"`
}

func (ct *checkoutTest) sync(t *testing.T, body map[string]any, key string) (int, syncReply) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPost, ct.URL+"/cart/sync", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")
	if key != "" {
		r.Header.Set(order.IdempotencyHeader, key)
	}

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	var reply syncReply
	if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
		t.Fatalf("decoding sync reply: %v", err)
	}

	return w.StatusCode, reply
}

func (ct *checkoutTest) seedProduct(t *testing.T, name string, price string) product.Product {
	t.Helper()

	now := time.Now().UTC()
	p := product.Product{
		ID:          validate.GenerateID(),
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Category:    "electronics",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Create(context.Background(), ct.DB, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func (ct *checkoutTest) countRows(t *testing.T, table string) int {
	t.Helper()

	var n int
	if err := ct.DB.Get(&n, "SELECT count(*) FROM "+table); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCheckout(t *testing.T) {
	env, err := NewTestEnv(t, "checkout_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	pa := ct.seedProduct(t, "A", "5.00")
	_ = ct.seedProduct(t, "B", "3.00")

	cart := []map[string]any{
		{"name": "A", "price": 5, "quantity": 2},
		{"name": "B", "price": 3, "quantity": 1},
	}

	t.Run("unauthenticated", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": cart}, "")
		if code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", code)
		}
		if reply.Success || !reply.LoginRequired {
			t.Fatalf("expected a login_required reply, got %+v", reply)
		}
		if got := ct.countRows(t, "orders"); got != 0 {
			t.Fatalf("unauthenticated checkout wrote %d orders", got)
		}
	})

	if err := env.Login(UserEmail, UserPass); err != nil {
		t.Fatal(err)
	}

	t.Run("empty cart", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": []any{}}, "")
		if code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", code)
		}
		if reply.Success {
			t.Fatal("empty cart checkout must not succeed")
		}
		if got := ct.countRows(t, "orders"); got != 0 {
			t.Fatalf("empty cart checkout wrote %d orders", got)
		}
		if got := ct.countRows(t, "order_items"); got != 0 {
			t.Fatalf("empty cart checkout wrote %d items", got)
		}
	})

	t.Run("commits order and snapshots", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": cart}, "")
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if !reply.Success || reply.OrderID == "" {
			t.Fatalf("expected a successful reply with an order id, got %+v", reply)
		}

		ord, err := order.Fetch(context.Background(), ct.DB, reply.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if !ord.TotalAmount.Equal(decimal.RequireFromString("13.00")) {
			t.Fatalf("expected total 13.00, got %s", ord.TotalAmount)
		}
		if ord.Status != order.Pending {
			t.Fatalf("expected status pending, got %s", ord.Status)
		}

		items, err := order.FetchItems(context.Background(), ct.DB, ord.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].ProductName != "A" || items[1].ProductName != "B" {
			t.Fatalf("items out of submission order: %+v", items)
		}

		byName := map[string]order.Item{}
		for _, it := range items {
			byName[it.ProductName] = it
		}

		a := byName["A"]
		if a.Quantity != 2 || !a.Price.Equal(decimal.RequireFromString("5")) {
			t.Fatalf("item A snapshot mismatch: %+v", a)
		}
		if a.ProductID == nil || *a.ProductID != pa.ID {
			t.Fatalf("item A should resolve to product %s, got %v", pa.ID, a.ProductID)
		}

		b := byName["B"]
		if b.Quantity != 1 || !b.Price.Equal(decimal.RequireFromString("3")) {
			t.Fatalf("item B snapshot mismatch: %+v", b)
		}
	})

	t.Run("unknown product still sells", func(t *testing.T) {
		ghost := []map[string]any{{"name": "Not In Catalog", "price": 2.5, "quantity": 2}}

		code, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": ghost}, "")
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}

		items, err := order.FetchItems(context.Background(), ct.DB, reply.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
		if items[0].ProductID != nil {
			t.Fatalf("expected a nil product reference, got %v", *items[0].ProductID)
		}
		if items[0].ProductName != "Not In Catalog" {
			t.Fatalf("name snapshot mismatch: %q", items[0].ProductName)
		}

		ord, err := order.Fetch(context.Background(), ct.DB, reply.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if !ord.TotalAmount.Equal(decimal.RequireFromString("5.00")) {
			t.Fatalf("expected total 5.00, got %s", ord.TotalAmount)
		}
	})

	t.Run("client price is trusted", func(t *testing.T) {
		// The catalog says A costs 5.00; the client claims 1.00. The
		// submitted price is the recorded transaction price.
		cheap := []map[string]any{{"name": "A", "price": 1, "quantity": 1}}

		_, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": cheap}, "")
		if !reply.Success {
			t.Fatalf("expected success, got %+v", reply)
		}

		items, err := order.FetchItems(context.Background(), ct.DB, reply.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if !items[0].Price.Equal(decimal.RequireFromString("1")) {
			t.Fatalf("expected the submitted price 1, got %s", items[0].Price)
		}
	})

	t.Run("invalid quantity rejected", func(t *testing.T) {
		before := ct.countRows(t, "orders")

		bad := []map[string]any{{"name": "A", "price": 5, "quantity": 0}}
		code, reply := ct.sync(t, map[string]any{"action": "checkout", "cart": bad}, "")
		if code != http.StatusUnprocessableEntity || reply.Success {
			t.Fatalf("expected a 422 failure, got %d %+v", code, reply)
		}

		if got := ct.countRows(t, "orders"); got != before {
			t.Fatalf("rejected checkout changed order count: %d -> %d", before, got)
		}
	})
}

func TestCheckoutIdempotency(t *testing.T) {
	env, err := NewTestEnv(t, "checkout_idem_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	if err := env.Login(UserEmail, UserPass); err != nil {
		t.Fatal(err)
	}

	cart := []map[string]any{{"name": "A", "price": 5, "quantity": 1}}
	body := map[string]any{"action": "checkout", "cart": cart}

	t.Run("same key replays the same order", func(t *testing.T) {
		_, first := ct.sync(t, body, "key-1")
		_, second := ct.sync(t, body, "key-1")

		if !first.Success || !second.Success {
			t.Fatalf("expected both submissions to succeed: %+v / %+v", first, second)
		}
		if first.OrderID != second.OrderID {
			t.Fatalf("replay produced a new order: %s != %s", first.OrderID, second.OrderID)
		}
		if got := ct.countRows(t, "orders"); got != 1 {
			t.Fatalf("expected 1 order, got %d", got)
		}
	})

	t.Run("different keys produce independent orders", func(t *testing.T) {
		_, a := ct.sync(t, body, "key-2")
		_, b := ct.sync(t, body, "key-3")

		if a.OrderID == b.OrderID {
			t.Fatal("distinct keys must not share an order")
		}
	})

	t.Run("key expires with the window", func(t *testing.T) {
		_, first := ct.sync(t, body, "key-4")
		if !first.Success {
			t.Fatalf("expected success, got %+v", first)
		}

		// Age the order past the 24h dedup window.
		if _, err := ct.DB.Exec(
			"UPDATE orders SET created_at = created_at - interval '48 hours' WHERE order_id = $1",
			first.OrderID,
		); err != nil {
			t.Fatal(err)
		}

		_, second := ct.sync(t, body, "key-4")
		if !second.Success {
			t.Fatalf("beyond-window resubmission failed: %+v", second)
		}
		if second.OrderID == first.OrderID {
			t.Fatal("beyond-window resubmission must open a brand new order")
		}
	})

	t.Run("no key keeps duplicate-on-retry behavior", func(t *testing.T) {
		before := ct.countRows(t, "orders")

		_, a := ct.sync(t, body, "")
		_, b := ct.sync(t, body, "")
		if !a.Success || !b.Success {
			t.Fatalf("expected both submissions to succeed: %+v / %+v", a, b)
		}
		if a.OrderID == b.OrderID {
			t.Fatal("keyless submissions must stay independent")
		}

		if got := ct.countRows(t, "orders"); got != before+2 {
			t.Fatalf("expected %d orders, got %d", before+2, got)
		}
	})
}

func TestCheckoutAtomicity(t *testing.T) {
	env, err := NewTestEnv(t, "checkout_atomic_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	var userID string
	if err := ct.DB.Get(&userID, "SELECT user_id FROM users WHERE email = $1", UserEmail); err != nil {
		t.Fatal(err)
	}

	// Fail the unit after the order insert: the ledger must keep
	// neither the order nor any of its items.
	boom := errors.New("item insert failed")
	now := time.Now().UTC()

	err = database.Transaction(ct.DB, func(tx sqlx.ExtContext) error {
		ord := order.Order{
			ID:              validate.GenerateID(),
			UserID:          userID,
			TotalAmount:     decimal.RequireFromString("10"),
			ShippingAddress: "Sample Address",
			BillingAddress:  "Sample Address",
			PaymentMethod:   "Credit Card",
			Status:          order.Pending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := order.Create(context.Background(), tx, ord); err != nil {
			return err
		}

		it := order.Item{
			OrderID:     ord.ID,
			ProductName: "A",
			Quantity:    1,
			Price:       decimal.RequireFromString("10"),
			CreatedAt:   now,
		}
		if err := order.CreateItem(context.Background(), tx, it); err != nil {
			return err
		}

		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the injected failure, got %v", err)
	}

	if got := ct.countRows(t, "orders"); got != 0 {
		t.Fatalf("rolled back unit left %d orders", got)
	}
	if got := ct.countRows(t, "order_items"); got != 0 {
		t.Fatalf("rolled back unit left %d order items", got)
	}
}
