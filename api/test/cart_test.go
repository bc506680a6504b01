package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/techstore/storefront/core/cart"
)

func TestCartSync(t *testing.T) {
	env, err := NewTestEnv(t, "cart_sync_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &checkoutTest{env}

	eq := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

	decode := func(t *testing.T, raw json.RawMessage) []cart.LineItem {
		t.Helper()
		var items []cart.LineItem
		if err := json.Unmarshal(raw, &items); err != nil {
			t.Fatalf("decoding cart payload: %v", err)
		}
		return items
	}

	t.Run("requires authentication", func(t *testing.T) {
		for _, action := range []string{"save_cart", "get_cart"} {
			code, reply := ct.sync(t, map[string]any{"action": action}, "")
			if code != http.StatusUnauthorized || !reply.LoginRequired {
				t.Fatalf("%s: expected a login_required reply, got %d %+v", action, code, reply)
			}
		}
	})

	t.Run("unknown action needs no session", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "refund_everything"}, "")
		if code != http.StatusBadRequest || reply.LoginRequired {
			t.Fatalf("expected a plain 400, got %d %+v", code, reply)
		}
	})

	if err := env.Login(UserEmail, UserPass); err != nil {
		t.Fatal(err)
	}

	t.Run("get before any save is an empty cart", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "get_cart"}, "")
		if code != http.StatusOK || !reply.Success {
			t.Fatalf("expected success, got %d %+v", code, reply)
		}
		if items := decode(t, reply.Cart); len(items) != 0 {
			t.Fatalf("expected an empty cart, got %+v", items)
		}
	})

	t.Run("second save fully replaces the first", func(t *testing.T) {
		first := []map[string]any{{"name": "A", "price": 5, "quantity": 2}}
		second := []map[string]any{
			{"name": "B", "price": 3, "quantity": 1},
			{"name": "C", "price": 1.5, "quantity": 4},
		}

		if code, _ := ct.sync(t, map[string]any{"action": "save_cart", "cart": first}, ""); code != http.StatusOK {
			t.Fatalf("first save: status %d", code)
		}
		if code, _ := ct.sync(t, map[string]any{"action": "save_cart", "cart": second}, ""); code != http.StatusOK {
			t.Fatalf("second save: status %d", code)
		}

		if got := ct.countRows(t, "saved_carts"); got != 1 {
			t.Fatalf("expected exactly 1 saved cart row, got %d", got)
		}

		_, reply := ct.sync(t, map[string]any{"action": "get_cart"}, "")
		want := []cart.LineItem{
			{Name: "B", Price: decimal.RequireFromString("3"), Quantity: 1},
			{Name: "C", Price: decimal.RequireFromString("1.5"), Quantity: 4},
		}
		if diff := cmp.Diff(want, decode(t, reply.Cart), eq); diff != "" {
			t.Fatalf("saved cart mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("saving an empty cart clears the snapshot", func(t *testing.T) {
		if code, _ := ct.sync(t, map[string]any{"action": "save_cart", "cart": []any{}}, ""); code != http.StatusOK {
			t.Fatalf("empty save: status %d", code)
		}

		if got := ct.countRows(t, "saved_carts"); got != 0 {
			t.Fatalf("expected no saved cart row, got %d", got)
		}

		_, reply := ct.sync(t, map[string]any{"action": "get_cart"}, "")
		if items := decode(t, reply.Cart); len(items) != 0 {
			t.Fatalf("expected an empty cart, got %+v", items)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{"action": "refund_everything"}, "")
		if code != http.StatusBadRequest || reply.Success {
			t.Fatalf("expected a 400 failure, got %d %+v", code, reply)
		}
	})

	t.Run("missing action", func(t *testing.T) {
		code, reply := ct.sync(t, map[string]any{}, "")
		if code != http.StatusBadRequest || reply.Success {
			t.Fatalf("expected a 400 failure, got %d %+v", code, reply)
		}
	})
}
