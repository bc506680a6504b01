package cart

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAddMergesByName(t *testing.T) {
	var c Cart
	c.Add("X", d("10"), 1)
	c.Add("X", d("10"), 2)

	want := []LineItem{{Name: "X", Price: d("10"), Quantity: 3}}
	if diff := cmp.Diff(want, c.Items); diff != "" {
		t.Fatalf("cart items mismatch (-want +got):\n%s", diff)
	}
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	var c Cart
	c.Add("X", d("2.50"), 0)

	if got := c.Items[0].Quantity; got != 1 {
		t.Fatalf("expected quantity 1, got %d", got)
	}
}

func TestTotalFollowsAllMutations(t *testing.T) {
	var c Cart
	c.Add("A", d("5.00"), 2)
	c.Add("B", d("3.00"), 1)
	c.Add("C", d("0.10"), 3)

	if err := c.Remove(1); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateQuantity(1, 4); err != nil {
		t.Fatal(err)
	}

	// A: 5.00 x 2, C: 0.10 x 7
	if got, want := c.Total(), d("10.70"); !got.Equal(want) {
		t.Fatalf("total: expected %s, got %s", want, got)
	}

	for _, it := range c.Items {
		if it.Quantity <= 0 {
			t.Fatalf("line %q survived with quantity %d", it.Name, it.Quantity)
		}
	}
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	var c Cart
	c.Add("A", d("5"), 2)
	c.Add("B", d("3"), 1)

	if err := c.UpdateQuantity(0, -2); err != nil {
		t.Fatal(err)
	}

	if len(c.Items) != 1 || c.Items[0].Name != "B" {
		t.Fatalf("expected only line B to survive, got %+v", c.Items)
	}

	if err := c.UpdateQuantity(0, -5); err != nil {
		t.Fatal(err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Items)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	var c Cart
	c.Add("A", d("5"), 1)

	if err := c.Remove(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Remove(1): expected ErrIndexOutOfRange, got %v", err)
	}
	if err := c.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Remove(-1): expected ErrIndexOutOfRange, got %v", err)
	}
	if err := c.UpdateQuantity(3, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("UpdateQuantity(3): expected ErrIndexOutOfRange, got %v", err)
	}

	// A failed operation must not disturb the cart.
	if len(c.Items) != 1 || c.Items[0].Quantity != 1 {
		t.Fatalf("cart changed by failed operation: %+v", c.Items)
	}
}

func TestClear(t *testing.T) {
	var c Cart
	c.Add("A", d("5"), 1)
	c.Clear()

	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Items)
	}
	if !c.Total().IsZero() {
		t.Fatalf("expected zero total, got %s", c.Total())
	}
}

func TestItemCount(t *testing.T) {
	var c Cart
	if c.ItemCount() != 0 {
		t.Fatal("empty cart must have a zero badge")
	}

	c.Add("A", d("5"), 2)
	c.Add("B", d("3"), 1)
	c.Add("A", d("5"), 1)

	if got := c.ItemCount(); got != 4 {
		t.Fatalf("expected badge 4, got %d", got)
	}
}

func TestLineItemValidate(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		ok   bool
	}{
		{"valid", LineItem{Name: "A", Price: d("1"), Quantity: 1}, true},
		{"free item", LineItem{Name: "A", Price: d("0"), Quantity: 1}, true},
		{"missing name", LineItem{Price: d("1"), Quantity: 1}, false},
		{"negative price", LineItem{Name: "A", Price: d("-1"), Quantity: 1}, false},
		{"zero quantity", LineItem{Name: "A", Price: d("1"), Quantity: 0}, false},
	}

	for _, tt := range tests {
		err := tt.item.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

type memStorage struct {
	saved []Cart
	cart  Cart
}

func (m *memStorage) Load() (Cart, error) { return m.cart, nil }

func (m *memStorage) Save(c Cart) error {
	m.cart = c
	m.saved = append(m.saved, c)
	return nil
}

func TestSessionPersistsEveryMutation(t *testing.T) {
	st := &memStorage{}
	s, err := NewSession(st)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Add("A", d("5"), 1); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateQuantity(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	if len(st.saved) != 3 {
		t.Fatalf("expected 3 persisted snapshots, got %d", len(st.saved))
	}
	if s.Badge() != 0 {
		t.Fatalf("expected badge 0 after clear, got %d", s.Badge())
	}
}

func TestSessionHydratesFromStorage(t *testing.T) {
	st := &memStorage{cart: Cart{Items: []LineItem{{Name: "A", Price: d("5"), Quantity: 2}}}}
	s, err := NewSession(st)
	if err != nil {
		t.Fatal(err)
	}

	if s.Badge() != 2 {
		t.Fatalf("expected badge 2 after hydration, got %d", s.Badge())
	}

	// The returned cart is a copy: mutating it must not leak back.
	c := s.Cart()
	c.Clear()
	if s.Badge() != 2 {
		t.Fatal("mutating the returned copy changed the session cart")
	}
}
