package cart

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Storage persists a whole cart between visits, the way a browser's
// local storage would. Implementations must treat an absent cart as an
// empty one, never as an error.
type Storage interface {
	Load() (Cart, error)
	Save(Cart) error
}

// FileStorage keeps the cart as a JSON file.
type FileStorage struct {
	Path string
}

func (fs FileStorage) Load() (Cart, error) {
	b, err := os.ReadFile(fs.Path)
	if os.IsNotExist(err) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("reading cart file: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return Cart{}, fmt.Errorf("decoding cart file: %w", err)
	}
	return c, nil
}

func (fs FileStorage) Save(c Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := os.WriteFile(fs.Path, b, 0o600); err != nil {
		return fmt.Errorf("writing cart file: %w", err)
	}
	return nil
}

// Session owns one cart for one shopper and writes it back to storage
// after every mutation, so a crash never loses more than the in-flight
// operation. Single actor; not safe for concurrent use.
type Session struct {
	storage Storage
	cart    Cart
}

func NewSession(storage Storage) (*Session, error) {
	c, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("hydrating cart: %w", err)
	}
	return &Session{storage: storage, cart: c}, nil
}

func (s *Session) Add(name string, price decimal.Decimal, quantity int) error {
	s.cart.Add(name, price, quantity)
	return s.persist()
}

func (s *Session) Remove(index int) error {
	if err := s.cart.Remove(index); err != nil {
		return err
	}
	return s.persist()
}

func (s *Session) UpdateQuantity(index int, delta int) error {
	if err := s.cart.UpdateQuantity(index, delta); err != nil {
		return err
	}
	return s.persist()
}

func (s *Session) Clear() error {
	s.cart.Clear()
	return s.persist()
}

// Cart returns a copy of the current cart for checkout submission.
func (s *Session) Cart() Cart {
	c := Cart{Items: make([]LineItem, len(s.cart.Items))}
	copy(c.Items, s.cart.Items)
	return c
}

// Badge is the item-count indicator recomputed after every mutation.
func (s *Session) Badge() int {
	return s.cart.ItemCount()
}

func (s *Session) persist() error {
	if err := s.storage.Save(s.cart); err != nil {
		return fmt.Errorf("persisting cart: %w", err)
	}
	return nil
}
