package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id" db:"product_id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Category      string          `json:"category" db:"category"`
	ImageURL      string          `json:"imageUrl" db:"image_url"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	Version       int             `json:"-" db:"version"`
}

type ProductNew struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category" validate:"required"`
	ImageURL      string          `json:"imageUrl" validate:"omitempty,url"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
}

// Filter narrows a catalog search. Zero values mean "no constraint".
type Filter struct {
	Query    string
	Category string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}
