package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Categories  []string        `json:"categories"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ListedBy    uuid.UUID       `json:"listedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPatch carries the fields of a partial product update; nil means
// "leave unchanged".
type ProductPatch struct {
	Title       *string
	Slug        *string
	Description *string
	Image       *string
	Categories  []string
	Size        *string
	Color       *string
	Price       *decimal.Decimal
}

// LineItem is one product entry in a cart or order. Title, image and price
// are captured when the item is added and never refreshed from the catalog.
type LineItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineItems is stored as a JSONB array.
type LineItems []LineItem

func (li LineItems) Value() (driver.Value, error) {
	if li == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(li)
}

func (li *LineItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*li = LineItems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan line items: unsupported type %T", src)
	}
	return json.Unmarshal(data, li)
}

// IndexOf returns the position of the line for productID, or -1.
func (li LineItems) IndexOf(productID uuid.UUID) int {
	for i, item := range li {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Total is the sum of price times quantity over all lines.
func (li LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range li {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Products  LineItems `json:"products"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PaymentIntent struct {
	ID       string          `json:"id"`
	Method   string          `json:"method"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Created  int64           `json:"created"`
	Currency string          `json:"currency"`
}

func (p PaymentIntent) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PaymentIntent) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("scan payment intent: expected JSON")
	}
}

type Order struct {
	ID            uuid.UUID     `json:"id"`
	Products      LineItems     `json:"products"`
	PaymentIntent PaymentIntent `json:"paymentIntent"`
	OrderBy       uuid.UUID     `json:"orderBy"`
	Address       string        `json:"address"`
	Email         string        `json:"email"`
	Contact       string        `json:"contact"`
	OrderStatus   string        `json:"orderStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// ResolvedLineItem is a line item whose product reference has been replaced
// by the current catalog record. Product is nil when it has been deleted.
type ResolvedLineItem struct {
	LineItem
	Product *Product `json:"product"`
}

// OrderView is an order with user and product references resolved.
type OrderView struct {
	ID            uuid.UUID          `json:"id"`
	Products      []ResolvedLineItem `json:"products"`
	PaymentIntent PaymentIntent      `json:"paymentIntent"`
	OrderBy       *User              `json:"orderBy"`
	Address       string             `json:"address"`
	Email         string             `json:"email"`
	Contact       string             `json:"contact"`
	OrderStatus   string             `json:"orderStatus"`
	CreatedAt     time.Time          `json:"createdAt"`
}

const (
	PaymentMethodCOD = "COD"
	PaymentStatusCOD = "Cash on Delivery"
	OrderStatusCOD   = "Cash on Delivery"
	CurrencyUSD      = "USD"
)

// ProductFilter selects catalog listings. Newest takes precedence over
// Category; the zero value lists everything.
type ProductFilter struct {
	Newest   int
	Category string
}
