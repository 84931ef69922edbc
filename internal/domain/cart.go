package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateCartLine = errors.New("product already in cart")
	ErrCartLineNotFound  = errors.New("product not in cart")
)

// CartItem is one line of a cart. UnitPrice is the product price captured
// when the line was added or last re-quantified.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Product   *Product        `json:"product,omitempty"`
}

// LineTotal returns quantity × unit price
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-customer staging area. Total is maintained on every
// mutation and always equals the sum of line totals.
type Cart struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func NewCart(customerID uuid.UUID, now time.Time) *Cart {
	return &Cart{
		ID:         uuid.New(),
		CustomerID: customerID,
		Items:      []CartItem{},
		Total:      decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Find returns the index of the line holding productID
func (c *Cart) Find(productID uuid.UUID) (int, bool) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddLine appends a new line priced at the product's current price
func (c *Cart) AddLine(product *Product, quantity int) error {
	if _, exists := c.Find(product.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCartLine, product.Name)
	}

	item := CartItem{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Product:   product,
	}
	c.Items = append(c.Items, item)
	c.Total = c.Total.Add(item.LineTotal())
	return nil
}

// SetQuantity replaces the line value: total = total - old line + new line
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) error {
	i, ok := c.Find(productID)
	if !ok {
		return ErrCartLineNotFound
	}

	c.Total = c.Total.Sub(c.Items[i].LineTotal())
	c.Items[i].Quantity = quantity
	c.Items[i].UnitPrice = unitPrice
	c.Total = c.Total.Add(c.Items[i].LineTotal())
	return nil
}

// RemoveLine drops the line and subtracts its value from the total
func (c *Cart) RemoveLine(productID uuid.UUID) (CartItem, error) {
	i, ok := c.Find(productID)
	if !ok {
		return CartItem{}, ErrCartLineNotFound
	}

	removed := c.Items[i]
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.Total = c.Total.Sub(removed.LineTotal())
	return removed, nil
}

// RecomputedTotal sums line values from scratch
func (c *Cart) RecomputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
