package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShippingZone string

const (
	ZoneQuito    ShippingZone = "quito"
	ZoneProvince ShippingZone = "province"
)

func (z ShippingZone) Valid() bool {
	return z == ZoneQuito || z == ZoneProvince
}

type ShippingMethod string

const (
	MethodCourier      ShippingMethod = "courier"
	MethodPublicMeetup ShippingMethod = "public-meetup"
)

func (m ShippingMethod) Valid() bool {
	return m == MethodCourier || m == MethodPublicMeetup
}

// PaymentMethod is derived from the shipping method: couriers are paid by
// bank transfer with a proof image, meetups in cash.
func (m ShippingMethod) PaymentMethod() string {
	if m == MethodCourier {
		return PaymentTransfer
	}
	return PaymentCash
}

const (
	PaymentTransfer = "transfer"
	PaymentCash     = "cash"
)

type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusShipped OrderStatus = "shipped"
)

func (s OrderStatus) Valid() bool {
	return s == StatusPending || s == StatusShipped
}

var (
	courierCostQuito    = decimal.RequireFromString("3.50")
	courierCostProvince = decimal.RequireFromString("6.00")
)

var (
	ErrInvalidShippingZone    = errors.New("invalid shipping zone")
	ErrInvalidShippingMethod  = errors.New("invalid shipping method")
	ErrMeetupOutsideQuito     = errors.New("public meetup is only available in quito")
	ErrMalformedAddress       = errors.New("malformed shipping address")
	ErrIncompleteAddress      = errors.New("incomplete shipping address")
	ErrCartProductMissing     = errors.New("cart references a product that no longer exists")
	ErrOrderAlreadyShipped    = errors.New("order already shipped")
	ErrShippingProofRequired  = errors.New("shipping proof required for courier orders")
	ErrShippingProofForbidden = errors.New("shipping proof not accepted for public meetup orders")
)

// ValidateShipping checks both enums and the meetup-only-in-quito rule
func ValidateShipping(zone ShippingZone, method ShippingMethod) error {
	if !zone.Valid() {
		return ErrInvalidShippingZone
	}
	if !method.Valid() {
		return ErrInvalidShippingMethod
	}
	if method == MethodPublicMeetup && zone != ZoneQuito {
		return ErrMeetupOutsideQuito
	}
	return nil
}

// ShippingCost is 0 for meetups and a flat courier fee per zone
func ShippingCost(zone ShippingZone, method ShippingMethod) decimal.Decimal {
	if method != MethodCourier {
		return decimal.Zero
	}
	if zone == ZoneQuito {
		return courierCostQuito
	}
	return courierCostProvince
}

// ShippingAddress is the delivery address of courier orders
type ShippingAddress struct {
	Street        string `json:"street"`
	CrossStreet   string `json:"crossStreet"`
	Number        string `json:"number"`
	Landmark      string `json:"landmark"`
	Province      string `json:"province"`
	City          string `json:"city"`
	RecipientName string `json:"recipientName,omitempty"`
	RecipientID   string `json:"recipientId,omitempty"`
}

// ParseShippingAddress decodes the serialized address sent in multipart forms
func ParseShippingAddress(raw string) (*ShippingAddress, error) {
	var addr ShippingAddress
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return &addr, nil
}

// Validate requires the six mandatory address fields
func (a ShippingAddress) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"crossStreet", a.CrossStreet},
		{"number", a.Number},
		{"landmark", a.Landmark},
		{"province", a.Province},
		{"city", a.City},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteAddress, strings.Join(missing, ", "))
	}
	return nil
}

// StockShortageError names the first cart line that cannot be fulfilled
type StockShortageError struct {
	ProductID   uuid.UUID
	ProductName string
	Remaining   int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d left", e.ProductName, e.Remaining)
}

// OrderItem freezes the product name and price at purchase time
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the immutable purchase record. Only the status transition
// touches Status, ShippingProofURL and ShipDate.
type Order struct {
	ID               uuid.UUID        `json:"id"`
	CustomerID       uuid.UUID        `json:"customer_id"`
	CustomerName     string           `json:"customer_name"`
	CustomerPhone    string           `json:"customer_phone"`
	Items            []OrderItem      `json:"items"`
	ShippingZone     ShippingZone     `json:"shipping_zone"`
	ShippingMethod   ShippingMethod   `json:"shipping_method"`
	ShippingCost     decimal.Decimal  `json:"shipping_cost"`
	ShippingAddress  *ShippingAddress `json:"shipping_address"`
	PaymentMethod    string           `json:"payment_method"`
	PaymentProofURL  *string          `json:"payment_proof_url"`
	ShippingProofURL *string          `json:"shipping_proof_url"`
	Status           OrderStatus      `json:"status"`
	Total            decimal.Decimal  `json:"total"`
	PurchaseDate     time.Time        `json:"purchase_date"`
	ShipDate         *time.Time       `json:"ship_date"`
}

// OrderSummary is the history projection of an order
type OrderSummary struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod ShippingMethod  `json:"shipping_method"`
	Status         OrderStatus     `json:"status"`
}

// CheckStock verifies every line against the product's current stock
func (c *Cart) CheckStock() error {
	for _, item := range c.Items {
		if item.Product == nil {
			return ErrCartProductMissing
		}
		if !item.Product.HasStock(item.Quantity) {
			return &StockShortageError{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Remaining:   item.Product.Stock,
			}
		}
	}
	return nil
}

// OrderDraft carries the checkout input already validated by the caller
type OrderDraft struct {
	Customer        *Customer
	Zone            ShippingZone
	Method          ShippingMethod
	Address         *ShippingAddress
	PaymentProofURL *string
}

// NewOrderFromCart snapshots the cart at current product prices
func NewOrderFromCart(cart *Cart, draft OrderDraft, now time.Time) (*Order, error) {
	if err := ValidateShipping(draft.Zone, draft.Method); err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Product == nil {
			return nil, ErrCartProductMissing
		}
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		})
	}

	order := &Order{
		ID:             uuid.New(),
		CustomerID:     draft.Customer.ID,
		CustomerName:   draft.Customer.Name,
		CustomerPhone:  draft.Customer.Phone,
		Items:          items,
		ShippingZone:   draft.Zone,
		ShippingMethod: draft.Method,
		ShippingCost:   ShippingCost(draft.Zone, draft.Method),
		PaymentMethod:  draft.Method.PaymentMethod(),
		Status:         StatusPending,
		PurchaseDate:   now,
	}
	if draft.Method == MethodCourier {
		order.ShippingAddress = draft.Address
		order.PaymentProofURL = draft.PaymentProofURL
	}
	order.Total = order.Subtotal().Add(order.ShippingCost)

	return order, nil
}

// Subtotal sums the frozen line values
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CheckShippable validates a pending -> shipped request before any upload
func (o *Order) CheckShippable(hasProof bool) error {
	if err := ValidateShipping(o.ShippingZone, o.ShippingMethod); err != nil {
		return err
	}
	if o.Status == StatusShipped {
		return ErrOrderAlreadyShipped
	}
	switch o.ShippingMethod {
	case MethodCourier:
		if !hasProof {
			return ErrShippingProofRequired
		}
	case MethodPublicMeetup:
		if hasProof {
			return ErrShippingProofForbidden
		}
	}
	return nil
}

// Ship applies the transition; courier orders record proof and ship date
func (o *Order) Ship(proofURL string, now time.Time) {
	o.Status = StatusShipped
	if o.ShippingMethod == MethodCourier {
		o.ShippingProofURL = &proofURL
		o.ShipDate = &now
	}
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		PurchaseDate:   o.PurchaseDate,
		Total:          o.Total,
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
		Status:         o.Status,
	}
}
