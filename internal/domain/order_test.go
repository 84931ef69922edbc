package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() *ShippingAddress {
	return &ShippingAddress{
		Street:      "Av. Amazonas",
		CrossStreet: "Naciones Unidas",
		Number:      "N34-120",
		Landmark:    "Frente al parque",
		Province:    "Pichincha",
		City:        "Quito",
	}
}

func testCustomer() *Customer {
	return &Customer{ID: uuid.New(), Name: "Ana", Phone: "0991234567", Email: "ana@example.com"}
}

func TestNewOrderFromCart_ProvinceCourierTotal(t *testing.T) {
	cart := NewCart(uuid.New(), time.Now())
	require.NoError(t, cart.AddLine(newProduct("Discovery", "10.00", 5), 2))
	proof := "https://assets.example/proof.png"

	order, err := NewOrderFromCart(cart, OrderDraft{
		Customer:        testCustomer(),
		Zone:            ZoneProvince,
		Method:          MethodCourier,
		Address:         validAddress(),
		PaymentProofURL: &proof,
	}, time.Now())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("26.00").Equal(order.Total))
	assert.True(t, decimal.RequireFromString("6.00").Equal(order.ShippingCost))
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentTransfer, order.PaymentMethod)
	assert.Equal(t, "Discovery", order.Items[0].Name)
	assert.NotNil(t, order.ShippingAddress)
	assert.Nil(t, order.ShipDate)
}

func TestNewOrderFromCart_MeetupDropsAddressAndProof(t *testing.T) {
	cart := NewCart(uuid.New(), time.Now())
	require.NoError(t, cart.AddLine(newProduct("Discovery", "10.00", 5), 1))
	proof := "https://assets.example/proof.png"

	order, err := NewOrderFromCart(cart, OrderDraft{
		Customer:        testCustomer(),
		Zone:            ZoneQuito,
		Method:          MethodPublicMeetup,
		Address:         validAddress(),
		PaymentProofURL: &proof,
	}, time.Now())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("10.00").Equal(order.Total))
	assert.Equal(t, PaymentCash, order.PaymentMethod)
	assert.Nil(t, order.ShippingAddress)
	assert.Nil(t, order.PaymentProofURL)
}

func TestNewOrderFromCart_UsesCurrentPrice(t *testing.T) {
	cart := NewCart(uuid.New(), time.Now())
	p := newProduct("Discovery", "10.00", 5)
	require.NoError(t, cart.AddLine(p, 1))
	p.Price = decimal.RequireFromString("12.00")

	order, err := NewOrderFromCart(cart, OrderDraft{Customer: testCustomer(), Zone: ZoneQuito, Method: MethodPublicMeetup}, time.Now())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("12.00").Equal(order.Items[0].UnitPrice))
}

// Property: order total is subtotal plus a zone-determined courier fee
func TestProperty_OrderTotalIsSubtotalPlusShipping(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total = sum(lines) + shipping", prop.ForAll(
		func(quantity int, cents int64, zone string, method string) bool {
			cart := NewCart(uuid.New(), time.Now())
			p := &Product{ID: uuid.New(), Name: "disc", Price: decimal.New(cents, -2), Stock: quantity}
			if err := cart.AddLine(p, quantity); err != nil {
				return false
			}
			proof := "ref"
			draft := OrderDraft{
				Customer:        testCustomer(),
				Zone:            ShippingZone(zone),
				Method:          ShippingMethod(method),
				Address:         validAddress(),
				PaymentProofURL: &proof,
			}

			order, err := NewOrderFromCart(cart, draft, time.Now())
			if draft.Method == MethodPublicMeetup && draft.Zone != ZoneQuito {
				return err == ErrMeetupOutsideQuito && order == nil
			}
			if err != nil {
				return false
			}

			if !order.Total.Equal(order.Subtotal().Add(order.ShippingCost)) {
				return false
			}
			switch {
			case draft.Method == MethodPublicMeetup:
				return order.ShippingCost.IsZero()
			case draft.Zone == ZoneQuito:
				return order.ShippingCost.Equal(decimal.RequireFromString("3.50"))
			default:
				return order.ShippingCost.Equal(decimal.RequireFromString("6.00"))
			}
		},
		gen.IntRange(1, 10),
		gen.Int64Range(0, 50000),
		gen.OneConstOf("quito", "province"),
		gen.OneConstOf("courier", "public-meetup"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidateShipping(t *testing.T) {
	tests := []struct {
		name   string
		zone   ShippingZone
		method ShippingMethod
		want   error
	}{
		{"courier quito", ZoneQuito, MethodCourier, nil},
		{"courier province", ZoneProvince, MethodCourier, nil},
		{"meetup quito", ZoneQuito, MethodPublicMeetup, nil},
		{"meetup province", ZoneProvince, MethodPublicMeetup, ErrMeetupOutsideQuito},
		{"unknown zone", ShippingZone("guayaquil"), MethodCourier, ErrInvalidShippingZone},
		{"unknown method", ZoneQuito, ShippingMethod("drone"), ErrInvalidShippingMethod},
		{"empty", "", "", ErrInvalidShippingZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateShipping(tt.zone, tt.method))
		})
	}
}

func TestParseShippingAddress(t *testing.T) {
	addr, err := ParseShippingAddress(`{"street":"Av. 6 de Diciembre","crossStreet":"Colón","number":"E4-12","landmark":"Edificio azul","province":"Pichincha","city":"Quito","recipientName":"Luis"}`)
	require.NoError(t, err)
	assert.Equal(t, "Luis", addr.RecipientName)

	_, err = ParseShippingAddress(`{"street":`)
	assert.ErrorIs(t, err, ErrMalformedAddress)

	_, err = ParseShippingAddress(`{"street":"Av. 6 de Diciembre","city":"Quito"}`)
	require.ErrorIs(t, err, ErrIncompleteAddress)
	assert.Contains(t, err.Error(), "crossStreet")
}

func TestOrder_CheckShippable(t *testing.T) {
	courier := &Order{ShippingZone: ZoneProvince, ShippingMethod: MethodCourier, Status: StatusPending}
	meetup := &Order{ShippingZone: ZoneQuito, ShippingMethod: MethodPublicMeetup, Status: StatusPending}
	shipped := &Order{ShippingZone: ZoneQuito, ShippingMethod: MethodCourier, Status: StatusShipped}
	broken := &Order{ShippingZone: ZoneProvince, ShippingMethod: MethodPublicMeetup, Status: StatusPending}

	assert.ErrorIs(t, courier.CheckShippable(false), ErrShippingProofRequired)
	assert.NoError(t, courier.CheckShippable(true))
	assert.ErrorIs(t, meetup.CheckShippable(true), ErrShippingProofForbidden)
	assert.NoError(t, meetup.CheckShippable(false))
	assert.ErrorIs(t, shipped.CheckShippable(true), ErrOrderAlreadyShipped)
	assert.ErrorIs(t, broken.CheckShippable(false), ErrMeetupOutsideQuito)
}

func TestOrder_Ship(t *testing.T) {
	now := time.Now()

	courier := &Order{ShippingMethod: MethodCourier, Status: StatusPending}
	courier.Ship("https://assets.example/guide.png", now)
	assert.Equal(t, StatusShipped, courier.Status)
	require.NotNil(t, courier.ShipDate)
	assert.Equal(t, "https://assets.example/guide.png", *courier.ShippingProofURL)

	meetup := &Order{ShippingMethod: MethodPublicMeetup, Status: StatusPending}
	meetup.Ship("", now)
	assert.Equal(t, StatusShipped, meetup.Status)
	assert.Nil(t, meetup.ShipDate)
	assert.Nil(t, meetup.ShippingProofURL)
}
