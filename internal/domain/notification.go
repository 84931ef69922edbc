package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotifyOrderCreated        NotificationKind = "order_created_admin"
	NotifyOrderShippedCourier NotificationKind = "order_shipped_courier"
	NotifyOrderShippedMeetup  NotificationKind = "order_shipped_meetup"
	NotifyPush                NotificationKind = "push"
)

// IsEmail reports whether the kind is delivered over SMTP
func (k NotificationKind) IsEmail() bool {
	return k != NotifyPush
}

// Notification is an outbox row written in the same transaction as the
// business change it announces.
type Notification struct {
	ID           uuid.UUID         `json:"id"`
	Kind         NotificationKind  `json:"kind"`
	Recipient    string            `json:"recipient"`
	Data         map[string]string `json:"data"`
	Attempts     int               `json:"attempts"`
	LastError    *string           `json:"last_error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	DispatchedAt *time.Time        `json:"dispatched_at,omitempty"`
}

func NewNotification(kind NotificationKind, recipient string, data map[string]string, now time.Time) *Notification {
	if data == nil {
		data = map[string]string{}
	}
	return &Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Recipient: recipient,
		Data:      data,
		CreatedAt: now,
	}
}

// OrderCreatedNotification tells the operator about a new purchase
func OrderCreatedNotification(operatorEmail string, order *Order, now time.Time) *Notification {
	return NewNotification(NotifyOrderCreated, operatorEmail, map[string]string{
		"order_id":      order.ID.String(),
		"customer_name": order.CustomerName,
		"total":         order.Total.StringFixed(2),
	}, now)
}

// OrderShippedNotifications builds the customer email and, when a device is
// registered, the push message for a shipped order.
func OrderShippedNotifications(customer *Customer, order *Order, now time.Time) []*Notification {
	kind := NotifyOrderShippedMeetup
	title := "Pedido listo para la entrega"
	body := "Tu pedido está listo. Te esperamos en el punto de encuentro acordado."
	if order.ShippingMethod == MethodCourier {
		kind = NotifyOrderShippedCourier
		title = "Pedido enviado"
		body = "Tu pedido ya fue enviado y está en camino."
	}

	notifications := []*Notification{
		NewNotification(kind, customer.Email, map[string]string{
			"order_id":      order.ID.String(),
			"customer_name": customer.Name,
		}, now),
	}

	if customer.PushToken != nil && *customer.PushToken != "" {
		notifications = append(notifications, NewNotification(NotifyPush, *customer.PushToken, map[string]string{
			"title":    title,
			"body":     body,
			"order_id": order.ID.String(),
		}, now))
	}

	return notifications
}
