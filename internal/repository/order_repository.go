package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vinyl-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is no longer pending")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, customerID *uuid.UUID) ([]domain.OrderSummary, error)
	MarkShipped(ctx context.Context, tx *sql.Tx, order *domain.Order) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create writes the order header and its frozen lines
func (r *orderRepository) Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	var address any
	if order.ShippingAddress != nil {
		raw, err := json.Marshal(order.ShippingAddress)
		if err != nil {
			return fmt.Errorf("failed to encode shipping address: %w", err)
		}
		address = string(raw)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, customer_name, customer_phone, shipping_zone, shipping_method,
			shipping_cost, shipping_address, payment_method, payment_proof_url, shipping_proof_url,
			status, total, purchase_date, ship_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		order.ID,
		order.CustomerID,
		order.CustomerName,
		order.CustomerPhone,
		string(order.ShippingZone),
		string(order.ShippingMethod),
		order.ShippingCost,
		address,
		order.PaymentMethod,
		order.PaymentProofURL,
		order.ShippingProofURL,
		string(order.Status),
		order.Total,
		order.PurchaseDate,
		order.ShipDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, position, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, item.ProductID, i, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// FindByID retrieves a full order with its lines
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		zone, method, status string
		address              []byte
		paymentProof         sql.NullString
		shippingProof        sql.NullString
		shipDate             sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, customer_phone, shipping_zone, shipping_method,
		       shipping_cost, shipping_address, payment_method, payment_proof_url, shipping_proof_url,
		       status, total, purchase_date, ship_date
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerPhone,
		&zone,
		&method,
		&order.ShippingCost,
		&address,
		&order.PaymentMethod,
		&paymentProof,
		&shippingProof,
		&status,
		&order.Total,
		&order.PurchaseDate,
		&shipDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	order.ShippingZone = domain.ShippingZone(zone)
	order.ShippingMethod = domain.ShippingMethod(method)
	order.Status = domain.OrderStatus(status)
	if len(address) > 0 {
		order.ShippingAddress = &domain.ShippingAddress{}
		if err := json.Unmarshal(address, order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if paymentProof.Valid {
		order.PaymentProofURL = &paymentProof.String
	}
	if shippingProof.Valid {
		order.ShippingProofURL = &shippingProof.String
	}
	if shipDate.Valid {
		order.ShipDate = &shipDate.Time
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// List returns order summaries, newest first. A nil customerID lists every order.
func (r *orderRepository) List(ctx context.Context, customerID *uuid.UUID) ([]domain.OrderSummary, error) {
	query := `
		SELECT id, customer_id, customer_name, purchase_date, total, payment_method, shipping_method, status
		FROM orders
	`
	args := []interface{}{}
	if customerID != nil {
		query += ` WHERE customer_id = $1`
		args = append(args, *customerID)
	}
	query += ` ORDER BY purchase_date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	summaries := []domain.OrderSummary{}
	for rows.Next() {
		var (
			s              domain.OrderSummary
			method, status string
		)
		if err := rows.Scan(
			&s.ID,
			&s.CustomerID,
			&s.CustomerName,
			&s.PurchaseDate,
			&s.Total,
			&s.PaymentMethod,
			&method,
			&status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		s.ShippingMethod = domain.ShippingMethod(method)
		s.Status = domain.OrderStatus(status)
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return summaries, nil
}

// MarkShipped persists the transition only while the order is still pending
func (r *orderRepository) MarkShipped(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, shipping_proof_url = $3, ship_date = $4
		WHERE id = $1 AND status = 'pending'
	`, order.ID, string(order.Status), order.ShippingProofURL, order.ShipDate)
	if err != nil {
		return fmt.Errorf("failed to mark order shipped: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotPending
	}

	return nil
}
