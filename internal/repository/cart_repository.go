package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinyl-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the interface for cart data access. Mutating
// reads lock the cart row for the rest of the transaction.
type CartRepository interface {
	GetOrCreateForUpdate(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (*domain.Cart, error)
	FindForUpdate(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (*domain.Cart, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	Save(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error
	Delete(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetOrCreateForUpdate returns the customer's locked cart, creating an empty one on first use
func (r *cartRepository) GetOrCreateForUpdate(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (*domain.Cart, error) {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO carts (id, customer_id, total, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (customer_id) DO NOTHING
	`, uuid.New(), customerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.FindForUpdate(ctx, tx, customerID)
}

func (r *cartRepository) FindForUpdate(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, tx, customerID, true)
}

// FindByCustomer loads the cart with every line expanded to product details
func (r *cartRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, r.db, customerID, false)
}

func (r *cartRepository) find(ctx context.Context, q querier, customerID uuid.UUID, lock bool) (*domain.Cart, error) {
	query := `SELECT id, customer_id, total, created_at, updated_at FROM carts WHERE customer_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	cart := &domain.Cart{}
	err := q.QueryRowContext(ctx, query, customerID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.Total,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	items, err := r.loadItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

// loadItems keeps lines whose product was deleted; their Product is nil
func (r *cartRepository) loadItems(ctx context.Context, q querier, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, ci.unit_price,
		       p.id, p.name, p.artist, p.price, p.genre, p.stock, p.image_url, p.created_at, p.updated_at
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.position ASC
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var (
			item      domain.CartItem
			productID uuid.NullUUID
			name      sql.NullString
			artist    sql.NullString
			price     decimal.NullDecimal
			genre     sql.NullString
			stock     sql.NullInt64
			imageURL  sql.NullString
			createdAt sql.NullTime
			updatedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ProductID, &item.Quantity, &item.UnitPrice,
			&productID, &name, &artist, &price, &genre, &stock, &imageURL, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		if productID.Valid {
			item.Product = &domain.Product{
				ID:        productID.UUID,
				Name:      name.String,
				Artist:    artist.String,
				Price:     price.Decimal,
				Genre:     genre.String,
				Stock:     int(stock.Int64),
				ImageURL:  imageURL.String,
				CreatedAt: createdAt.Time,
				UpdatedAt: updatedAt.Time,
			}
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Save writes the total and replaces the line set
func (r *cartRepository) Save(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`UPDATE carts SET total = $2, updated_at = $3 WHERE id = $1`,
		cart.ID, cart.Total, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return ErrCartNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	for i, item := range cart.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, position, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, cart.ID, item.ProductID, i, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	}

	return nil
}

// Delete removes the cart; its lines cascade
func (r *cartRepository) Delete(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartNotFound
	}

	return nil
}
