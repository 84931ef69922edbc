package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinyl-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyExists = errors.New("event with this name already exists")
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
}

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new instance of EventRepository
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Date,
		&event.ImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	return event, err
}

// Create inserts a new event into the database using parameterized queries
func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, name, event_date, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.Name,
		event.Date,
		event.ImageURL,
		event.CreatedAt,
		event.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEventAlreadyExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET name = $2, event_date = $3, image_url = $4, updated_at = $5 WHERE id = $1`,
		event.ID, event.Name, event.Date, event.ImageURL, event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEventAlreadyExists
		}
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

// List retrieves all events, soonest first
func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT id, name, event_date, image_url, created_at, updated_at
		FROM events
		ORDER BY event_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// FindByID retrieves an event by ID using parameterized queries
func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `
		SELECT id, name, event_date, image_url, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event by ID: %w", err)
	}

	return event, nil
}
