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
	ErrAdministratorNotFound      = errors.New("administrator not found")
	ErrAdministratorAlreadyExists = errors.New("administrator with this email already exists")
)

// AdministratorRepository defines the interface for administrator data access
type AdministratorRepository interface {
	Create(ctx context.Context, admin *domain.Administrator) error
	FindByEmail(ctx context.Context, email string) (*domain.Administrator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Administrator, error)
	Count(ctx context.Context) (int, error)
}

type administratorRepository struct {
	db *sql.DB
}

func NewAdministratorRepository(db *sql.DB) AdministratorRepository {
	return &administratorRepository{db: db}
}

func (r *administratorRepository) Create(ctx context.Context, admin *domain.Administrator) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO administrators (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAdministratorAlreadyExists
		}
		return fmt.Errorf("failed to create administrator: %w", err)
	}
	return nil
}

func (r *administratorRepository) FindByEmail(ctx context.Context, email string) (*domain.Administrator, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *administratorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Administrator, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *administratorRepository) findOne(ctx context.Context, where string, arg any) (*domain.Administrator, error) {
	admin := &domain.Administrator{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM administrators `+where, arg,
	).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdministratorNotFound
		}
		return nil, fmt.Errorf("failed to find administrator: %w", err)
	}

	return admin, nil
}

// Count is used at startup to decide whether the bootstrap admin is needed
func (r *administratorRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM administrators`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count administrators: %w", err)
	}
	return n, nil
}
