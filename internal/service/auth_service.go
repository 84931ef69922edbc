package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vinyl-store/internal/config"
	"vinyl-store/internal/domain"
	"vinyl-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

var ErrInvalidToken = errors.New("invalid token")

// RegisterInput is a new customer account
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	Province string
	City     string
}

// AuthService handles accounts and token issuance for both roles
type AuthService interface {
	RegisterCustomer(ctx context.Context, in RegisterInput) (*domain.Customer, error)
	LoginCustomer(ctx context.Context, email, password string) (string, *domain.Customer, error)
	LoginAdmin(ctx context.Context, email, password string) (string, *domain.Administrator, error)
	GetProfile(ctx context.Context, principal domain.Principal) (*domain.Customer, error)
	UpdatePushToken(ctx context.Context, principal domain.Principal, token string) error
	ValidateToken(tokenString string) (*Claims, error)
	EnsureAdmin(ctx context.Context, admin config.AdminConfig) error
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	customerRepo repository.CustomerRepository
	adminRepo    repository.AdministratorRepository
	jwtSecret    string
	tokenExpiry  time.Duration
	logger       *zap.Logger
}

func NewAuthService(
	customerRepo repository.CustomerRepository,
	adminRepo repository.AdministratorRepository,
	jwtCfg config.JWTConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		customerRepo: customerRepo,
		adminRepo:    adminRepo,
		jwtSecret:    jwtCfg.Secret,
		tokenExpiry:  time.Duration(jwtCfg.TokenExpiry) * time.Hour,
		logger:       logger,
	}
}

// RegisterCustomer creates a customer account with a hashed password
func (s *authService) RegisterCustomer(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.customerRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrCustomerNotFound) {
		return nil, fmt.Errorf("failed to check existing customer: %w", err)
	}
	if existing != nil {
		return nil, conflictError("Lo sentimos, el email ya se encuentra registrado")
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	customer := &domain.Customer{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hashedPassword,
		Phone:        in.Phone,
		Address:      in.Address,
		Province:     in.Province,
		City:         in.City,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrCustomerAlreadyExists) {
			return nil, conflictError("Lo sentimos, el email ya se encuentra registrado")
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return customer, nil
}

func (s *authService) LoginCustomer(ctx context.Context, email, password string) (string, *domain.Customer, error) {
	customer, err := s.customerRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return "", nil, unauthorizedError("Credenciales Incorrectas")
		}
		return "", nil, fmt.Errorf("failed to find customer: %w", err)
	}

	if err := verifyPassword(customer.PasswordHash, password); err != nil {
		return "", nil, unauthorizedError("Credenciales Incorrectas")
	}

	token, err := s.generateToken(customer.ID, domain.RoleCustomer)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, customer, nil
}

func (s *authService) LoginAdmin(ctx context.Context, email, password string) (string, *domain.Administrator, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAdministratorNotFound) {
			return "", nil, unauthorizedError("Credenciales Incorrectas")
		}
		return "", nil, fmt.Errorf("failed to find administrator: %w", err)
	}

	if err := verifyPassword(admin.PasswordHash, password); err != nil {
		return "", nil, unauthorizedError("Credenciales Incorrectas")
	}

	token, err := s.generateToken(admin.ID, domain.RoleAdmin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, admin, nil
}

func (s *authService) GetProfile(ctx context.Context, principal domain.Principal) (*domain.Customer, error) {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden ver su propio perfil")
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, notFoundError(fmt.Sprintf("Lo sentimos, no existe un usuario con ID %s", customerID))
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// UpdatePushToken stores the device token used for shipping notices
func (s *authService) UpdatePushToken(ctx context.Context, principal domain.Principal, token string) error {
	customerID, err := requireCustomer(principal, "Acceso denegado. Solo los clientes pueden registrar notificaciones")
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return validationError("El token de notificaciones es obligatorio")
	}

	if err := s.customerRepo.UpdatePushToken(ctx, customerID, token); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return notFoundError(fmt.Sprintf("Lo sentimos, no existe un usuario con ID %s", customerID))
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// EnsureAdmin seeds the first administrator when none exists
func (s *authService) EnsureAdmin(ctx context.Context, admin config.AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		s.logger.Debug("Admin seed credentials not set, skipping")
		return nil
	}

	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count administrators: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := hashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	seed := &domain.Administrator{
		ID:           uuid.New(),
		Name:         admin.Name,
		Email:        strings.ToLower(admin.Email),
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now(),
	}
	if err := s.adminRepo.Create(ctx, seed); err != nil {
		if errors.Is(err, repository.ErrAdministratorAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to seed administrator: %w", err)
	}

	s.logger.Info("Seeded administrator account", zap.String("email", seed.Email))
	return nil
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateToken signs a token carrying the user id and role claims
func (s *authService) generateToken(id uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: id,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
