package transport

import (
	"net/http"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the customer registration payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Province string `json:"province" validate:"required"`
	City     string `json:"city" validate:"required"`
}

// LoginRequest represents the login payload for both roles
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PushTokenRequest carries the Expo push token of the device
type PushTokenRequest struct {
	PushToken string `json:"pushToken" validate:"required"`
}

// CustomerLoginResponse represents a successful customer login
type CustomerLoginResponse struct {
	Token    string           `json:"token"`
	Customer *domain.Customer `json:"customer"`
}

// AdminLoginResponse represents a successful administrator login
type AdminLoginResponse struct {
	Token string                `json:"token"`
	Admin *domain.Administrator `json:"admin"`
}

// AuthHandler handles HTTP requests for accounts
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers customer and admin account routes
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/profile", h.GetProfile)
			r.Put("/push-token", h.UpdatePushToken)
		})
	})

	r.Post("/api/admin/login", h.AdminLogin)
}

// Register handles customer registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	customer, err := h.authService.RegisterCustomer(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Province: req.Province,
		City:     req.City,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Customer registered", zap.String("customer_id", customer.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, customer)
}

// Login handles customer authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	token, customer, err := h.authService.LoginCustomer(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CustomerLoginResponse{Token: token, Customer: customer})
}

// AdminLogin handles administrator authentication
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	token, admin, err := h.authService.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AdminLoginResponse{Token: token, Admin: admin})
}

// GetProfile returns the authenticated customer
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	customer, err := h.authService.GetProfile(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// UpdatePushToken stores the device token used for shipping notices
func (h *AuthHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if err := h.authService.UpdatePushToken(r.Context(), middleware.PrincipalFrom(r.Context()), req.PushToken); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Msg: "Token de notificaciones actualizado"})
}
