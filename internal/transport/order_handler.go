package transport

import (
	"net/http"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderResponse wraps an order with a message
type OrderResponse struct {
	Msg   string        `json:"msg"`
	Order *domain.Order `json:"order"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	maxUpload    int64
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, maxUpload int64, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		maxUpload:    maxUpload,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequireRole([]domain.PrincipalKind{domain.PrincipalCustomer}, h.logger)).Post("/finalize", h.Finalize)
		r.With(middleware.RequireAdmin(h.logger)).Put("/status/{id}", h.UpdateStatus)
		r.Get("/history", h.History)
		r.Get("/detail/{id}", h.Detail)
	})
}

// Finalize turns the caller's cart into an order
func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUpload, h.logger) {
		return
	}
	proof, ok := readFormFile(w, r, "paymentProof", h.maxUpload, h.logger)
	if !ok {
		return
	}

	order, err := h.orderService.Finalize(r.Context(), middleware.PrincipalFrom(r.Context()), service.FinalizeInput{
		ShippingZone:    r.FormValue("shippingZone"),
		ShippingMethod:  r.FormValue("shippingMethod"),
		ShippingAddress: r.FormValue("shippingAddress"),
		PaymentProof:    proof,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Order finalized",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.Total.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, OrderResponse{Msg: "Pedido realizado con éxito", Order: order})
}

// UpdateStatus ships a pending order
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUpload, h.logger) {
		return
	}
	proof, ok := readFormFile(w, r, "shippingProof", h.maxUpload, h.logger)
	if !ok {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), service.StatusInput{
		Status:        r.FormValue("status"),
		ShippingProof: proof,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderResponse{Msg: "Estado del pedido actualizado", Order: order})
}

// History lists orders visible to the caller
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.History(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Detail returns one order
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Detail(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
