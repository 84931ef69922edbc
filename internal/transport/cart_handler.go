package transport

import (
	"net/http"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartLineRequest is one product of an add batch
type CartLineRequest struct {
	ProductID *string `json:"productId"`
	Quantity  *int    `json:"quantity"`
}

// AddToCartRequest adds several products at once
type AddToCartRequest struct {
	Products []CartLineRequest `json:"products"`
}

// UpdateCartRequest changes one line's quantity
type UpdateCartRequest struct {
	ProductID   string `json:"productId"`
	NewQuantity *int   `json:"newQuantity"`
}

// CartResponse wraps the cart with a message
type CartResponse struct {
	Msg  string       `json:"msg"`
	Cart *domain.Cart `json:"cart"`
}

// CartHandler handles HTTP requests for the customer cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddItems)
		r.Put("/update", h.UpdateQuantity)
		r.Delete("/remove/{productId}", h.RemoveItem)
	})
}

// AddItems adds a batch of products to the cart
func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	lines := make([]service.CartLine, 0, len(req.Products))
	for _, p := range req.Products {
		lines = append(lines, service.CartLine{ProductID: p.ProductID, Quantity: p.Quantity})
	}

	cart, err := h.cartService.AddItems(r.Context(), middleware.PrincipalFrom(r.Context()), lines)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Msg: "Productos agregados al carrito", Cart: cart})
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.GetCart(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateQuantity sets a line's quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	cart, err := h.cartService.UpdateQuantity(r.Context(), middleware.PrincipalFrom(r.Context()), req.ProductID, req.NewQuantity)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Msg: "Cantidad actualizada", Cart: cart})
}

// RemoveItem drops a product from the cart; the cart is null once empty
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.RemoveItem(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Msg: "Producto eliminado del carrito", Cart: cart})
}
