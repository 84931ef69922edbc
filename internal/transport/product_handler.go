package transport

import (
	"net/http"
	"strconv"
	"strings"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductListResponse is one page of the catalog
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	productService service.ProductService
	maxUpload      int64
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, maxUpload int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		maxUpload:      maxUpload,
		logger:         logger,
	}
}

// RegisterRoutes registers the public catalog and admin mutations
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns a filtered page of products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ProductFilter{
		Genre:     query.Get("genre"),
		Query:     query.Get("q"),
		SortBy:    query.Get("sortBy"),
		SortOrder: repository.SortOrder(strings.ToUpper(query.Get("sortOrder"))),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.PageSize, _ = strconv.Atoi(query.Get("pageSize"))
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	products, total, err := h.productService.List(r.Context(), filter)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// Get returns one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create registers a product from a multipart form
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUpload, h.logger) {
		return
	}

	price, stock := formValue(r, "price"), formValue(r, "stock")
	if price == nil || stock == nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "Lo sentimos, debes llenar todos los campos")
		return
	}
	in := service.ProductInput{
		Name:        r.FormValue("name"),
		Artist:      r.FormValue("artist"),
		Genre:       r.FormValue("genre"),
		CustomGenre: r.FormValue("customGenre"),
	}

	var ok bool
	if in.Price, ok = h.parsePrice(w, *price); !ok {
		return
	}
	if in.Stock, ok = h.parseStock(w, *stock); !ok {
		return
	}
	if in.Image, ok = readFormFile(w, r, "image", h.maxUpload, h.logger); !ok {
		return
	}

	product, err := h.productService.Create(r.Context(), middleware.PrincipalFrom(r.Context()), in)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update applies a partial change from a multipart form
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUpload, h.logger) {
		return
	}

	patch := service.ProductPatch{
		Name:        formValue(r, "name"),
		Artist:      formValue(r, "artist"),
		Genre:       formValue(r, "genre"),
		CustomGenre: r.FormValue("customGenre"),
	}
	if raw := formValue(r, "price"); raw != nil {
		price, ok := h.parsePrice(w, *raw)
		if !ok {
			return
		}
		patch.Price = &price
	}
	if raw := formValue(r, "stock"); raw != nil {
		stock, ok := h.parseStock(w, *raw)
		if !ok {
			return
		}
		patch.Stock = &stock
	}

	var ok bool
	if patch.Image, ok = readFormFile(w, r, "image", h.maxUpload, h.logger); !ok {
		return
	}

	product, err := h.productService.Update(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Msg: "Producto eliminado exitosamente"})
}

func (h *ProductHandler) parsePrice(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "El precio debe ser un número válido")
		return decimal.Zero, false
	}
	return price, true
}

func (h *ProductHandler) parseStock(w http.ResponseWriter, raw string) (int, bool) {
	stock, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "El stock debe ser un número entero")
		return 0, false
	}
	return stock, true
}
