package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"vinyl-store/internal/config"
	"vinyl-store/internal/domain"
	"vinyl-store/internal/middleware"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

const testMaxUpload = 5 << 20

// principalMiddleware stands in for JWT auth and injects a fixed caller
func principalMiddleware(principal domain.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), principal)))
		})
	}
}

type routes interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

func newRouter(h routes, principal domain.Principal) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r, principalMiddleware(principal))
	return r
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFileField struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...formFileField) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func msgOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponse
	decodeBody(t, w, &body)
	return body.Msg
}

// Stub services

type stubCartService struct {
	lines     []service.CartLine
	productID string
	quantity  *int
	cart      *domain.Cart
	err       error
}

func (s *stubCartService) AddItems(_ context.Context, _ domain.Principal, lines []service.CartLine) (*domain.Cart, error) {
	s.lines = lines
	return s.cart, s.err
}

func (s *stubCartService) GetCart(context.Context, domain.Principal) (*domain.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, _ domain.Principal, productID string, quantity *int) (*domain.Cart, error) {
	s.productID, s.quantity = productID, quantity
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _ domain.Principal, productID string) (*domain.Cart, error) {
	s.productID = productID
	return s.cart, s.err
}

type stubOrderService struct {
	called    bool
	principal domain.Principal
	finalize  service.FinalizeInput
	status    service.StatusInput
	orderID   string
	order     *domain.Order
	summaries []domain.OrderSummary
	err       error
}

func (s *stubOrderService) Finalize(_ context.Context, p domain.Principal, in service.FinalizeInput) (*domain.Order, error) {
	s.called, s.principal, s.finalize = true, p, in
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, p domain.Principal, id string, in service.StatusInput) (*domain.Order, error) {
	s.called, s.principal, s.orderID, s.status = true, p, id, in
	return s.order, s.err
}

func (s *stubOrderService) History(_ context.Context, p domain.Principal) ([]domain.OrderSummary, error) {
	s.principal = p
	return s.summaries, s.err
}

func (s *stubOrderService) Detail(_ context.Context, p domain.Principal, id string) (*domain.Order, error) {
	s.principal, s.orderID = p, id
	return s.order, s.err
}

type stubAuthService struct {
	register  service.RegisterInput
	pushToken string
	customer  *domain.Customer
	admin     *domain.Administrator
	token     string
	err       error
}

func (s *stubAuthService) RegisterCustomer(_ context.Context, in service.RegisterInput) (*domain.Customer, error) {
	s.register = in
	return s.customer, s.err
}

func (s *stubAuthService) LoginCustomer(context.Context, string, string) (string, *domain.Customer, error) {
	return s.token, s.customer, s.err
}

func (s *stubAuthService) LoginAdmin(context.Context, string, string) (string, *domain.Administrator, error) {
	return s.token, s.admin, s.err
}

func (s *stubAuthService) GetProfile(context.Context, domain.Principal) (*domain.Customer, error) {
	return s.customer, s.err
}

func (s *stubAuthService) UpdatePushToken(_ context.Context, _ domain.Principal, token string) error {
	s.pushToken = token
	return s.err
}

func (s *stubAuthService) ValidateToken(string) (*service.Claims, error) {
	return nil, s.err
}

func (s *stubAuthService) EnsureAdmin(context.Context, config.AdminConfig) error {
	return s.err
}

type stubProductService struct {
	input    service.ProductInput
	patch    service.ProductPatch
	filter   repository.ProductFilter
	product  *domain.Product
	products []*domain.Product
	err      error
}

func (s *stubProductService) Create(_ context.Context, _ domain.Principal, in service.ProductInput) (*domain.Product, error) {
	s.input = in
	return s.product, s.err
}

func (s *stubProductService) Update(_ context.Context, _ domain.Principal, _ string, patch service.ProductPatch) (*domain.Product, error) {
	s.patch = patch
	return s.product, s.err
}

func (s *stubProductService) Delete(context.Context, domain.Principal, string) error {
	return s.err
}

func (s *stubProductService) Get(context.Context, string) (*domain.Product, error) {
	return s.product, s.err
}

func (s *stubProductService) List(_ context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	s.filter = filter
	return s.products, len(s.products), s.err
}

type stubEventService struct {
	input  service.EventInput
	event  *domain.Event
	events []*domain.Event
	err    error
}

func (s *stubEventService) Create(_ context.Context, _ domain.Principal, in service.EventInput) (*domain.Event, error) {
	s.input = in
	return s.event, s.err
}

func (s *stubEventService) Update(_ context.Context, _ domain.Principal, _ string, in service.EventInput) (*domain.Event, error) {
	s.input = in
	return s.event, s.err
}

func (s *stubEventService) Delete(context.Context, domain.Principal, string) error {
	return s.err
}

func (s *stubEventService) Get(context.Context, domain.Principal, string) (*domain.Event, error) {
	return s.event, s.err
}

func (s *stubEventService) List(context.Context, domain.Principal) ([]*domain.Event, error) {
	return s.events, s.err
}

func sampleCart() *domain.Cart {
	cart := &domain.Cart{ID: uuid.New(), CustomerID: uuid.New()}
	cart.Items = []domain.CartItem{{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	cart.Total = decimal.NewFromInt(20)
	return cart
}
