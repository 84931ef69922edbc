package transport

import (
	"errors"
	"net/http"
	"testing"

	"vinyl-store/internal/domain"
	"vinyl-store/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCartHandler_AddItems(t *testing.T) {
	svc := &stubCartService{cart: sampleCart()}
	router := newRouter(NewCartHandler(svc, zap.NewNop()), domain.CustomerPrincipal(uuid.New()))

	productID := uuid.NewString()
	w := serve(router, jsonRequest(t, http.MethodPost, "/api/cart/add", map[string]interface{}{
		"products": []map[string]interface{}{
			{"productId": productID, "quantity": 2},
			{"productId": productID},
		},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lines, 2)
	assert.Equal(t, productID, *svc.lines[0].ProductID)
	assert.Equal(t, 2, *svc.lines[0].Quantity)
	// Missing fields reach the service as nil so it can reject them in order
	assert.Nil(t, svc.lines[1].Quantity)

	var body CartResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "20", body.Cart.Total.String())
}

func TestCartHandler_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", &service.Error{Kind: service.KindConflict, Message: "El producto Kind of Blue ya está en el carrito"}, http.StatusConflict},
		{"forbidden", &service.Error{Kind: service.KindForbidden, Message: "Acceso denegado"}, http.StatusForbidden},
		{"not found", &service.Error{Kind: service.KindNotFound, Message: "No tienes productos en el carrito"}, http.StatusNotFound},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCartService{err: tt.err}
			router := newRouter(NewCartHandler(svc, zap.NewNop()), domain.CustomerPrincipal(uuid.New()))

			w := serve(router, jsonRequest(t, http.MethodGet, "/api/cart", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, msgOf(t, w))
		})
	}
}

func TestCartHandler_RejectsMalformedBody(t *testing.T) {
	svc := &stubCartService{}
	router := newRouter(NewCartHandler(svc, zap.NewNop()), domain.CustomerPrincipal(uuid.New()))

	w := serve(router, jsonRequest(t, http.MethodPut, "/api/cart/update", "not an object"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_UpdateAndRemove(t *testing.T) {
	svc := &stubCartService{cart: sampleCart()}
	router := newRouter(NewCartHandler(svc, zap.NewNop()), domain.CustomerPrincipal(uuid.New()))

	productID := uuid.NewString()
	w := serve(router, jsonRequest(t, http.MethodPut, "/api/cart/update", map[string]interface{}{
		"productId":   productID,
		"newQuantity": 3,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, productID, svc.productID)
	assert.Equal(t, 3, *svc.quantity)

	svc.cart = nil
	w = serve(router, jsonRequest(t, http.MethodDelete, "/api/cart/remove/"+productID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, productID, svc.productID)

	var body CartResponse
	decodeBody(t, w, &body)
	assert.Nil(t, body.Cart)
}
