package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("order", "PO12345678")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "PO12345678")
}

func TestAppError_Unwrap(t *testing.T) {
	err := InvalidInput("quantity must be at least 1")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("add to cart: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
}

func TestRemote(t *testing.T) {
	err := Remote(500, "库存不足")
	assert.True(t, errors.Is(err, ErrRemote))
	assert.Contains(t, err.Message, "500")
	assert.Contains(t, err.Message, "库存不足")
	assert.Equal(t, http.StatusBadGateway, err.Status)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("address", "7"), http.StatusNotFound},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("token expired"), http.StatusUnauthorized},
		{"conflict", Conflict("default address changed"), http.StatusConflict},
		{"payment failed", PaymentFailed("card declined"), http.StatusUnprocessableEntity},
		{"remote", Remote(500, "down"), http.StatusBadGateway},
		{"unavailable", Unavailable("breaker open"), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("x: %w", ErrUnauthorized), http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
