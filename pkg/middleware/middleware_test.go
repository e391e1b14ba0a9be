package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/puremall/storefront/pkg/logger"
)

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", "error", &buf)

	h := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRequestLogging_SetsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", "info", &buf)

	h := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, logger.CorrelationIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Contains(t, buf.String(), "request completed")
}

func TestRequestLogging_PropagatesIncomingCorrelationID(t *testing.T) {
	log := logger.NewWithWriter("test", "error", &bytes.Buffer{})

	h := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Correlation-ID", "corr-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-7", rec.Header().Get("X-Correlation-ID"))
}
