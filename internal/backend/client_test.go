package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/httpclient"
	"github.com/puremall/storefront/pkg/logger"
)

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	log := logger.New("backend-test", "debug")
	hc := httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
	return NewClient(hc, serverURL, log, opts...)
}

func TestCartList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"code":200,"message":"ok","data":[
			{"id":1,"productId":10,"name":"Mug","price":1999,"quantity":2,"selected":true},
			{"id":2,"productId":11,"name":"Cap","price":2999,"quantity":1,"selected":false}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithToken(func() string { return "tok-123" }))

	lines, err := c.CartList(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Mug", lines[0].Name)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Selected)
}

func TestCartListMalformedDataIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"message":"ok","data":{"unexpected":"object"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	lines, err := c.CartList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.NotNil(t, lines)
}

func TestEnvelopeCodeFailureOnHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":500,"message":"库存不足","data":null}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.CartAdd(context.Background(), domain.CartLine{ProductID: 10, Quantity: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRemote)
	assert.Contains(t, err.Error(), "库存不足")
}

func TestUnauthorizedTriggersLogoutHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var loggedOut atomic.Bool
	c := newTestClient(t, srv.URL, WithUnauthorizedHook(func() { loggedOut.Store(true) }))

	_, err := c.OrderGet(context.Background(), "PO123")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.True(t, loggedOut.Load())
}

func TestOrderCreateSendsSnapshot(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"code":200,"message":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	order := &domain.Order{
		OrderNumber: "PO1700000000000",
		Status:      domain.OrderStatusPending,
		OrderAmount: 5497,
		Items: []domain.OrderItem{
			{ProductID: 10, Name: "Mug", Price: 1999, Quantity: 2},
		},
	}
	require.NoError(t, c.OrderCreate(context.Background(), order))
	assert.Equal(t, "POST /orders", gotPath)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/user/login", r.URL.Path)
		w.Write([]byte(`{"code":200,"message":"ok","data":{"token":"jwt-abc","userId":"u1","username":"alice"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	res, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", res.Token)
	assert.Equal(t, "u1", res.UserID)
}

func TestAddressRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /user/addresses":
			w.Write([]byte(`{"code":200,"data":[{"id":1,"name":"Alice","isDefault":true}]}`))
		case "PUT /user/addresses/1/default":
			w.Write([]byte(`{"code":200}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	book, err := c.AddressList(context.Background())
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.True(t, book[0].IsDefault)

	require.NoError(t, c.AddressSetDefault(context.Background(), 1))
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.CartClear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
