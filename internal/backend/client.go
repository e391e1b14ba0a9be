// Package backend is the REST client for the authoritative mall backend. The
// storefront never owns commerce data; every cart and order mutation is
// mirrored here, and this client is the only place that understands the
// backend's response envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// envelope is the backend's uniform response shape. A code other than 200 is
// an application-level failure even when the HTTP status is 200.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const okCode = 200

// Client talks to the mall backend.
type Client struct {
	http           HTTPDoer
	baseURL        string
	logger         *slog.Logger
	token          func() string
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithToken supplies the bearer token source. An empty token means the
// Authorization header is omitted.
func WithToken(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithUnauthorizedHook registers the forced-logout hook invoked whenever the
// backend answers HTTP 401.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one request/response cycle against the backend: marshal the
// payload, attach the bearer token, translate HTTP 401 into a forced logout,
// and unwrap the envelope into out.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apperrors.Unauthorized("backend session expired")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend %s %s returned status %d: %s", method, path, resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode backend %s %s response: %w", method, path, err)
	}

	if env.Code != okCode {
		return apperrors.Remote(env.Code, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode backend %s %s data: %w", method, path, err)
		}
	}
	return nil
}

// --- Cart ---

// CartList fetches the full remote cart. A malformed payload (data that is
// not an array) degrades to an empty cart rather than an error: the remote
// list is replaced wholesale by callers and must never panic the storefront.
func (c *Client) CartList(ctx context.Context) (domain.CartLines, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/cart", nil, &raw); err != nil {
		return nil, err
	}

	var lines domain.CartLines
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &lines); err != nil {
			c.logger.WarnContext(ctx, "cart payload is not a list, treating as empty",
				slog.String("error", err.Error()),
			)
			return domain.CartLines{}, nil
		}
	}
	if lines == nil {
		lines = domain.CartLines{}
	}
	return lines, nil
}

// CartAdd reports a new line to the backend. The payload is always the
// original add request; merging identical (productId, spec) lines is the
// backend's own responsibility.
func (c *Client) CartAdd(ctx context.Context, line domain.CartLine) error {
	return c.call(ctx, http.MethodPost, "/cart", line, nil)
}

// CartUpdateQuantity updates one line's quantity.
func (c *Client) CartUpdateQuantity(ctx context.Context, id int64, quantity int) error {
	payload := map[string]int{"quantity": quantity}
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/cart/%d", id), payload, nil)
}

// CartSetSelected toggles one line's selection flag.
func (c *Client) CartSetSelected(ctx context.Context, id int64, selected bool) error {
	payload := map[string]bool{"selected": selected}
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/cart/%d/select", id), payload, nil)
}

// CartSetSelectedAll toggles every line's selection flag.
func (c *Client) CartSetSelectedAll(ctx context.Context, selected bool) error {
	payload := map[string]bool{"selected": selected}
	return c.call(ctx, http.MethodPut, "/cart/select-all", payload, nil)
}

// CartRemove deletes one line.
func (c *Client) CartRemove(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", id), nil, nil)
}

// CartRemoveBatch deletes several lines at once.
func (c *Client) CartRemoveBatch(ctx context.Context, ids []int64) error {
	payload := map[string][]int64{"ids": ids}
	return c.call(ctx, http.MethodPost, "/cart/remove-batch", payload, nil)
}

// CartClear empties the remote cart.
func (c *Client) CartClear(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}

// --- Orders ---

// OrderCreate persists a new order.
func (c *Client) OrderCreate(ctx context.Context, order *domain.Order) error {
	return c.call(ctx, http.MethodPost, "/orders", order, nil)
}

// OrderGet fetches one order by its number.
func (c *Client) OrderGet(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	if err := c.call(ctx, http.MethodGet, "/orders/"+orderNumber, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderCancel asks the backend to cancel an order.
func (c *Client) OrderCancel(ctx context.Context, orderNumber string) error {
	return c.call(ctx, http.MethodPut, "/orders/"+orderNumber+"/cancel", nil, nil)
}

// OrderDelete removes an order from the shopper's history.
func (c *Client) OrderDelete(ctx context.Context, orderNumber string) error {
	return c.call(ctx, http.MethodDelete, "/orders/"+orderNumber, nil, nil)
}

// --- User / addresses ---

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Login exchanges credentials for a backend bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var res LoginResult
	if err := c.call(ctx, http.MethodPost, "/user/login", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Registration is the payload for creating a backend account.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Register creates a new backend account. The shopper still logs in
// afterwards; registration does not issue a token.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.call(ctx, http.MethodPost, "/user/register", reg, nil)
}

// AddressList fetches the shopper's address book.
func (c *Client) AddressList(ctx context.Context) (domain.AddressBook, error) {
	var book domain.AddressBook
	if err := c.call(ctx, http.MethodGet, "/user/addresses", nil, &book); err != nil {
		return nil, err
	}
	return book, nil
}

// AddressCreate adds an address and returns it with the backend-assigned id.
func (c *Client) AddressCreate(ctx context.Context, addr domain.Address) (*domain.Address, error) {
	var created domain.Address
	if err := c.call(ctx, http.MethodPost, "/user/addresses", addr, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AddressDelete removes an address.
func (c *Client) AddressDelete(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/user/addresses/%d", id), nil, nil)
}

// AddressSetDefault marks an address as the shopper's default.
func (c *Client) AddressSetDefault(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/user/addresses/%d/default", id), nil, nil)
}

// --- Wishlist ---

// WishlistList fetches the shopper's saved products.
func (c *Client) WishlistList(ctx context.Context) (domain.Wishlist, error) {
	var items domain.Wishlist
	if err := c.call(ctx, http.MethodGet, "/wishlist", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = domain.Wishlist{}
	}
	return items, nil
}

// WishlistAdd saves a product to the wishlist.
func (c *Client) WishlistAdd(ctx context.Context, productID int64) error {
	return c.call(ctx, http.MethodPost, "/wishlist", map[string]int64{"productId": productID}, nil)
}

// WishlistRemove deletes a product from the wishlist.
func (c *Client) WishlistRemove(ctx context.Context, productID int64) error {
	return c.call(ctx, http.MethodDelete, "/wishlist/item", map[string]int64{"productId": productID}, nil)
}
