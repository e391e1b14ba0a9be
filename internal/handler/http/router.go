// Package http exposes the storefront session state machine to the view
// layer. Every response carries the session's pending notifications and
// navigation signals alongside the data, so the view renders exactly what the
// stores decided.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/puremall/storefront/internal/store"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/health"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/middleware"
)

type contextKey string

const sessionKey contextKey = "storefront_session"

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	sessions *store.SessionManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	h := NewHandler(sessions, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/session/register", h.Register)
		r.Post("/session/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticated)

			r.Post("/session/logout", h.Logout)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/reload", h.ReloadCart)
				r.Post("/items", h.AddToCart)
				r.Put("/items/{id}/quantity", h.UpdateQuantity)
				r.Put("/items/{id}/selected", h.SetSelected)
				r.Put("/selected", h.SetSelectAll)
				r.Delete("/items/{id}", h.RemoveLine)
				r.Delete("/selected", h.RemoveSelected)
				r.Delete("/", h.ClearCart)
				r.Post("/checkout", h.Checkout)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.GetCheckout)
				r.Put("/delivery", h.SetDeliveryMethod)
				r.Put("/payment", h.SetPaymentMethod)
				r.Put("/remark", h.SetRemark)
				r.Post("/submit", h.ProceedToPayment)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Get("/{orderNumber}", h.GetOrder)
				r.Post("/{orderNumber}/pay", h.CompletePayment)
				r.Post("/{orderNumber}/cancel", h.CancelOrder)
				r.Put("/{orderNumber}/status", h.ApplyRemoteStatus)
				r.Delete("/{orderNumber}", h.DeleteOrder)
			})

			r.Route("/payment/countdown", func(r chi.Router) {
				r.Post("/", h.StartCountdown)
				r.Get("/", h.GetCountdown)
				r.Delete("/", h.StopCountdown)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.GetWishlist)
				r.Post("/items", h.AddToWishlist)
				r.Delete("/items/{id}", h.RemoveFromWishlist)
				r.Get("/contains/{id}", h.WishlistContains)
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", h.ListAddresses)
				r.Post("/", h.AddAddress)
				r.Put("/{id}/default", h.SetDefaultAddress)
				r.Delete("/{id}", h.DeleteAddress)
			})
		})
	})

	return r
}

// Handler handles all storefront HTTP requests.
type Handler struct {
	sessions *store.SessionManager
	logger   *slog.Logger
}

// NewHandler creates the storefront HTTP handler.
func NewHandler(sessions *store.SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// ContentTypeJSON sets the response content type for API routes.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Authenticated resolves the bearer session token and stores the session in
// the request context.
func (h *Handler) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("missing bearer token"), h.logger)
			return
		}

		sess, err := h.sessions.Authenticate(token)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the authenticated session stored by the middleware.
func sessionFrom(r *http.Request) *store.Session {
	sess, _ := r.Context().Value(sessionKey).(*store.Session)
	return sess
}

// ViewState is the data envelope every authenticated response carries: the
// payload plus the notifications and navigation signals the stores produced
// while handling the request.
type ViewState struct {
	Data     any             `json:"data,omitempty"`
	Messages []store.Message `json:"messages,omitempty"`
	Navigate []string        `json:"navigate,omitempty"`
}

// render drains the session feed into the response.
func (h *Handler) render(w http.ResponseWriter, sess *store.Session, status int, data any) {
	messages, routes := sess.Feed.Drain()
	httputil.WriteJSON(w, status, httputil.Response{Data: ViewState{
		Data:     data,
		Messages: messages,
		Navigate: routes,
	}})
}
