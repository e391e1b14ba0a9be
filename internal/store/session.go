package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/puremall/storefront/internal/auth"
	"github.com/puremall/storefront/internal/backend"
	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
)

// Backend is the full mall-backend surface a session needs.
type Backend interface {
	CartBackend
	OrderBackend
	WishlistBackend
	Login(ctx context.Context, username, password string) (*backend.LoginResult, error)
	Register(ctx context.Context, reg backend.Registration) error
}

// BackendFactory builds a backend client bound to one session's bearer token
// and forced-logout hook.
type BackendFactory func(token func() string, onUnauthorized func()) Backend

// Session is the per-user unit of state: one cart, one order pipeline, the
// mall bearer token, and the notification feed. One session exists per
// signed-in user; a second login replaces the first.
type Session struct {
	ID        string
	UserID    string
	Username  string
	CreatedAt time.Time

	Cart     *CartState
	Orders   *OrderState
	Wishlist *WishlistState
	Feed     *Feed

	mu           sync.Mutex
	backendToken string
	countdown    *Countdown
}

// StartPaymentCountdown opens the payment window for the session, replacing
// any previous one. The session keeps the handle so view teardown can stop it.
func (s *Session) StartPaymentCountdown(onTimeout func()) *Countdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil {
		s.countdown.Stop()
	}
	s.countdown = StartCountdown(onTimeout)
	return s.countdown
}

// PaymentCountdown returns the running payment countdown, or nil.
func (s *Session) PaymentCountdown() *Countdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}

// StopPaymentCountdown releases the payment window timer.
func (s *Session) StopPaymentCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

// BackendToken returns the mall bearer token. Empty after a forced logout.
func (s *Session) BackendToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendToken
}

func (s *Session) setBackendToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendToken = token
}

// SessionManager owns the live sessions, keyed by user. It mints the
// storefront's own session tokens and tears sessions down on logout, both
// voluntary and forced by a backend 401.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	jwt         *auth.JWTManager
	newBackend  BackendFactory
	snapshots   SnapshotStore
	cartEvents  CartEvents
	orderEvents OrderEvents
	logger      *slog.Logger
}

// NewSessionManager creates a session manager. snapshots, cartEvents, and
// orderEvents may be nil.
func NewSessionManager(jwtManager *auth.JWTManager, newBackend BackendFactory, snapshots SnapshotStore, cartEvents CartEvents, orderEvents OrderEvents, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		jwt:         jwtManager,
		newBackend:  newBackend,
		snapshots:   snapshots,
		cartEvents:  cartEvents,
		orderEvents: orderEvents,
		logger:      logger,
	}
}

// Login authenticates against the mall backend and builds a fresh session:
// snapshot state is restored first as a cache, then the authoritative cart
// and address book are fetched. Returns the session and its signed token.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*Session, string, error) {
	bootstrap := m.newBackend(func() string { return "" }, func() {})
	res, err := bootstrap.Login(ctx, username, password)
	if err != nil {
		m.logger.WarnContext(ctx, "login failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, "", err
	}

	sessionID := res.UserID

	sess := &Session{
		ID:        sessionID,
		UserID:    res.UserID,
		Username:  res.Username,
		CreatedAt: time.Now(),
		Feed:      NewFeed(),
	}
	sess.setBackendToken(res.Token)

	be := m.newBackend(sess.BackendToken, func() { m.ForceLogout(sessionID) })
	ids := NewIDSource()
	sess.Cart = NewCartState(sessionID, be, m.snapshots, m.cartEvents, sess.Feed, ids, m.logger)
	sess.Orders = NewOrderState(sessionID, res.UserID, be, m.snapshots, m.orderEvents, sess.Feed, ids, m.logger)
	sess.Wishlist = NewWishlistState(sessionID, be, sess.Feed, m.logger)

	m.restore(ctx, sess)

	if err := sess.Cart.Load(ctx); err != nil {
		m.logger.WarnContext(ctx, "cart reload deferred to snapshot state",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	if err := sess.Orders.LoadAddresses(ctx); err != nil {
		m.logger.WarnContext(ctx, "address book load failed at login",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	if err := sess.Wishlist.Load(ctx); err != nil {
		m.logger.WarnContext(ctx, "wishlist load failed at login",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	token, err := m.jwt.GenerateSessionToken(sessionID, res.UserID, res.Username)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session started",
		slog.String("session_id", sessionID),
		slog.String("username", res.Username),
	)
	return sess, token, nil
}

// Register creates a backend account. It does not open a session; the
// shopper logs in afterwards.
func (m *SessionManager) Register(ctx context.Context, reg backend.Registration) error {
	bootstrap := m.newBackend(func() string { return "" }, func() {})
	if err := bootstrap.Register(ctx, reg); err != nil {
		m.logger.WarnContext(ctx, "registration failed",
			slog.String("username", reg.Username),
			slog.String("error", err.Error()),
		)
		return err
	}

	m.logger.InfoContext(ctx, "account registered",
		slog.String("username", reg.Username),
	)
	return nil
}

// Authenticate resolves a session token to its live session.
func (m *SessionManager) Authenticate(token string) (*Session, error) {
	claims, err := m.jwt.ValidateSessionToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session token")
	}

	m.mu.RLock()
	sess, ok := m.sessions[claims.SessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.Unauthorized("session not found, please log in again")
	}
	return sess, nil
}

// Logout tears a session down. Snapshots are kept so the next login restores
// the shopper's working state.
func (m *SessionManager) Logout(ctx context.Context, sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		sess.StopPaymentCountdown()
		m.logger.InfoContext(ctx, "session ended",
			slog.String("session_id", sessionID),
		)
	}
}

// ForceLogout is the backend-401 hook: the mall token is no longer honored,
// so the session is invalidated and the shopper is pointed back at the entry
// route.
func (m *SessionManager) ForceLogout(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return
	}

	sess.setBackendToken("")
	sess.StopPaymentCountdown()
	sess.Feed.Error("登录已过期，请重新登录")
	sess.Feed.NavigateTo(RouteLogin)

	m.logger.Warn("session force-logged out by backend 401",
		slog.String("session_id", sessionID),
	)
}

// ActiveSessions returns the number of live sessions.
func (m *SessionManager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// restore seeds the new session from persisted snapshots ahead of the
// authoritative backend fetch. Missing snapshots are not an error.
func (m *SessionManager) restore(ctx context.Context, sess *Session) {
	if m.snapshots == nil {
		return
	}

	if lines, err := m.snapshots.LoadCart(ctx, sess.ID); err == nil {
		sess.Cart.Restore(lines)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		m.logger.WarnContext(ctx, "cart snapshot restore failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}

	var orders []domain.Order
	if loaded, err := m.snapshots.LoadOrders(ctx, sess.ID); err == nil {
		orders = loaded
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		m.logger.WarnContext(ctx, "orders snapshot restore failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}

	var current *domain.Order
	if loaded, err := m.snapshots.LoadCurrentOrder(ctx, sess.ID); err == nil {
		current = loaded
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		m.logger.WarnContext(ctx, "current order snapshot restore failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}

	if orders != nil || current != nil {
		sess.Orders.Restore(orders, current)
	}
}
