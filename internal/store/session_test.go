package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puremall/storefront/internal/auth"
	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/logger"
)

func newTestManager(be *fakeBackend, snaps SnapshotStore) *SessionManager {
	factory := func(func() string, func()) Backend { return be }
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	return NewSessionManager(jwtManager, factory, snaps, nil, nil, logger.New("session-test", "error"))
}

func TestLogin_BuildsSession(t *testing.T) {
	be := newFakeBackend()
	be.listResult = domain.CartLines{{ID: 1, ProductID: 10, Price: 100, Quantity: 1, Selected: true}}
	be.addressBook = testBook()
	m := newTestManager(be, newMemSnapshots())

	sess, token, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotEmpty(t, token)

	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, "mall-token", sess.BackendToken())
	assert.Equal(t, 1, m.ActiveSessions())

	// The authoritative cart and address book were fetched at login.
	assert.Len(t, sess.Cart.Lines(), 1)
	assert.Len(t, sess.Orders.Addresses(), 2)

	got, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestLogin_BackendFailure(t *testing.T) {
	be := newFakeBackend()
	be.failWith("Login", errors.New("bad credentials"))
	m := newTestManager(be, nil)

	sess, token, err := m.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, token)
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestLogin_RestoresSnapshotWhenBackendCartFails(t *testing.T) {
	be := newFakeBackend()
	be.failWith("CartList", errors.New("backend down"))
	snaps := newMemSnapshots()
	require.NoError(t, snaps.SaveCart(context.Background(), "u1", domain.CartLines{
		{ID: 5, ProductID: 7, Price: 250, Quantity: 2, Selected: true},
	}))
	m := newTestManager(be, snaps)

	sess, _, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	// The snapshot seeded the cart and survived the failed authoritative load.
	lines := sess.Cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(5), lines[0].ID)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	m := newTestManager(newFakeBackend(), nil)

	_, err := m.Authenticate("garbage")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthenticate_LoggedOutSession(t *testing.T) {
	be := newFakeBackend()
	m := newTestManager(be, nil)

	sess, token, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	m.Logout(context.Background(), sess.ID)
	assert.Equal(t, 0, m.ActiveSessions())

	_, err = m.Authenticate(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestForceLogout(t *testing.T) {
	be := newFakeBackend()
	m := newTestManager(be, nil)

	sess, token, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	m.ForceLogout(sess.ID)

	assert.Equal(t, 0, m.ActiveSessions())
	assert.Empty(t, sess.BackendToken())
	_, err = m.Authenticate(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	messages, routes := sess.Feed.Drain()
	require.NotEmpty(t, messages)
	assert.Equal(t, LevelError, messages[0].Level)
	require.Len(t, routes, 1)
	assert.Equal(t, RouteLogin, routes[0])

	// A second 401 for the same session is a no-op.
	m.ForceLogout(sess.ID)
}

func TestLogin_ReplacesExistingSession(t *testing.T) {
	be := newFakeBackend()
	m := newTestManager(be, nil)

	first, _, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	second, _, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, 1, m.ActiveSessions())
	assert.NotSame(t, first, second)
}
