// Package snapshot persists per-session storefront state to Redis so that a
// session reconnect restores the cart and the in-flight order exactly as the
// shopper left them. Snapshots are a cache of the shopper's working state;
// the mall backend remains the system of record.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
)

const (
	cartKeyPrefix   = "storefront:cart:"
	orderKeyPrefix  = "storefront:order:"
	ordersKeyPrefix = "storefront:orders:"
)

// Store keeps session snapshots in Redis with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed snapshot store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// LoadCart restores a session's cart lines.
func (s *Store) LoadCart(ctx context.Context, sessionID string) (domain.CartLines, error) {
	data, err := s.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart snapshot", sessionID)
		}
		return nil, fmt.Errorf("redis get cart snapshot: %w", err)
	}

	var lines domain.CartLines
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	return lines, nil
}

// SaveCart persists a session's cart lines.
func (s *Store) SaveCart(ctx context.Context, sessionID string, lines domain.CartLines) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	if err := s.client.Set(ctx, cartKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart snapshot: %w", err)
	}
	return nil
}

// DeleteCart drops a session's cart snapshot.
func (s *Store) DeleteCart(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del cart snapshot: %w", err)
	}
	return nil
}

// LoadCurrentOrder restores the order being checked out, if any.
func (s *Store) LoadCurrentOrder(ctx context.Context, sessionID string) (*domain.Order, error) {
	data, err := s.client.Get(ctx, orderKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("order snapshot", sessionID)
		}
		return nil, fmt.Errorf("redis get order snapshot: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order snapshot: %w", err)
	}
	return &order, nil
}

// SaveCurrentOrder persists the order being checked out.
func (s *Store) SaveCurrentOrder(ctx context.Context, sessionID string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order snapshot: %w", err)
	}
	if err := s.client.Set(ctx, orderKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set order snapshot: %w", err)
	}
	return nil
}

// DeleteCurrentOrder drops the in-flight order snapshot.
func (s *Store) DeleteCurrentOrder(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, orderKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del order snapshot: %w", err)
	}
	return nil
}

// LoadOrders restores a session's local order history.
func (s *Store) LoadOrders(ctx context.Context, sessionID string) ([]domain.Order, error) {
	data, err := s.client.Get(ctx, ordersKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("orders snapshot", sessionID)
		}
		return nil, fmt.Errorf("redis get orders snapshot: %w", err)
	}

	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders snapshot: %w", err)
	}
	return orders, nil
}

// SaveOrders persists a session's local order history.
func (s *Store) SaveOrders(ctx context.Context, sessionID string, orders []domain.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders snapshot: %w", err)
	}
	if err := s.client.Set(ctx, ordersKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set orders snapshot: %w", err)
	}
	return nil
}

// Clear drops every snapshot a session holds. Used on logout.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	keys := []string{
		cartKeyPrefix + sessionID,
		orderKeyPrefix + sessionID,
		ordersKeyPrefix + sessionID,
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear session snapshots: %w", err)
	}
	return nil
}
