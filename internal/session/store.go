package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"resto_order_backend/internal/models"
)

const (
	keyPrefix = "session:"

	fieldCart           = "cart"
	fieldGuestID        = "guest_id"
	fieldDiningMode     = "dining_mode"
	fieldDiningCapacity = "dining_capacity"
)

// DefaultTTL is how long an idle session survives. Every read and write
// pushes the expiry forward.
const DefaultTTL = 2 * time.Hour

// Store keeps per-session state (cart, guest identity, dining selection) in
// a Redis hash per session ID.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Cart returns the session's cart, or an empty cart when none is stored.
func (s *Store) Cart(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	raw, err := s.client.HGet(ctx, sessionKey(sessionID), fieldCart).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.CartItem{}, nil
		}
		return nil, fmt.Errorf("failed to read cart for session %s: %w", sessionID, err)
	}
	var cart []models.CartItem
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart for session %s: %w", sessionID, err)
	}
	s.touch(ctx, sessionID)
	return cart, nil
}

// SaveCart stores the cart and refreshes the session TTL.
func (s *Store) SaveCart(ctx context.Context, sessionID string, cart []models.CartItem) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart for session %s: %w", sessionID, err)
	}
	if err := s.client.HSet(ctx, sessionKey(sessionID), fieldCart, payload).Err(); err != nil {
		return fmt.Errorf("failed to save cart for session %s: %w", sessionID, err)
	}
	s.touch(ctx, sessionID)
	return nil
}

// ClearCart drops the cart field, leaving the rest of the session intact.
func (s *Store) ClearCart(ctx context.Context, sessionID string) error {
	if err := s.client.HDel(ctx, sessionKey(sessionID), fieldCart).Err(); err != nil {
		return fmt.Errorf("failed to clear cart for session %s: %w", sessionID, err)
	}
	return nil
}

// GuestID returns the session's guest identity, or "" when none exists yet.
func (s *Store) GuestID(ctx context.Context, sessionID string) (string, error) {
	guestID, err := s.client.HGet(ctx, sessionKey(sessionID), fieldGuestID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read guest ID for session %s: %w", sessionID, err)
	}
	return guestID, nil
}

// SetGuestID persists the generated guest identity for the session.
func (s *Store) SetGuestID(ctx context.Context, sessionID, guestID string) error {
	if err := s.client.HSet(ctx, sessionKey(sessionID), fieldGuestID, guestID).Err(); err != nil {
		return fmt.Errorf("failed to save guest ID for session %s: %w", sessionID, err)
	}
	s.touch(ctx, sessionID)
	return nil
}

// Dining returns the session's dining selection. Sessions that never chose
// default to takeaway for one.
func (s *Store) Dining(ctx context.Context, sessionID string) (models.DiningMode, int, error) {
	values, err := s.client.HMGet(ctx, sessionKey(sessionID), fieldDiningMode, fieldDiningCapacity).Result()
	if err != nil {
		return "", 0, fmt.Errorf("failed to read dining selection for session %s: %w", sessionID, err)
	}

	mode := models.DiningModeTakeAway
	if raw, ok := values[0].(string); ok && models.IsValidDiningMode(raw) {
		mode = models.DiningMode(raw)
	}
	capacity := 1
	if raw, ok := values[1].(string); ok {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 {
			capacity = parsed
		}
	}
	return mode, capacity, nil
}

// SetDining stores the dining mode and requested party size.
func (s *Store) SetDining(ctx context.Context, sessionID string, mode models.DiningMode, capacity int) error {
	if capacity < 1 {
		capacity = 1
	}
	err := s.client.HSet(ctx, sessionKey(sessionID),
		fieldDiningMode, string(mode),
		fieldDiningCapacity, capacity,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save dining selection for session %s: %w", sessionID, err)
	}
	s.touch(ctx, sessionID)
	return nil
}

func (s *Store) touch(ctx context.Context, sessionID string) {
	s.client.Expire(ctx, sessionKey(sessionID), s.ttl)
}
