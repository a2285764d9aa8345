package redisstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/combo-store/internal/domain/cart"
)

const cartKeyPrefix = "store:cart:"

var _ cart.SessionStore = (*CartStore)(nil)

// CartStore keeps one JSON-encoded cart per browsing session. Every read or
// write pushes the expiry forward by ttl.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore returns a CartStore whose carts expire after ttl of inactivity.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// Load returns the session's cart, or an empty cart when none is stored.
func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	key := cartKey(sessionID)
	c := cart.New()
	ok, err := getJSON(ctx, s.client, key, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return cart.New(), nil
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return nil, errors.Wrapf(err, "touch %s", key)
	}
	return c, nil
}

// Save replaces the stored cart.
func (s *CartStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	return setJSON(ctx, s.client, cartKey(sessionID), c, s.ttl)
}

// Delete drops the session's cart. Deleting a missing cart is not an error.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return errors.Wrapf(err, "delete cart %s", sessionID)
	}
	return nil
}
