package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xenking/combo-store/internal/domain/pos"
)

const posKeyPrefix = "store:pos:"

var _ pos.SessionStore = (*POSStore)(nil)

// POSStore persists terminal sessions so a terminal can reload mid-sale.
type POSStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPOSStore returns a POSStore. A zero ttl keeps sessions until replaced.
func NewPOSStore(client *redis.Client, ttl time.Duration) *POSStore {
	return &POSStore{client: client, ttl: ttl}
}

// Load returns the terminal's session, or nil when none is stored.
func (s *POSStore) Load(ctx context.Context, terminalID string) (*pos.Session, error) {
	var sess pos.Session
	ok, err := getJSON(ctx, s.client, posKeyPrefix+terminalID, &sess)
	if err != nil || !ok {
		return nil, err
	}
	if sess.Cart == nil {
		sess.Cart = pos.NewSession(terminalID).Cart
	}
	return &sess, nil
}

// Save stores the session under its terminal id.
func (s *POSStore) Save(ctx context.Context, sess *pos.Session) error {
	return setJSON(ctx, s.client, posKeyPrefix+sess.TerminalID, sess, s.ttl)
}
