// Package session keeps the live-session records that decide whether a
// refresh token is still honorable. A session is a JSON snapshot of the
// identity, keyed by the identity id, with a sliding TTL: every save
// resets the clock. Deleting the key is a server-side forced logout
// that works even while the user's tokens remain cryptographically
// valid.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/learnhub/auth-service/internal/model"
)

// ErrCacheMiss is returned by a Cache when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// ErrNoSession is returned by the Store when no live session exists for
// an identity. A structurally valid refresh token whose session is gone
// must be treated as unauthenticated, not as a forgery.
var ErrNoSession = errors.New("no live session")

// Cache is the minimal contract this package needs from the backing
// cache service: atomic per-key get/set/delete with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Store reads and writes identity snapshots through a Cache.
type Store struct {
	cache Cache
	ttl   time.Duration
}

// NewStore returns a Store whose sessions live for ttl after each save.
func NewStore(cache Cache, ttl time.Duration) *Store {
	return &Store{cache: cache, ttl: ttl}
}

// Save writes the identity snapshot and resets the session TTL. It is
// called on login, social auth, every successful refresh, and profile
// mutations that should be visible without a reload.
func (s *Store) Save(ctx context.Context, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, sessionKey(u.ID), string(b), s.ttl); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// Get returns the live identity snapshot for id, or ErrNoSession when
// the session expired or was revoked.
func (s *Store) Get(ctx context.Context, id uint64) (model.User, error) {
	v, err := s.cache.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return model.User{}, ErrNoSession
		}
		return model.User{}, fmt.Errorf("session get: %w", err)
	}
	var u model.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return model.User{}, fmt.Errorf("session decode: %w", err)
	}
	return u, nil
}

// Delete revokes the live session. Deleting an absent session is not an
// error.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	if err := s.cache.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// TTL reports the remaining lifetime of the session for id.
func (s *Store) TTL(ctx context.Context, id uint64) (time.Duration, error) {
	return s.cache.TTL(ctx, sessionKey(id))
}

// Keys are bare identity ids; other redis users (the rate limiter)
// namespace themselves with prefixes.
func sessionKey(id uint64) string { return strconv.FormatUint(id, 10) }
