package identity

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"example.com/woodtrack/services/production/internal/cache"
)

// RedisSessionStore keeps sessions in Redis so every API instance sees the
// same session set and revocation takes effect immediately.
type RedisSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a session store on top of the Redis cache
func NewRedisSessionStore(c *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: c, ttl: ttl}
}

// Put stores a session under its token for the configured TTL
func (s *RedisSessionStore) Put(ctx context.Context, session Session) error {
	return errors.Wrap(
		s.cache.Set(ctx, cache.GetSessionCacheKey(session.Token), session, s.ttl),
		"failed to store session",
	)
}

// Get returns the session for a token, or nil when it does not exist
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	var session Session
	err := s.cache.Get(ctx, cache.GetSessionCacheKey(token), &session)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load session")
	}
	return &session, nil
}

// Delete revokes a session
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, cache.GetSessionCacheKey(token))
}

// MemorySessionStore is an in-process SessionStore used in tests and when
// Redis is disabled.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Put stores a session
func (s *MemorySessionStore) Put(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

// Get returns the session for a token, or nil when absent or expired
func (s *MemorySessionStore) Get(ctx context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

// Delete revokes a session
func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
