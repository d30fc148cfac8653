package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is an alternate Store backend storing each
// session as a JSON blob under SESSION_BACKEND=redis. Grounded on
// kernel.RedisLimiterStore's client setup (github.com/redis/go-redis/v9),
// generalised from a token-bucket Lua script to plain GET/SET with a
// TTL matching §4.5's 30-minute eviction window.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry connects to addr/db with the given password (empty
// for none) and TTL. The connection is established lazily by the
// client; callers that want to fail fast should call Ping themselves.
func NewRedisRegistry(addr, password string, db int, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:    ttl,
	}
}

// Ping verifies connectivity; used by cmd/fleetd at startup when
// SESSION_BACKEND=redis to fail closed on misconfiguration rather than
// silently falling back to per-process memory.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type wireSession struct {
	ChatHandle string    `json:"chatHandle"`
	History    []Turn    `json:"history"`
	LastAccess time.Time `json:"lastAccess"`
}

func redisKey(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

// Get loads the session for (userID, sessionID) from Redis, creating a
// blank in-memory stand-in (not yet persisted) on a cache miss. Because
// a *Session's mutex can't cross the wire, the returned value is a
// local copy; callers must call Save to persist any change.
func (r *RedisRegistry) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	raw, err := r.client.Get(ctx, redisKey(userID, sessionID)).Bytes()
	if err == redis.Nil {
		return &Session{UserID: userID, ID: sessionID, LastAccess: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var w wireSession
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("session: redis unmarshal: %w", err)
	}
	return &Session{
		UserID:     userID,
		ID:         sessionID,
		ChatHandle: w.ChatHandle,
		History:    w.History,
		LastAccess: w.LastAccess,
	}, nil
}

// Save persists s, refreshing its TTL unless it is the default session
// (which, matching the in-memory registry, never expires).
func (r *RedisRegistry) Save(ctx context.Context, s *Session) error {
	w := wireSession{ChatHandle: s.ChatHandle, History: s.History, LastAccess: s.LastAccess}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("session: redis marshal: %w", err)
	}
	ttl := r.ttl
	if s.ID == DefaultSessionID {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKey(s.UserID, s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Evict removes a session's Redis entry outright.
func (r *RedisRegistry) Evict(ctx context.Context, userID, sessionID string) error {
	return r.client.Del(ctx, redisKey(userID, sessionID)).Err()
}

// Close releases the underlying client's connections.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
