package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/atelierhq/studio-backoffice/shared/models"
)

var (
	RedisClient *redis.Client
	ctx         = context.Background()
)

// SessionRecord is the server-side session stored in Redis against the opaque
// session id handed to the browser in a cookie. Only the lookup key for the
// identity store is kept here; the principal itself is loaded fresh per
// request.
type SessionRecord struct {
	SessionID  string      `json:"session_id"`
	AccountID  string      `json:"account_id"`
	Role       models.Role `json:"role"`
	CreatedAt  time.Time   `json:"created_at"`
	LastUsedAt time.Time   `json:"last_used_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

func (s *SessionRecord) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// InitRedis initializes the Redis client
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return nil
}

// SetRedisClient swaps the client; used by tests to point at a fake server.
func SetRedisClient(client *redis.Client) {
	RedisClient = client
}

// GetRedisClient returns the Redis client instance
func GetRedisClient() *redis.Client {
	return RedisClient
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// CreateSession stores a new session record and returns it. The generated
// session id is opaque; it carries no account information.
func CreateSession(accountID string, role models.Role, ttl time.Duration) (*SessionRecord, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	now := time.Now()
	session := &SessionRecord{
		SessionID:  uuid.NewString(),
		AccountID:  accountID,
		Role:       role,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := RedisClient.Set(ctx, sessionKey(session.SessionID), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// GetSession looks up a session by its opaque id. Expired sessions are
// deleted on read.
func GetSession(sessionID string) (*SessionRecord, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session SessionRecord
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		RedisClient.Del(ctx, sessionKey(sessionID))
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// TouchSession updates the last-used timestamp without extending expiry.
func TouchSession(sessionID string) error {
	session, err := GetSession(sessionID)
	if err != nil {
		return err
	}

	session.LastUsedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return fmt.Errorf("session expired")
	}

	return RedisClient.Set(ctx, sessionKey(sessionID), data, remaining).Err()
}

// RevokeSession removes a session.
func RevokeSession(sessionID string) error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return RedisClient.Del(ctx, sessionKey(sessionID)).Err()
}

// RevokeAccountSessions removes every session belonging to an account.
func RevokeAccountSessions(accountID string) error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}

	keys, err := RedisClient.Keys(ctx, "session:*").Result()
	if err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}

	for _, key := range keys {
		data, err := RedisClient.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		var session SessionRecord
		if json.Unmarshal([]byte(data), &session) == nil {
			if session.AccountID == accountID {
				RedisClient.Del(ctx, key)
			}
		}
	}

	return nil
}
