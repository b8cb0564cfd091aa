package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/studio-backoffice/shared/models"
)

func withTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetRedisClient(nil) })
	return mr
}

func TestSessionRoundTrip(t *testing.T) {
	withTestRedis(t)

	created, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)
	assert.NotContains(t, created.SessionID, "acc-1", "session id must be opaque")

	loaded, err := GetSession(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", loaded.AccountID)
	assert.Equal(t, models.RoleEmployee, loaded.Role)
}

func TestGetSessionUnknownID(t *testing.T) {
	withTestRedis(t)

	_, err := GetSession("nope")
	assert.Error(t, err)
}

func TestExpiredSessionIsDeletedOnRead(t *testing.T) {
	mr := withTestRedis(t)

	created, err := CreateSession("acc-1", models.RoleEmployee, time.Minute)
	require.NoError(t, err)

	// Redis TTL has not fired yet, but the embedded expiry has passed.
	mr.FastForward(30 * time.Second)
	_, err = GetSession(created.SessionID)
	require.NoError(t, err)

	// Force the record's own expiry into the past.
	stale, err := CreateSession("acc-2", models.RoleEmployee, -time.Second)
	require.NoError(t, err)
	_, err = GetSession(stale.SessionID)
	assert.Error(t, err)

	// A second read misses entirely: the expired record was removed.
	_, err = GetSession(stale.SessionID)
	assert.Error(t, err)
}

func TestTouchSessionKeepsExpiry(t *testing.T) {
	withTestRedis(t)

	created, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	require.NoError(t, err)

	require.NoError(t, TouchSession(created.SessionID))

	loaded, err := GetSession(created.SessionID)
	require.NoError(t, err)
	assert.True(t, loaded.LastUsedAt.After(created.LastUsedAt) || loaded.LastUsedAt.Equal(created.LastUsedAt))
	assert.WithinDuration(t, created.ExpiresAt, loaded.ExpiresAt, time.Second,
		"touching must not extend the session lifetime")
}

func TestRevokeSession(t *testing.T) {
	withTestRedis(t)

	created, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	require.NoError(t, err)

	require.NoError(t, RevokeSession(created.SessionID))

	_, err = GetSession(created.SessionID)
	assert.Error(t, err)
}

func TestRevokeAccountSessions(t *testing.T) {
	withTestRedis(t)

	first, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	require.NoError(t, err)
	second, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	require.NoError(t, err)
	other, err := CreateSession("acc-2", models.RoleClient, time.Hour)
	require.NoError(t, err)

	require.NoError(t, RevokeAccountSessions("acc-1"))

	_, err = GetSession(first.SessionID)
	assert.Error(t, err)
	_, err = GetSession(second.SessionID)
	assert.Error(t, err)

	kept, err := GetSession(other.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", kept.AccountID)
}

func TestSessionOperationsWithoutClient(t *testing.T) {
	SetRedisClient(nil)

	_, err := CreateSession("acc-1", models.RoleEmployee, time.Hour)
	assert.Error(t, err)
	_, err = GetSession("anything")
	assert.Error(t, err)
	assert.Error(t, RevokeSession("anything"))
}
