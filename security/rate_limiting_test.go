package security

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Allow_UnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := &redisStore{redis: db, limit: 10, window: time.Minute}

	mock.ExpectIncr("ratelimit:user:user-1").SetVal(1)
	mock.ExpectExpire("ratelimit:user:user-1", time.Minute).SetVal(true)

	allowed, err := store.Allow("user:user-1")

	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Allow_OverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := &redisStore{redis: db, limit: 10, window: time.Minute}

	mock.ExpectIncr("ratelimit:192.0.2.1").SetVal(11)

	allowed, err := store.Allow("192.0.2.1")

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisStore_Allow_CustomPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := &redisStore{redis: db, prefix: "verify", limit: 5, window: 10 * time.Minute}

	mock.ExpectIncr("verify:192.0.2.1").SetVal(6)

	allowed, err := store.Allow("192.0.2.1")

	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisStore_Allow_FailsOpenWhenRedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := &redisStore{redis: db, limit: 10, window: time.Minute}

	mock.ExpectIncr("ratelimit:192.0.2.1").SetErr(assert.AnError)

	allowed, err := store.Allow("192.0.2.1")

	require.NoError(t, err)
	assert.True(t, allowed)
}
