package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/agent-chat/internal/common"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(context.Background()))
	return s, mr
}

func TestRevokeToken(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	jti, err := common.NewULID()
	require.NoError(t, err)

	gone, err := s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, gone)

	require.NoError(t, s.RevokeToken(ctx, jti, time.Minute))
	gone, err = s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, gone)
	assert.Equal(t, time.Minute, mr.TTL(revokedPrefix+jti))

	// the entry lives only as long as the token would have
	mr.FastForward(time.Minute + time.Second)
	gone, err = s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestRevokeToken_ExpiredIsNoop(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	jti, err := common.NewULID()
	require.NoError(t, err)

	require.NoError(t, s.RevokeToken(ctx, jti, -time.Second))
	assert.False(t, mr.Exists(revokedPrefix+jti))
	gone, err := s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestIsTokenRevoked_StoreDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.IsTokenRevoked(context.Background(), "any")
	assert.Error(t, err)
}
