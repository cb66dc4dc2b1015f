//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/pkg/testutil/containers"
)

func TestRedisLock(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	a := NewRedis(rc.Client.Client, WithTTL(2*time.Second), WithRetryDelay(5*time.Millisecond))
	b := NewRedis(rc.Client.Client, WithRetryDelay(5*time.Millisecond))

	unlock, err := a.Lock(ctx, "assessment:1")
	require.NoError(t, err)

	t.Run("a second holder waits", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := b.Lock(short, "assessment:1")
		assert.Error(t, err)
	})

	t.Run("other keys are independent", func(t *testing.T) {
		other, err := b.Lock(ctx, "assessment:2")
		require.NoError(t, err)
		other()
	})

	unlock()
	next, err := b.Lock(ctx, "assessment:1")
	require.NoError(t, err)
	next()
}

func TestRedisLockExpires(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	crashed := NewRedis(rc.Client.Client, WithTTL(100*time.Millisecond))
	_, err := crashed.Lock(ctx, "assessment:9")
	require.NoError(t, err)

	waiter := NewRedis(rc.Client.Client, WithRetryDelay(10*time.Millisecond))
	wait, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	unlock, err := waiter.Lock(wait, "assessment:9")
	require.NoError(t, err)
	unlock()
}
