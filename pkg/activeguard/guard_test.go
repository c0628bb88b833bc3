package activeguard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	guard := NewLocal()

	release, err := guard.Acquire(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, guard.Held("w1"))

	_, err = guard.Acquire(ctx, "w1")
	assert.ErrorIs(t, err, ErrHeld)

	// other workers are independent
	releaseOther, err := guard.Acquire(ctx, "w2")
	require.NoError(t, err)
	require.NoError(t, releaseOther(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, guard.Held("w1"))

	release, err = guard.Acquire(ctx, "w1")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLocal_StaleReleaseDoesNotDropNewClaim(t *testing.T) {
	ctx := context.Background()
	guard := NewLocal()

	first, err := guard.Acquire(ctx, "w1")
	require.NoError(t, err)
	require.NoError(t, first(ctx))

	_, err = guard.Acquire(ctx, "w1")
	require.NoError(t, err)

	// releasing the old claim twice must not free the new holder
	require.NoError(t, first(ctx))
	assert.True(t, guard.Held("w1"))
}

func TestLocal_Concurrent(t *testing.T) {
	ctx := context.Background()
	guard := NewLocal()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := guard.Acquire(ctx, "w1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal().Acquire(ctx, "w1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedis_Defaults(t *testing.T) {
	guard := NewRedis(nil, "", 0)

	assert.Equal(t, "shiftlog:active:w-42", guard.Key("w-42"))
	assert.Equal(t, DefaultTTL, guard.ttl)

	guard = NewRedis(nil, "crew-a", time.Minute)
	assert.Equal(t, "crew-a:active:w-42", guard.Key("w-42"))
	assert.Equal(t, time.Minute, guard.ttl)
}
