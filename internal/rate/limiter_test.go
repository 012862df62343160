package rate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/firebridge/internal/rate"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := rate.NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed, "hit %d should be allowed", i)
		require.Equal(t, int64(i), res.CurrentHits)
		require.Equal(t, int64(3-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, int64(0), res.Remaining)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, time.Hour)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := rate.NewMemoryLimiter(1, time.Hour)
	ctx := context.Background()

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Otra IP no se ve afectada.
	res, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	// Ventana cortísima para que el reset ocurra dentro del test.
	l := rate.NewMemoryLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	time.Sleep(60 * time.Millisecond)

	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, int64(1), res.CurrentHits)
}
