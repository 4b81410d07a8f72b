package resource

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := NewPool(DefaultLimits(), logger)
	require.NoError(t, err)
	return pool
}

func TestNewPool_InvalidLimits(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		limits Limits
	}{
		{
			name:   "missing kind",
			limits: Limits{CPU: {HardCap: 100, Ceiling: 100}},
		},
		{
			name: "ceiling above cap",
			limits: Limits{
				CPU:    {HardCap: 100, Ceiling: 150},
				Memory: {HardCap: 1024, Ceiling: 512},
				GPU:    {HardCap: 100, Ceiling: 100},
			},
		},
		{
			name: "zero cap",
			limits: Limits{
				CPU:    {HardCap: 0, Ceiling: 0},
				Memory: {HardCap: 1024, Ceiling: 512},
				GPU:    {HardCap: 100, Ceiling: 100},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPool(tc.limits, nil)
			assert.ErrorIs(t, err, ErrInvalidLimit)
		})
	}
}

func TestPool_ExceedsCeiling(t *testing.T) {
	t.Parallel()
	pool := newTestPool(t)

	assert.False(t, pool.ExceedsCeiling(Requirement{CPU: 100, Memory: 4096}))
	assert.True(t, pool.ExceedsCeiling(Requirement{CPU: 150}))
	assert.True(t, pool.ExceedsCeiling(Requirement{Memory: 10240}))
	assert.True(t, pool.ExceedsCeiling(Requirement{Kind("disk"): 1}))
	assert.False(t, pool.ExceedsCeiling(nil))

	// Independent of load.
	require.True(t, pool.TryReserve(Requirement{CPU: 100}))
	assert.False(t, pool.ExceedsCeiling(Requirement{CPU: 50}))
}

func TestPool_TryReserveAllOrNothing(t *testing.T) {
	t.Parallel()
	pool := newTestPool(t)

	require.True(t, pool.TryReserve(Requirement{CPU: 60, Memory: 1024}))

	// CPU fits but GPU does not: nothing may be committed.
	ok := pool.TryReserve(Requirement{CPU: 20, GPU: 101})
	assert.False(t, ok)
	assert.Equal(t, 60.0, pool.Allocated(CPU))
	assert.Equal(t, 0.0, pool.Allocated(GPU))

	// CPU does not fit.
	assert.False(t, pool.TryReserve(Requirement{CPU: 41}))
	assert.True(t, pool.TryReserve(Requirement{CPU: 40}))
	assert.Equal(t, 100.0, pool.Allocated(CPU))
}

func TestPool_ReleaseClampsAtZero(t *testing.T) {
	t.Parallel()
	pool := newTestPool(t)

	require.True(t, pool.TryReserve(Requirement{CPU: 30, Memory: 512}))
	pool.Release(Requirement{CPU: 30, Memory: 512})
	pool.Release(Requirement{CPU: 30, Memory: 512})

	snap := pool.Snapshot()
	assert.Equal(t, 0.0, snap[CPU].Allocated)
	assert.Equal(t, 0.0, snap[Memory].Allocated)
	assert.Equal(t, 100.0, snap[CPU].Total)
}

func TestPool_FractionalDriftSettlesToZero(t *testing.T) {
	t.Parallel()
	pool := newTestPool(t)

	amounts := []float64{0.1, 0.2, 0.3, 12.7, 33.3}
	for _, v := range amounts {
		require.True(t, pool.TryReserve(Requirement{CPU: v}))
	}
	for _, v := range amounts {
		pool.Release(Requirement{CPU: v})
	}
	assert.Equal(t, 0.0, pool.Allocated(CPU))
}

func TestPool_ConcurrentReserveNeverExceedsCap(t *testing.T) {
	t.Parallel()
	pool := newTestPool(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pool.TryReserve(Requirement{CPU: 10, GPU: 5}) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, granted)
	assert.Equal(t, 100.0, pool.Allocated(CPU))
	assert.Equal(t, 50.0, pool.Allocated(GPU))
}

func TestRequirement_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Requirement{CPU: 0, Memory: 10}.Validate())
	assert.ErrorIs(t, Requirement{CPU: -1}.Validate(), ErrNegativeAmount)
	assert.ErrorIs(t, Requirement{Kind("disk"): 1}.Validate(), ErrUnknownKind)
	assert.ErrorIs(t, Requirement{CPU: math.NaN()}.Validate(), ErrNonFinite)
	assert.ErrorIs(t, Requirement{Memory: math.Inf(1)}.Validate(), ErrNonFinite)
	assert.ErrorIs(t, Requirement{GPU: math.Inf(-1)}.Validate(), ErrNonFinite)
	assert.Equal(t, "cpu=20 memory=768", Requirement{Memory: 768, CPU: 20}.String())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind(" GPU ")
	require.NoError(t, err)
	assert.Equal(t, GPU, k)
	assert.Equal(t, "percent", k.Unit())

	_, err = ParseKind("disk")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
