package traffic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficsignal/backend/services/signal-controller/internal/clock"
)

var start = time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)

func TestCountsAreCachedWithinRefreshInterval(t *testing.T) {
	clk := clock.NewManual(start)
	src := NewSource(Config{MinCars: 0, MaxCars: 1000, Refresh: 7 * time.Second, Seed: 42}, clk)

	assert.True(t, src.RefreshedAt().IsZero())
	first := src.Counts()
	assert.Equal(t, start, src.RefreshedAt())

	clk.Advance(6999 * time.Millisecond)
	assert.Equal(t, first, src.Counts())
	assert.Equal(t, start, src.RefreshedAt())
}

func TestCountsRegenerateAfterRefreshInterval(t *testing.T) {
	clk := clock.NewManual(start)
	src := NewSource(Config{MinCars: 0, MaxCars: 1000, Refresh: 7 * time.Second, Seed: 42}, clk)

	first := src.Counts()

	changed := false
	for i := 0; i < 5 && !changed; i++ {
		now := clk.Advance(7 * time.Second)
		next := src.Counts()
		require.Equal(t, now, src.RefreshedAt())
		changed = next != first
	}
	assert.True(t, changed, "a fresh vector over 0..1000 should differ from the first one")
}

func TestCountsStayWithinBounds(t *testing.T) {
	clk := clock.NewManual(start)
	src := NewSource(Config{MinCars: 5, MaxCars: 8, Refresh: time.Second, Seed: 7}, clk)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		for _, c := range src.Counts() {
			require.GreaterOrEqual(t, c, 5)
			require.LessOrEqual(t, c, 8)
			seen[c] = true
		}
		clk.Advance(time.Second)
	}
	assert.Len(t, seen, 4, "both bounds are inclusive")
}

func TestSameSeedSameSequence(t *testing.T) {
	cfg := Config{MinCars: 0, MaxCars: 40, Refresh: time.Second, Seed: 99}
	clkA := clock.NewManual(start)
	clkB := clock.NewManual(start)
	a := NewSource(cfg, clkA)
	b := NewSource(cfg, clkB)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Counts(), b.Counts())
		clkA.Advance(time.Second)
		clkB.Advance(time.Second)
	}
}

func TestFixedRangeAndDefaults(t *testing.T) {
	clk := clock.NewManual(start)
	src := NewSource(Config{MinCars: 3, MaxCars: 3, Refresh: time.Second, Seed: 1}, clk)
	assert.Equal(t, Counts{3, 3, 3, 3}, src.Counts())

	inverted := NewSource(Config{MinCars: 9, MaxCars: 2, Refresh: time.Second, Seed: 1}, clk)
	assert.Equal(t, Counts{9, 9, 9, 9}, inverted.Counts())

	def := DefaultConfig()
	assert.Equal(t, 0, def.MinCars)
	assert.Equal(t, 40, def.MaxCars)
	assert.Equal(t, 7*time.Second, def.Refresh)
}
