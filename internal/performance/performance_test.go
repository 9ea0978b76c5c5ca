package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

func closesSeries(closes ...float64) models.Series {
	base := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	s := make(models.Series, len(closes))
	for i, c := range closes {
		s[i] = models.Bar{Time: base.AddDate(0, 0, i), Close: c}
	}
	return s
}

func TestChangePct(t *testing.T) {
	t.Run("needs n+1 closes", func(t *testing.T) {
		_, ok := ChangePct([]float64{100, 101, 102, 103, 104}, 5)
		assert.False(t, ok)

		v, ok := ChangePct([]float64{100, 101, 102, 103, 104, 108}, 5)
		require.True(t, ok)
		assert.Equal(t, 8.0, v)
	})

	t.Run("zero base is undefined", func(t *testing.T) {
		_, ok := ChangePct([]float64{0, 5}, 1)
		assert.False(t, ok)
	})

	t.Run("rounds to two places", func(t *testing.T) {
		v, ok := ChangePct([]float64{3, 4}, 1)
		require.True(t, ok)
		assert.Equal(t, 33.33, v)
	})

	t.Run("invalid window", func(t *testing.T) {
		_, ok := ChangePct([]float64{1, 2}, 0)
		assert.False(t, ok)
	})
}

func TestChanges(t *testing.T) {
	c := Changes(closesSeries(100, 101, 102, 103, 104, 108))
	assert.Equal(t, WindowChanges{1: 3.85, 5: 8}, c)

	_, ok := c.Get(20)
	assert.False(t, ok)
}

func TestRelativeStrengthScenario(t *testing.T) {
	instrument := WindowChanges{5: 8}
	bench := &Benchmark{Symbol: "^GSPC", Changes: WindowChanges{5: 3}}

	rs := Compare(instrument, bench)
	assert.Equal(t, WindowStrength{5: 5}, rs)
}

func TestRelativeStrengthAntisymmetric(t *testing.T) {
	pairs := [][2]float64{{8, 3}, {-2.45, 7.1}, {0, 0}, {12.34, -56.78}, {0.01, 0.02}}
	for _, p := range pairs {
		assert.Equal(t, RelativeStrength(p[0], p[1]), -RelativeStrength(p[1], p[0]), "%v", p)
	}
}

func TestCompareMissingWindows(t *testing.T) {
	instrument := WindowChanges{5: 1, 20: 2, 50: 4}
	bench := &Benchmark{Changes: WindowChanges{5: 1, 20: 1, 200: 9}}

	rs := Compare(instrument, bench)
	assert.Equal(t, WindowStrength{5: 0, 20: 1}, rs)

	assert.Empty(t, Compare(instrument, nil), "no benchmark means no relative strength")
}

func TestApply(t *testing.T) {
	var snap models.Snapshot
	Apply(&snap, WindowChanges{1: 1.5, 5: 8}, WindowStrength{5: 5})

	require.NotNil(t, snap.ChangePct1D)
	assert.Equal(t, 1.5, *snap.ChangePct1D)
	require.NotNil(t, snap.RS5D)
	assert.Equal(t, 5.0, *snap.RS5D)
	assert.Nil(t, snap.ChangePct20D)
	assert.Nil(t, snap.RS200D)
}

func TestNewBenchmark(t *testing.T) {
	b := NewBenchmark("^GSPC", closesSeries(100, 103))
	assert.Equal(t, "^GSPC", b.Symbol)
	assert.Equal(t, WindowChanges{1: 3}, b.Changes)
}
