package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewsFilterBlocking(t *testing.T) {
	nf := NewNewsFilter(30 * time.Minute)
	release := time.Date(2025, 6, 4, 12, 30, 0, 0, time.UTC)
	nf.AddEvent("FOMC", release)

	// Inside the window on either side of the release.
	assert.NotNil(t, nf.Blocking(release.Add(-20*time.Minute)))
	assert.NotNil(t, nf.Blocking(release.Add(29*time.Minute)))

	// Outside the window.
	assert.Nil(t, nf.Blocking(release.Add(-31*time.Minute)))
	assert.Nil(t, nf.Blocking(release.Add(2*time.Hour)))

	blocking := nf.Blocking(release)
	assert.Equal(t, "FOMC", blocking.Name)
}

func TestNewsFilterUpcoming(t *testing.T) {
	nf := NewNewsFilter(30 * time.Minute)
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	nf.AddEvent("CPI", now.Add(4*time.Hour))
	nf.AddEvent("NFP", now.Add(48*time.Hour))
	nf.AddEvent("past release", now.Add(-2*time.Hour))

	upcoming := nf.Upcoming(now)
	assert.Len(t, upcoming, 1)
	assert.Equal(t, "CPI", upcoming[0].Name)
}

func TestNewsFilterPrune(t *testing.T) {
	nf := NewNewsFilter(30 * time.Minute)
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	nf.AddEvent("stale", now.Add(-48*time.Hour))
	nf.AddEvent("recent", now.Add(-1*time.Hour))
	nf.AddEvent("future", now.Add(6*time.Hour))

	nf.Prune(now)

	assert.Nil(t, nf.Blocking(now.Add(-48*time.Hour)))
	assert.NotNil(t, nf.Blocking(now.Add(-1*time.Hour)))
	assert.NotNil(t, nf.Blocking(now.Add(6*time.Hour)))
}

func TestRegimeClassification(t *testing.T) {
	// Short series falls back to ranging with its reduced sizing.
	r := ClassifyRegime(nil)
	assert.Equal(t, RegimeRanging, r.Regime)
	assert.Equal(t, 0.7, r.SizeMultiplier)
	assert.Equal(t, "mean_reversion", r.Strategy)

	up := trendingCandles(120, 100, 1)
	r = ClassifyRegime(up)
	assert.Equal(t, RegimeTrendingUp, r.Regime)
	assert.Equal(t, 1.0, r.SizeMultiplier)
	assert.Equal(t, "trend_following", r.Strategy)

	down := trendingCandles(120, 300, -1)
	r = ClassifyRegime(down)
	assert.Equal(t, RegimeTrendingDown, r.Regime)
}
