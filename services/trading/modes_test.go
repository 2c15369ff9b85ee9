package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetModeCaseInsensitive(t *testing.T) {
	for _, name := range []string{"moderate", "Moderate", "MODERATE"} {
		mode, err := GetMode(name)
		assert.NoError(t, err)
		assert.Equal(t, "MODERATE", mode.Name)
		assert.Equal(t, 45.0, mode.MinScore)
		assert.Equal(t, 3, mode.MaxPositions)
	}
}

func TestGetModeUnknown(t *testing.T) {
	_, err := GetMode("YOLO")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trade mode")
}

func TestModePresets(t *testing.T) {
	modes := AllModes()
	assert.Len(t, modes, len(ModeNames()))
	for _, name := range ModeNames() {
		mode, ok := modes[name]
		assert.True(t, ok, name)
		assert.Equal(t, name, mode.Name)
		assert.Greater(t, mode.MinScore, 0.0)
		assert.Greater(t, mode.MaxPositions, 0)
		assert.GreaterOrEqual(t, mode.MinRR, 1.5)
	}

	// The conservative preset is the strictest of the bundle.
	cons := modes["CONSERVATIVE"]
	assert.Equal(t, 1, cons.MaxPositions)
	assert.True(t, cons.MTFStrict)
	assert.True(t, cons.CorrelationFilter)
	assert.Equal(t, 3.0, cons.MinRR)

	scalper := modes["SCALPER"]
	assert.False(t, scalper.SessionFilter)
	assert.False(t, scalper.NewsFilter)
}
