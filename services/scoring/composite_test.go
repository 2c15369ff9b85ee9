package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/analysis"
)

func TestComputeEmptyInputsIsNeutral(t *testing.T) {
	result := Compute(Inputs{})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, DirectionNeutral, result.Direction)
	assert.Equal(t, StrengthNone, result.Strength)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Conflicts)
	// The modifier never drops below the floor.
	assert.Equal(t, 0.3, result.SizeModifier)
}

func TestComputeStrongConfluence(t *testing.T) {
	in := Inputs{
		MTF: &analysis.MTFResult{
			Alignment: analysis.AlignBullish,
			TrendM15:  analysis.TrendStrongUp,
		},
		SMC: &analysis.SMCResult{
			Best: &analysis.SMCSignal{Direction: DirectionLong, Confidence: 0.8},
		},
		Flow:      &analysis.OrderflowResult{Pressure: analysis.FlowStrongBuy},
		Profile:   &analysis.VolumeProfileResult{Recommendation: "BREAKOUT_LONG"},
		OI:        &analysis.OpenInterestResult{Regime: analysis.OIShortsClosing},
		Regime:    &analysis.RegimeResult{Regime: analysis.RegimeTrendingUp},
		Sentiment: &analysis.SentimentResult{Signal: analysis.SentimentStrongBuy},
		Correlation: &analysis.CorrelationResult{
			Regime:      analysis.CorrIndependent,
			SafeToTrade: true,
		},
		WhaleScore: 0.8,
		WhaleOK:    true,
	}

	result := Compute(in)

	assert.InDelta(t, 81.0, result.Score, 1e-9)
	assert.Equal(t, DirectionLong, result.Direction)
	assert.Equal(t, StrengthStrong, result.Strength)
	assert.InDelta(t, 0.81, result.Confidence, 1e-9)
	assert.InDelta(t, 0.6561, result.SizeModifier, 1e-9)
	assert.Empty(t, result.Conflicts)
}

func TestComputeBearishDirection(t *testing.T) {
	in := Inputs{
		MTF: &analysis.MTFResult{
			Alignment: analysis.AlignBearish,
			TrendM15:  analysis.TrendStrongDown,
		},
		SMC: &analysis.SMCResult{
			Best: &analysis.SMCSignal{Direction: DirectionShort, Confidence: 0.9},
		},
		Flow: &analysis.OrderflowResult{Pressure: analysis.FlowStrongSell},
	}

	result := Compute(in)

	assert.Less(t, result.Score, -ConflictZone)
	assert.Equal(t, DirectionShort, result.Direction)
	assert.Empty(t, result.Conflicts)
}

func TestComputeConflictPenalty(t *testing.T) {
	in := Inputs{
		MTF: &analysis.MTFResult{
			Alignment: analysis.AlignBullish,
			TrendM15:  analysis.TrendStrongUp,
		},
		SMC: &analysis.SMCResult{
			Best: &analysis.SMCSignal{Direction: DirectionShort, Confidence: 0.8},
		},
	}

	result := Compute(in)

	assert.Equal(t, []string{"mtf_vs_smc"}, result.Conflicts)
	// 0.2 - 0.16 weighted, then the 10% conflict haircut.
	assert.InDelta(t, 3.6, result.Score, 1e-9)
	assert.Equal(t, DirectionNeutral, result.Direction)
	// The confidence penalty floors at zero.
	assert.Equal(t, 0.0, result.Confidence)
}

func TestComputeWhaleIgnoredWithoutData(t *testing.T) {
	in := Inputs{WhaleScore: 1.0, WhaleOK: false}
	result := Compute(in)
	assert.Equal(t, 0.0, result.Components.Whale)
	assert.Equal(t, 0.0, result.Score)
}

func TestComputeScoreBands(t *testing.T) {
	// Only the orderflow component, weak buy: 0.5 * 0.15 = 7.5 points.
	in := Inputs{Flow: &analysis.OrderflowResult{Pressure: analysis.FlowWeakBuy}}
	result := Compute(in)
	assert.InDelta(t, 7.5, result.Score, 1e-9)
	assert.Equal(t, DirectionNeutral, result.Direction)
	assert.Equal(t, StrengthNone, result.Strength)

	// MTF fully aligned plus strong orderflow clears the weak band.
	in.MTF = &analysis.MTFResult{Alignment: analysis.AlignBullish, TrendM15: analysis.TrendStrongUp}
	in.Flow.Pressure = analysis.FlowStrongBuy
	result = Compute(in)
	assert.InDelta(t, 35.0, result.Score, 1e-9)
	assert.Equal(t, DirectionLong, result.Direction)
	assert.Equal(t, StrengthWeak, result.Strength)
}

func TestNoopWhaleTracker(t *testing.T) {
	score, ok := NoopWhaleTracker{}.Score("BTCUSDT")
	assert.Equal(t, 0.0, score)
	assert.False(t, ok)
}
