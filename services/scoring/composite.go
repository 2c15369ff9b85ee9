package scoring

import (
	"math"

	"titan_backend/services/analysis"
)

// Component weights; they sum to 1.0
const (
	WeightMTF           = 0.20
	WeightSMC           = 0.20
	WeightOrderflow     = 0.15
	WeightVolumeProfile = 0.10
	WeightOpenInterest  = 0.10
	WeightRegime        = 0.10
	WeightWhale         = 0.05
	WeightFearGreed     = 0.05
	WeightCorrelation   = 0.05
)

// Score bands on the [-100, 100] scale
const (
	ThresholdStrong   = 60.0
	ThresholdModerate = 40.0
	ThresholdWeak     = 20.0
	ConflictZone      = 15.0
)

// Strength labels
const (
	StrengthStrong   = "STRONG"
	StrengthModerate = "MODERATE"
	StrengthWeak     = "WEAK"
	StrengthNone     = "NONE"
)

// Directions
const (
	DirectionLong    = "LONG"
	DirectionShort   = "SHORT"
	DirectionNeutral = "NEUTRAL"
)

// WhaleTracker supplies large-holder positioning for a symbol. ok is
// false when no data source is configured; the component then
// contributes nothing.
type WhaleTracker interface {
	Score(symbol string) (score float64, ok bool)
}

// NoopWhaleTracker is the default tracker with no data source
type NoopWhaleTracker struct{}

// Score always reports no data
func (NoopWhaleTracker) Score(string) (float64, bool) { return 0, false }

// Inputs carries the per-component analysis results. Any nil field
// contributes a zero score.
type Inputs struct {
	MTF         *analysis.MTFResult
	SMC         *analysis.SMCResult
	Flow        *analysis.OrderflowResult
	Profile     *analysis.VolumeProfileResult
	OI          *analysis.OpenInterestResult
	Regime      *analysis.RegimeResult
	Sentiment   *analysis.SentimentResult
	Correlation *analysis.CorrelationResult
	WhaleScore  float64
	WhaleOK     bool
}

// Components holds the individual scores, each in [-1, 1]
type Components struct {
	MTF           float64 `json:"mtf"`
	SMC           float64 `json:"smc"`
	Orderflow     float64 `json:"orderflow"`
	VolumeProfile float64 `json:"volume_profile"`
	OpenInterest  float64 `json:"open_interest"`
	Regime        float64 `json:"regime"`
	Whale         float64 `json:"whale"`
	FearGreed     float64 `json:"fear_greed"`
	Correlation   float64 `json:"correlation"`
}

// Result is the composite confluence verdict for one symbol
type Result struct {
	Score        float64    `json:"score"` // [-100, 100]
	Direction    string     `json:"direction"`
	Strength     string     `json:"strength"`
	Confidence   float64    `json:"confidence"` // [0, 1]
	SizeModifier float64    `json:"size_modifier"`
	Conflicts    []string   `json:"conflicts"`
	Components   Components `json:"components"`
}

// Compute aggregates the component scores into a weighted composite.
// Detected conflicts between components each shave 10% off the score and
// 0.15 off the confidence.
func Compute(in Inputs) *Result {
	c := Components{
		MTF:           scoreMTF(in.MTF),
		SMC:           scoreSMC(in.SMC),
		Orderflow:     scoreOrderflow(in.Flow),
		VolumeProfile: scoreProfile(in.Profile),
		OpenInterest:  scoreOpenInterest(in.OI),
		Regime:        scoreRegime(in.Regime),
		FearGreed:     scoreSentiment(in.Sentiment),
		Correlation:   scoreCorrelation(in.Correlation),
	}
	if in.WhaleOK {
		c.Whale = clamp(in.WhaleScore, -1, 1)
	}

	raw := c.MTF*WeightMTF +
		c.SMC*WeightSMC +
		c.Orderflow*WeightOrderflow +
		c.VolumeProfile*WeightVolumeProfile +
		c.OpenInterest*WeightOpenInterest +
		c.Regime*WeightRegime +
		c.Whale*WeightWhale +
		c.FearGreed*WeightFearGreed +
		c.Correlation*WeightCorrelation

	score := raw * 100
	conflicts := detectConflicts(c, in.WhaleOK)

	// Each conflict costs 10% of the score
	for range conflicts {
		score *= 0.9
	}
	score = clamp(score, -100, 100)

	confidence := math.Min(math.Abs(score)/100, 1) - 0.15*float64(len(conflicts))
	confidence = math.Max(0, confidence)

	modifier := math.Abs(score) / 100 * confidence
	if len(conflicts) > 0 {
		modifier *= 0.7
	}
	modifier = clamp(modifier, 0.3, 1.5)

	result := &Result{
		Score:        score,
		Confidence:   confidence,
		SizeModifier: modifier,
		Conflicts:    conflicts,
		Components:   c,
	}

	switch {
	case score > ConflictZone:
		result.Direction = DirectionLong
	case score < -ConflictZone:
		result.Direction = DirectionShort
	default:
		result.Direction = DirectionNeutral
	}

	abs := math.Abs(score)
	switch {
	case abs >= ThresholdStrong:
		result.Strength = StrengthStrong
	case abs >= ThresholdModerate:
		result.Strength = StrengthModerate
	case abs >= ThresholdWeak:
		result.Strength = StrengthWeak
	default:
		result.Strength = StrengthNone
	}
	return result
}

// detectConflicts flags component pairs pulling hard in opposite directions
func detectConflicts(c Components, whaleOK bool) []string {
	var conflicts []string
	if opposed(c.MTF, c.SMC, 0.3) {
		conflicts = append(conflicts, "mtf_vs_smc")
	}
	if opposed(c.SMC, c.Orderflow, 0.3) {
		conflicts = append(conflicts, "smc_vs_orderflow")
	}
	if whaleOK && opposed(c.Whale, c.FearGreed, 0.3) {
		conflicts = append(conflicts, "whale_vs_sentiment")
	}
	return conflicts
}

func opposed(a, b, threshold float64) bool {
	return a*b < 0 && math.Abs(a) >= threshold && math.Abs(b) >= threshold
}

func scoreMTF(r *analysis.MTFResult) float64 {
	if r == nil {
		return 0
	}
	score := 0.0
	switch r.Alignment {
	case analysis.AlignBullish:
		score = 0.7
	case analysis.AlignBearish:
		score = -0.7
	}
	switch r.TrendM15 {
	case analysis.TrendStrongUp:
		score += 0.3
	case analysis.TrendUp:
		score += 0.15
	case analysis.TrendStrongDown:
		score -= 0.3
	case analysis.TrendDown:
		score -= 0.15
	}
	return clamp(score, -1, 1)
}

func scoreSMC(r *analysis.SMCResult) float64 {
	if r == nil || r.Best == nil {
		return 0
	}
	if r.Best.Direction == DirectionLong {
		return r.Best.Confidence
	}
	return -r.Best.Confidence
}

func scoreOrderflow(r *analysis.OrderflowResult) float64 {
	if r == nil {
		return 0
	}
	score := 0.0
	switch r.Pressure {
	case analysis.FlowStrongBuy:
		score = 1.0
	case analysis.FlowWeakBuy:
		score = 0.5
	case analysis.FlowWeakSell:
		score = -0.5
	case analysis.FlowStrongSell:
		score = -1.0
	}
	switch r.Absorption {
	case "BID_ABSORPTION":
		score += 0.3
	case "ASK_ABSORPTION":
		score -= 0.3
	}
	switch r.LargeTradeBias {
	case "BUY":
		score += 0.2
	case "SELL":
		score -= 0.2
	}
	// Crowded positioning is faded
	switch r.FundingBias {
	case "CROWDED_LONG":
		score -= 0.2
	case "CROWDED_SHORT":
		score += 0.2
	}
	return clamp(score, -1, 1)
}

func scoreProfile(r *analysis.VolumeProfileResult) float64 {
	if r == nil {
		return 0
	}
	switch r.Recommendation {
	case "BREAKOUT_LONG":
		return 0.6
	case "BREAKOUT_SHORT":
		return -0.6
	case "FADE_TO_POC":
		if r.PositionVsPOC == "ABOVE" {
			return -0.3
		}
		if r.PositionVsPOC == "BELOW" {
			return 0.3
		}
	}
	return 0
}

func scoreOpenInterest(r *analysis.OpenInterestResult) float64 {
	if r == nil {
		return 0
	}
	score := 0.0
	switch r.Regime {
	case analysis.OIShortsClosing:
		score = 1.0
	case analysis.OINewLongs:
		score = 0.5
	case analysis.OINewShorts:
		score = -0.5
	case analysis.OILongsClosing:
		score = -1.0
	}
	score += r.RatioAdjustment
	return clamp(score, -1, 1)
}

func scoreRegime(r *analysis.RegimeResult) float64 {
	if r == nil {
		return 0
	}
	switch r.Regime {
	case analysis.RegimeTrendingUp:
		return 0.5
	case analysis.RegimeTrendingDown:
		return -0.5
	}
	return 0
}

func scoreSentiment(r *analysis.SentimentResult) float64 {
	if r == nil {
		return 0
	}
	switch r.Signal {
	case analysis.SentimentStrongBuy:
		return 1.0
	case analysis.SentimentBuy:
		return 0.5
	case analysis.SentimentSell:
		return -0.5
	case analysis.SentimentStrongSell:
		return -1.0
	}
	return 0
}

func scoreCorrelation(r *analysis.CorrelationResult) float64 {
	if r == nil {
		return 0
	}
	score := 0.0
	if !r.SafeToTrade {
		score -= 0.5
	}
	if r.Divergence {
		score += 0.3
	}
	return clamp(score, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
