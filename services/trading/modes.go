package trading

import (
	"fmt"
	"strings"
)

// TradeMode is a preset bundle of entry thresholds and risk limits
type TradeMode struct {
	Name              string  `json:"name"`
	MinScore          float64 `json:"min_score"`
	MaxPositions      int     `json:"max_positions"`
	RiskPct           float64 `json:"risk_pct"`
	MinRR             float64 `json:"min_rr"`
	LossStreakLimit   int     `json:"loss_streak_limit"`
	SessionFilter     bool    `json:"session_filter"`
	MinSessionQuality int     `json:"min_session_quality"`
	NewsFilter        bool    `json:"news_filter"`
	MTFStrict         bool    `json:"mtf_strict"`
	CorrelationFilter bool    `json:"correlation_filter"`
}

var tradeModes = map[string]TradeMode{
	"CONSERVATIVE": {
		Name:              "CONSERVATIVE",
		MinScore:          60,
		MaxPositions:      1,
		RiskPct:           1.0,
		MinRR:             3.0,
		LossStreakLimit:   2,
		SessionFilter:     true,
		MinSessionQuality: 8,
		NewsFilter:        true,
		MTFStrict:         true,
		CorrelationFilter: true,
	},
	"MODERATE": {
		Name:              "MODERATE",
		MinScore:          45,
		MaxPositions:      3,
		RiskPct:           1.5,
		MinRR:             2.5,
		LossStreakLimit:   2,
		SessionFilter:     true,
		MinSessionQuality: 5,
		NewsFilter:        true,
		MTFStrict:         false,
		CorrelationFilter: true,
	},
	"AGGRESSIVE": {
		Name:            "AGGRESSIVE",
		MinScore:        40,
		MaxPositions:    5,
		RiskPct:         2.0,
		MinRR:           2.0,
		LossStreakLimit: 3,
		SessionFilter:   false,
		NewsFilter:      true,
		MTFStrict:       false,
	},
	"SCALPER": {
		Name:            "SCALPER",
		MinScore:        30,
		MaxPositions:    10,
		RiskPct:         1.0,
		MinRR:           1.5,
		LossStreakLimit: 4,
		SessionFilter:   false,
		NewsFilter:      false,
		MTFStrict:       false,
	},
	"ACCEL": {
		Name:              "ACCEL",
		MinScore:          55,
		MaxPositions:      2,
		RiskPct:           3.0,
		MinRR:             2.5,
		LossStreakLimit:   2,
		SessionFilter:     true,
		MinSessionQuality: 8,
		NewsFilter:        true,
		MTFStrict:         true,
		CorrelationFilter: true,
	},
}

// GetMode looks up a trade mode by name (case-insensitive)
func GetMode(name string) (TradeMode, error) {
	mode, ok := tradeModes[strings.ToUpper(name)]
	if !ok {
		return TradeMode{}, fmt.Errorf("unknown trade mode %q", name)
	}
	return mode, nil
}

// ModeNames lists the available trade modes
func ModeNames() []string {
	return []string{"CONSERVATIVE", "MODERATE", "AGGRESSIVE", "SCALPER", "ACCEL"}
}

// AllModes returns every mode preset keyed by name
func AllModes() map[string]TradeMode {
	out := make(map[string]TradeMode, len(tradeModes))
	for k, v := range tradeModes {
		out[k] = v
	}
	return out
}
