package analytics

import (
	"time"

	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/risk"
)

// GroupStats is the per-bucket breakdown (by signal type or session)
type GroupStats struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	NetPnL  float64 `json:"net_pnl"`
}

// Summary aggregates the trade journal over a window
type Summary struct {
	TotalTrades    int                   `json:"total_trades"`
	Wins           int                   `json:"wins"`
	Losses         int                   `json:"losses"`
	WinRate        float64               `json:"win_rate"`
	NetPnL         float64               `json:"net_pnl"`
	ProfitFactor   float64               `json:"profit_factor"`
	Expectancy     float64               `json:"expectancy"`
	AvgWin         float64               `json:"avg_win"`
	AvgLoss        float64               `json:"avg_loss"`
	AvgRMultiple   float64               `json:"avg_r_multiple"`
	BestTrade      float64               `json:"best_trade"`
	WorstTrade     float64               `json:"worst_trade"`
	AvgHoldMinutes float64               `json:"avg_hold_minutes"`
	BySignalType   map[string]GroupStats `json:"by_signal_type"`
	BySession      map[string]GroupStats `json:"by_session"`
}

// Service computes journal statistics from persisted trades
type Service struct {
	db *gorm.DB
}

// NewService creates an analytics service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Summarize aggregates closed trades from the last windowDays days.
// windowDays <= 0 means the full journal.
func (s *Service) Summarize(windowDays int) (*Summary, error) {
	query := s.db.Where("status = ?", "CLOSED")
	if windowDays > 0 {
		since := time.Now().UTC().AddDate(0, 0, -windowDays)
		query = query.Where("closed_at >= ?", since)
	}

	var trades []models.Trade
	if err := query.Order("closed_at asc").Find(&trades).Error; err != nil {
		return nil, err
	}

	summary := &Summary{
		BySignalType: make(map[string]GroupStats),
		BySession:    make(map[string]GroupStats),
	}
	if len(trades) == 0 {
		return summary, nil
	}

	var grossWin, grossLoss, sumR, holdMinutes float64
	for _, t := range trades {
		pnl, _ := t.PnL.Float64()
		r, _ := t.RMultiple.Float64()
		summary.TotalTrades++
		summary.NetPnL += pnl
		sumR += r

		if pnl >= 0 {
			summary.Wins++
			grossWin += pnl
		} else {
			summary.Losses++
			grossLoss += -pnl
		}
		if pnl > summary.BestTrade {
			summary.BestTrade = pnl
		}
		if pnl < summary.WorstTrade {
			summary.WorstTrade = pnl
		}
		if t.ClosedAt != nil {
			holdMinutes += t.ClosedAt.Sub(t.OpenedAt).Minutes()
		}

		addGroup(summary.BySignalType, t.SignalType, pnl)
		addGroup(summary.BySession, t.Session, pnl)
	}

	total := float64(summary.TotalTrades)
	summary.WinRate = float64(summary.Wins) / total
	summary.AvgRMultiple = sumR / total
	summary.AvgHoldMinutes = holdMinutes / total
	if summary.Wins > 0 {
		summary.AvgWin = grossWin / float64(summary.Wins)
	}
	if summary.Losses > 0 {
		summary.AvgLoss = grossLoss / float64(summary.Losses)
	}
	if grossLoss > 0 {
		summary.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		summary.ProfitFactor = grossWin
	}
	// Expectancy per trade: weighted average win minus weighted average loss
	summary.Expectancy = summary.WinRate*summary.AvgWin - (1-summary.WinRate)*summary.AvgLoss

	return summary, nil
}

// JournalStats converts the full-journal summary into the form the risk
// manager uses for Kelly sizing
func (s *Service) JournalStats() risk.JournalStats {
	summary, err := s.Summarize(0)
	if err != nil {
		return risk.JournalStats{}
	}
	return risk.JournalStats{
		ClosedTrades: summary.TotalTrades,
		WinRate:      summary.WinRate,
		AvgWin:       summary.AvgWin,
		AvgLoss:      summary.AvgLoss,
	}
}

func addGroup(groups map[string]GroupStats, key string, pnl float64) {
	if key == "" {
		key = "UNKNOWN"
	}
	g := groups[key]
	g.Trades++
	g.NetPnL += pnl
	if pnl >= 0 {
		g.Wins++
	}
	g.WinRate = float64(g.Wins) / float64(g.Trades)
	groups[key] = g
}
