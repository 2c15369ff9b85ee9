package analysis

import "time"

// Market sessions in UTC
const (
	SessionOverlap  = "OVERLAP" // London/New York overlap
	SessionLondon   = "LONDON"
	SessionNewYork  = "NEW_YORK"
	SessionAsia     = "ASIA"
	SessionDeadZone = "DEAD_ZONE"
)

// SessionInfo describes the current market session and its quality for
// intraday entries
type SessionInfo struct {
	Name    string `json:"name"`
	Quality int    `json:"quality"` // 1-10, higher = better liquidity
}

// CurrentSession classifies a UTC time into a market session. The
// London/New York overlap has the deepest liquidity; the hours after the
// New York close are the dead zone.
func CurrentSession(t time.Time) SessionInfo {
	hour := t.UTC().Hour()
	switch {
	case hour >= 13 && hour < 16:
		return SessionInfo{Name: SessionOverlap, Quality: 10}
	case hour >= 7 && hour < 16:
		return SessionInfo{Name: SessionLondon, Quality: 8}
	case hour >= 16 && hour < 22:
		return SessionInfo{Name: SessionNewYork, Quality: 8}
	case hour < 9:
		return SessionInfo{Name: SessionAsia, Quality: 5}
	default:
		return SessionInfo{Name: SessionDeadZone, Quality: 2}
	}
}

// SessionAllowed reports whether the current session meets a minimum
// quality bar
func SessionAllowed(t time.Time, minQuality int) bool {
	return CurrentSession(t).Quality >= minQuality
}
