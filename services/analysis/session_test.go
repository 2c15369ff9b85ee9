package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func utcHour(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
}

func TestCurrentSession(t *testing.T) {
	cases := []struct {
		hour    int
		name    string
		quality int
	}{
		{13, SessionOverlap, 10},
		{15, SessionOverlap, 10},
		{7, SessionLondon, 8},
		{12, SessionLondon, 8},
		{16, SessionNewYork, 8},
		{21, SessionNewYork, 8},
		{0, SessionAsia, 5},
		{8, SessionLondon, 8},
		{3, SessionAsia, 5},
		{22, SessionDeadZone, 2},
		{23, SessionDeadZone, 2},
	}
	for _, tc := range cases {
		info := CurrentSession(utcHour(tc.hour))
		assert.Equal(t, tc.name, info.Name, "hour %d", tc.hour)
		assert.Equal(t, tc.quality, info.Quality, "hour %d", tc.hour)
	}
}

func TestCurrentSessionNormalizesToUTC(t *testing.T) {
	// 09:30 in UTC+5 is 04:30 UTC, i.e. the Asia session.
	loc := time.FixedZone("UTC+5", 5*3600)
	info := CurrentSession(time.Date(2025, 6, 2, 9, 30, 0, 0, loc))
	assert.Equal(t, SessionAsia, info.Name)
}

func TestSessionAllowed(t *testing.T) {
	assert.True(t, SessionAllowed(utcHour(14), 10))
	assert.True(t, SessionAllowed(utcHour(10), 8))
	assert.False(t, SessionAllowed(utcHour(22), 5))
	assert.False(t, SessionAllowed(utcHour(2), 8))
}
