package analysis

import (
	"sync"
	"time"
)

// NewsEvent is one scheduled high-impact economic release
type NewsEvent struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// NewsFilter blocks entries around scheduled high-impact events. The
// calendar is static; operators extend it over the API or at startup.
type NewsFilter struct {
	mu     sync.RWMutex
	events []NewsEvent
	window time.Duration
}

// NewNewsFilter creates a filter that blocks entries within the given
// window before and after each event
func NewNewsFilter(window time.Duration) *NewsFilter {
	return &NewsFilter{window: window}
}

// AddEvent registers a calendar event
func (f *NewsFilter) AddEvent(name string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, NewsEvent{Name: name, Time: at})
}

// Blocking returns the event blocking entries at time t, or nil
func (f *NewsFilter) Blocking(t time.Time) *NewsEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := range f.events {
		diff := t.Sub(f.events[i].Time)
		if diff < 0 {
			diff = -diff
		}
		if diff <= f.window {
			return &f.events[i]
		}
	}
	return nil
}

// Upcoming returns events within the next 24 hours
func (f *NewsFilter) Upcoming(t time.Time) []NewsEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []NewsEvent
	for _, e := range f.events {
		if e.Time.After(t) && e.Time.Sub(t) <= 24*time.Hour {
			out = append(out, e)
		}
	}
	return out
}

// Prune drops events more than 24 hours in the past
func (f *NewsFilter) Prune(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	for _, e := range f.events {
		if t.Sub(e.Time) <= 24*time.Hour {
			kept = append(kept, e)
		}
	}
	f.events = kept
}
