// Package activity tracks recent file activity per context and resolves which
// context is currently "active". State is deliberately in-memory only: activity
// is a live signal, rebuilt from nothing on restart, not a durable record.
package activity

import (
	"sync"
	"time"
)

// EventKind classifies a filesystem change.
type EventKind string

// Event kinds.
const (
	KindCreated  EventKind = "created"
	KindModified EventKind = "modified"
	KindDeleted  EventKind = "deleted"
)

// Event is one recorded filesystem change attributed to a context.
type Event struct {
	Context   string
	Path      string
	Kind      EventKind
	Timestamp time.Time
}

// DefaultWindow is the trailing interval within which a context's events count
// toward "active" status.
const DefaultWindow = 300 * time.Second

// maxEventsPerContext bounds the per-context event buffer.
const maxEventsPerContext = 100

// ContextSummary describes a single context's recent activity.
type ContextSummary struct {
	LastActivity time.Time `json:"last_activity"`
	SecondsAgo   int       `json:"seconds_ago"`
	RecentEvents int       `json:"recent_events"`
}

// Tracker records events and resolves the active context by recency within a
// sliding window. Safe for concurrent use: the watcher goroutine records while
// the daemon tick queries.
type Tracker struct {
	mu       sync.Mutex
	window   time.Duration
	events   map[string][]Event
	lastSeen map[string]time.Time

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// NewTracker creates a tracker with the given activity window. A zero window
// uses DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window:   window,
		events:   make(map[string][]Event),
		lastSeen: make(map[string]time.Time),
		nowFunc:  time.Now,
	}
}

// Record appends an event for ctx, trims the buffer to the most recent
// maxEventsPerContext entries, and bumps the context's last-seen time.
func (t *Tracker) Record(ctx, path string, kind EventKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	buf := append(t.events[ctx], Event{Context: ctx, Path: path, Kind: kind, Timestamp: now})
	if len(buf) > maxEventsPerContext {
		buf = buf[len(buf)-maxEventsPerContext:]
	}
	t.events[ctx] = buf
	t.lastSeen[ctx] = now
}

// ActiveContext returns the context with the most recent activity inside the
// window, or "" if nothing qualifies. Equal last-seen timestamps break ties by
// lexical context ID so the result never depends on map iteration order.
func (t *Tracker) ActiveContext() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	best := ""
	var bestSeen time.Time
	for ctx, seen := range t.lastSeen {
		if now.Sub(seen) >= t.window {
			continue
		}
		switch {
		case best == "", seen.After(bestSeen):
			best, bestSeen = ctx, seen
		case seen.Equal(bestSeen) && ctx < best:
			best = ctx
		}
	}
	return best
}

// Summary returns per-context seconds-since-activity and the count of events
// still inside the window. Contexts that never recorded an event are absent.
func (t *Tracker) Summary() map[string]ContextSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	out := make(map[string]ContextSummary, len(t.lastSeen))
	for ctx, seen := range t.lastSeen {
		recent := 0
		for _, ev := range t.events[ctx] {
			if now.Sub(ev.Timestamp) < t.window {
				recent++
			}
		}
		out[ctx] = ContextSummary{
			LastActivity: seen,
			SecondsAgo:   int(now.Sub(seen).Seconds()),
			RecentEvents: recent,
		}
	}
	return out
}

// Window returns the tracker's activity window.
func (t *Tracker) Window() time.Duration {
	return t.window
}
