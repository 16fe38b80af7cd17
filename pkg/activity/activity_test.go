package activity

import (
	"fmt"
	"testing"
	"time"
)

// fixedClock returns a controllable nowFunc and an advance helper.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestActiveContext(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("most recent context wins", func(t *testing.T) {
		tr := NewTracker(0)
		now, advance := fixedClock(base)
		tr.nowFunc = now

		tr.Record("dev", "app/main.go", KindModified)
		advance(10 * time.Second)
		tr.Record("dash", "app/frontend/App.tsx", KindModified)

		if got := tr.ActiveContext(); got != "dash" {
			t.Errorf("ActiveContext = %q, want dash", got)
		}
	})

	t.Run("no activity yields empty", func(t *testing.T) {
		tr := NewTracker(0)
		if got := tr.ActiveContext(); got != "" {
			t.Errorf("ActiveContext = %q, want empty", got)
		}
	})

	t.Run("events older than the window are excluded", func(t *testing.T) {
		tr := NewTracker(0)
		now, advance := fixedClock(base)
		tr.nowFunc = now

		tr.Record("dev", "app/main.go", KindModified)
		advance(DefaultWindow) // exactly at the boundary: no longer inside

		if got := tr.ActiveContext(); got != "" {
			t.Errorf("ActiveContext = %q after window elapsed, want empty", got)
		}
	})

	t.Run("stale leader loses to fresh activity", func(t *testing.T) {
		tr := NewTracker(0)
		now, advance := fixedClock(base)
		tr.nowFunc = now

		// dev dominates early...
		for i := 0; i < 50; i++ {
			tr.Record("dev", fmt.Sprintf("app/f%d.go", i), KindModified)
		}
		advance(6 * time.Minute)
		// ...but only dash is inside the window now.
		tr.Record("dash", "app/frontend/App.tsx", KindCreated)

		if got := tr.ActiveContext(); got != "dash" {
			t.Errorf("ActiveContext = %q, want dash", got)
		}
	})

	t.Run("equal timestamps break ties lexically", func(t *testing.T) {
		tr := NewTracker(0)
		now, _ := fixedClock(base)
		tr.nowFunc = now

		// Same frozen clock: identical last-seen for all three.
		tr.Record("oracle", "docs/x.md", KindModified)
		tr.Record("dev", "app/y.go", KindModified)
		tr.Record("crank", "content/z.json", KindModified)

		if got := tr.ActiveContext(); got != "crank" {
			t.Errorf("ActiveContext = %q, want crank (lexically first)", got)
		}
	})
}

func TestSummary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(0)
	now, advance := fixedClock(base)
	tr.nowFunc = now

	tr.Record("dev", "app/a.go", KindCreated)
	tr.Record("dev", "app/b.go", KindModified)
	advance(6 * time.Minute) // both fall out of the window
	tr.Record("dev", "app/c.go", KindModified)
	advance(30 * time.Second)

	sum := tr.Summary()
	dev, ok := sum["dev"]
	if !ok {
		t.Fatal("dev missing from summary")
	}
	if dev.RecentEvents != 1 {
		t.Errorf("RecentEvents = %d, want 1 (older events aged out)", dev.RecentEvents)
	}
	if dev.SecondsAgo != 30 {
		t.Errorf("SecondsAgo = %d, want 30", dev.SecondsAgo)
	}
	if _, ok := sum["dash"]; ok {
		t.Error("summary contains context that never recorded activity")
	}
}

func TestEventBufferBounded(t *testing.T) {
	tr := NewTracker(0)
	for i := 0; i < 250; i++ {
		tr.Record("dev", fmt.Sprintf("app/f%d.go", i), KindModified)
	}

	tr.mu.Lock()
	n := len(tr.events["dev"])
	oldest := tr.events["dev"][0].Path
	tr.mu.Unlock()

	if n != maxEventsPerContext {
		t.Errorf("buffer holds %d events, want %d", n, maxEventsPerContext)
	}
	if oldest != "app/f150.go" {
		t.Errorf("oldest retained event is %s, want app/f150.go", oldest)
	}
}
