package statefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, format)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "daemon.json")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	started := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	want := Status{
		State:      StateRunning,
		PID:        4242,
		StartedAt:  started,
		LastUpdate: started.Add(30 * time.Second),
		Data: Data{
			HealthScore:   87,
			ActiveContext: "dev",
			Fallback:      true,
		},
	}
	if err := store.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.State != StateRunning || got.PID != 4242 {
		t.Errorf("got %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Data.HealthScore != 87 || got.Data.ActiveContext != "dev" || !got.Data.Fallback {
		t.Errorf("Data = %+v", got.Data)
	}
}

func TestReadMissingFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daemon.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if st.State != StateStopped {
		t.Errorf("State = %q, want stopped", st.State)
	}
	if st.PID != 0 {
		t.Errorf("PID = %d, want 0", st.PID)
	}
}

func TestReadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.json")
	if err := os.WriteFile(path, []byte("garbage{{"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := &captureLogger{}
	store, err := NewStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Read()
	if err != nil {
		t.Fatalf("Read over corrupt file: %v", err)
	}
	if st.State != StateStopped {
		t.Errorf("State = %q, want stopped", st.State)
	}
	if len(logger.lines) == 0 {
		t.Error("corruption was not logged")
	}
}

func TestWriteReplacesWholesale(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daemon.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Write(Status{State: StateRunning, PID: 1, Error: "boom"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(Status{State: StateStopped}); err != nil {
		t.Fatal(err)
	}

	st, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if st.Error != "" || st.PID != 0 {
		t.Errorf("stale fields survived rewrite: %+v", st)
	}
}

func TestRemove(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "daemon.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("Remove on missing file: %v", err)
	}
	if err := store.Write(Status{State: StateRunning}); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("status file still present after Remove")
	}
}
