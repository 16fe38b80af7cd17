package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/pkg/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.File{
		Contexts: []registry.Context{
			{ID: "oracle", File: "docs/ORACLE.md", Prefix: "orc", IsCoordinator: true},
			{ID: "dev", File: "docs/DEV.md", Prefix: "dev", WatchDirs: []string{"app"}},
		},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func writeLines(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("line\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunScoring(t *testing.T) {
	t.Run("healthy project scores 100", func(t *testing.T) {
		root := t.TempDir()
		writeLines(t, filepath.Join(root, "docs", "ORACLE.md"), 50)
		writeLines(t, filepath.Join(root, "docs", "DEV.md"), 50)
		if err := os.MkdirAll(filepath.Join(root, "app"), 0o755); err != nil {
			t.Fatal(err)
		}

		a := New(testRegistry(t), Config{}, root, filepath.Join(root, ".relay", "messages.json"))
		rep := a.Run(false)
		if rep.Score != 100 {
			t.Errorf("Score = %d, want 100 (issues: %v)", rep.Score, rep.Issues)
		}
		if len(rep.Issues) != 0 {
			t.Errorf("Issues = %v, want none", rep.Issues)
		}
	})

	t.Run("missing context file is critical", func(t *testing.T) {
		root := t.TempDir()
		writeLines(t, filepath.Join(root, "docs", "DEV.md"), 50)

		a := New(testRegistry(t), Config{}, root, "")
		rep := a.Run(true)
		if rep.Score != 80 {
			t.Errorf("Score = %d, want 80", rep.Score)
		}
		if len(rep.Issues) != 1 || rep.Issues[0].Severity != SeverityCritical {
			t.Errorf("Issues = %v", rep.Issues)
		}
	})

	t.Run("oversized context file is a warning", func(t *testing.T) {
		root := t.TempDir()
		writeLines(t, filepath.Join(root, "docs", "ORACLE.md"), 50)
		writeLines(t, filepath.Join(root, "docs", "DEV.md"), 600)

		a := New(testRegistry(t), Config{LineLimit: 500}, root, "")
		rep := a.Run(true)
		if rep.Score != 90 {
			t.Errorf("Score = %d, want 90", rep.Score)
		}
	})

	t.Run("quick skips directory checks", func(t *testing.T) {
		root := t.TempDir()
		writeLines(t, filepath.Join(root, "docs", "ORACLE.md"), 10)
		writeLines(t, filepath.Join(root, "docs", "DEV.md"), 10)
		// "app" watch dir deliberately absent.

		a := New(testRegistry(t), Config{}, root, "")
		if rep := a.Run(true); len(rep.Issues) != 0 {
			t.Errorf("quick audit found %v", rep.Issues)
		}
		rep := a.Run(false)
		if len(rep.Issues) != 1 || rep.Issues[0].Severity != SeverityInfo {
			t.Errorf("full audit Issues = %v", rep.Issues)
		}
		if rep.Score != 95 {
			t.Errorf("Score = %d, want 95", rep.Score)
		}
	})

	t.Run("oversized message log is a warning", func(t *testing.T) {
		root := t.TempDir()
		writeLines(t, filepath.Join(root, "docs", "ORACLE.md"), 10)
		writeLines(t, filepath.Join(root, "docs", "DEV.md"), 10)
		logPath := filepath.Join(root, "messages.json")
		if err := os.WriteFile(logPath, make([]byte, 2048), 0o644); err != nil {
			t.Fatal(err)
		}

		a := New(testRegistry(t), Config{MaxLogBytes: 1024}, root, logPath)
		rep := a.Run(true)
		if rep.Score != 90 {
			t.Errorf("Score = %d, want 90 (issues: %v)", rep.Score, rep.Issues)
		}
	})

	t.Run("score floors at zero", func(t *testing.T) {
		root := t.TempDir()
		// Six missing context files deduct 120 points.
		reg, err := registry.New(registry.File{
			Contexts: []registry.Context{
				{ID: "oracle", File: "a.md", Prefix: "a", IsCoordinator: true},
				{ID: "b", File: "b.md", Prefix: "b"},
				{ID: "c", File: "c.md", Prefix: "c"},
				{ID: "d", File: "d.md", Prefix: "d"},
				{ID: "e", File: "e.md", Prefix: "e"},
				{ID: "f", File: "f.md", Prefix: "f"},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		a := New(reg, Config{}, root, "")
		rep := a.Run(true)
		if rep.Score != 0 {
			t.Errorf("Score = %d, want 0", rep.Score)
		}
	})
}

func TestHealthScore(t *testing.T) {
	root := t.TempDir()
	writeLines(t, filepath.Join(root, "docs", "ORACLE.md"), 10)
	writeLines(t, filepath.Join(root, "docs", "DEV.md"), 10)

	a := New(testRegistry(t), Config{}, root, "")
	score, err := a.HealthScore()
	if err != nil {
		t.Fatalf("HealthScore: %v", err)
	}
	// Quick mode ignores the missing watch dir.
	if score != 100 {
		t.Errorf("HealthScore = %d, want 100", score)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "audit.toml"))
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.LineLimit != 500 {
			t.Errorf("LineLimit = %d, want 500", cfg.LineLimit)
		}
		if cfg.MaxLogBytes != 5<<20 {
			t.Errorf("MaxLogBytes = %d, want %d", cfg.MaxLogBytes, 5<<20)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.toml")
		content := "line_limit = 200\nmax_log_bytes = 1024\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.LineLimit != 200 || cfg.MaxLogBytes != 1024 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("malformed file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.toml")
		if err := os.WriteFile(path, []byte("line_limit = ["), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected parse error")
		}
	})
}
