package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/pkg/mailbox"
	"relay/pkg/registry"
)

type fakeRunner struct {
	name string
	args []string
	err  error
}

func (r *fakeRunner) Start(name string, args ...string) error {
	r.name = name
	r.args = args
	return r.err
}

type fakeActivity struct {
	active string
}

func (f *fakeActivity) ActiveContext() string { return f.active }

func setup(t *testing.T) (*registry.Registry, *mailbox.Mailbox, string) {
	t.Helper()
	reg, err := registry.New(registry.File{
		Contexts: []registry.Context{
			{ID: "oracle", File: "docs/ORACLE.md", Prefix: "orc", IsCoordinator: true},
			{ID: "dev", File: "docs/DEV.md", Prefix: "dev", ResumePrompt: "You are Dev. Backend only."},
			{ID: "dash", File: "docs/DASH.md", Prefix: "dash"},
		},
		HandoffRules: map[string]registry.RuleSet{
			"dev": {To: []string{"dash"}, Types: []string{"api_change"}},
		},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	root := t.TempDir()
	store, err := mailbox.NewFileStore(filepath.Join(root, ".relay", "messages.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return reg, mailbox.New(reg, store), root
}

func TestSendHandoff(t *testing.T) {
	reg, box, root := setup(t)
	coord := New(reg, box, nil, root, &fakeRunner{})

	t.Run("routes through mailbox rules", func(t *testing.T) {
		msg, err := coord.SendHandoff("dev", "dash", "api_change", "endpoints moved", mailbox.PriorityHigh)
		if err != nil {
			t.Fatalf("SendHandoff: %v", err)
		}
		if !strings.Contains(msg.Subject, "dev -> dash") {
			t.Errorf("Subject = %q", msg.Subject)
		}
	})

	t.Run("policy violations surface", func(t *testing.T) {
		_, err := coord.SendHandoff("dev", "dash", "gossip", "psst", mailbox.PriorityLow)
		if !errors.Is(err, mailbox.ErrPolicyViolation) {
			t.Fatalf("err = %v, want ErrPolicyViolation", err)
		}
	})

	t.Run("unknown endpoints rejected", func(t *testing.T) {
		_, err := coord.SendHandoff("ghost", "dash", "t", "c", mailbox.PriorityNormal)
		if !errors.Is(err, registry.ErrUnknownContext) {
			t.Fatalf("err = %v, want ErrUnknownContext", err)
		}
	})
}

func TestResumePrompt(t *testing.T) {
	reg, box, root := setup(t)

	t.Run("uses registered prompt with task appended", func(t *testing.T) {
		coord := New(reg, box, nil, root, &fakeRunner{})
		got, err := coord.ResumePrompt("dev", "fix the flaky endpoint")
		if err != nil {
			t.Fatalf("ResumePrompt: %v", err)
		}
		if !strings.HasPrefix(got, "You are Dev. Backend only.") {
			t.Errorf("prompt = %q", got)
		}
		if !strings.Contains(got, "Current task: fix the flaky endpoint") {
			t.Errorf("task missing from prompt: %q", got)
		}
	})

	t.Run("falls back to default template", func(t *testing.T) {
		coord := New(reg, box, nil, root, &fakeRunner{})
		got, err := coord.ResumePrompt("dash", "")
		if err != nil {
			t.Fatalf("ResumePrompt: %v", err)
		}
		if !strings.Contains(got, "You are dash.") || !strings.Contains(got, "docs/DASH.md") {
			t.Errorf("prompt = %q", got)
		}
	})

	t.Run("includes pending unread count", func(t *testing.T) {
		if _, err := box.Send("oracle", "dev", "note", "s", "read me", mailbox.PriorityNormal); err != nil {
			t.Fatal(err)
		}
		coord := New(reg, box, nil, root, &fakeRunner{})
		got, err := coord.ResumePrompt("dev", "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "1 unread message") {
			t.Errorf("unread count missing: %q", got)
		}
	})

	t.Run("flags the active context", func(t *testing.T) {
		coord := New(reg, box, &fakeActivity{active: "dev"}, root, &fakeRunner{})
		got, err := coord.ResumePrompt("dev", "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "most recent file activity") {
			t.Errorf("active flag missing: %q", got)
		}

		other, err := coord.ResumePrompt("dash", "")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(other, "most recent file activity") {
			t.Errorf("inactive context flagged active: %q", other)
		}
	})

	t.Run("unknown context", func(t *testing.T) {
		coord := New(reg, box, nil, root, &fakeRunner{})
		if _, err := coord.ResumePrompt("ghost", ""); !errors.Is(err, registry.ErrUnknownContext) {
			t.Fatalf("err = %v, want ErrUnknownContext", err)
		}
	})
}

func TestSpawn(t *testing.T) {
	reg, box, root := setup(t)
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "DEV.md"), []byte("# Dev"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("writes prompt and launches editor", func(t *testing.T) {
		runner := &fakeRunner{}
		coord := New(reg, box, nil, root, runner)
		coord.newID = func() string { return "abc12345" }

		res, err := coord.Spawn("dev", "ship it")
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if res.SessionID != "dev-abc12345" {
			t.Errorf("SessionID = %q", res.SessionID)
		}
		if runner.name != "code" {
			t.Errorf("launched %q, want code", runner.name)
		}
		if len(runner.args) != 3 || runner.args[0] != "-n" {
			t.Errorf("editor args = %v", runner.args)
		}

		prompt, err := os.ReadFile(res.PromptFile)
		if err != nil {
			t.Fatalf("reading prompt file: %v", err)
		}
		if !strings.Contains(string(prompt), "Current task: ship it") {
			t.Errorf("prompt file content = %q", prompt)
		}
	})

	t.Run("missing context file", func(t *testing.T) {
		coord := New(reg, box, nil, root, &fakeRunner{})
		if _, err := coord.Spawn("dash", ""); err == nil {
			t.Fatal("expected error for missing context file")
		}
	})

	t.Run("runner failure surfaces", func(t *testing.T) {
		coord := New(reg, box, nil, root, &fakeRunner{err: errors.New("code not installed")})
		if _, err := coord.Spawn("dev", ""); err == nil {
			t.Fatal("expected error when editor launch fails")
		}
	})
}
