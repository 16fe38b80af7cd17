// Package session assembles resume prompts and launches editor sessions for
// a context. It holds no state of its own: everything comes from the
// registry, the mailbox, and the activity tracker.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"relay/pkg/mailbox"
	"relay/pkg/registry"
)

// Runner abstracts launching the editor subprocess for testability.
type Runner interface {
	Start(name string, args ...string) error
}

// ExecRunner launches real detached subprocesses.
type ExecRunner struct{}

// Start launches the command without waiting for it.
func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// ActivitySource reports which context is currently active.
type ActivitySource interface {
	ActiveContext() string
}

// Coordinator wires handoffs, resume prompts, and session spawning.
type Coordinator struct {
	reg    *registry.Registry
	box    *mailbox.Mailbox
	acts   ActivitySource
	root   string
	runner Runner

	// newID allows tests to pin session IDs.
	newID func() string
}

// New creates a coordinator rooted at the given project directory.
// acts may be nil; the resume prompt then omits the active-context line.
func New(reg *registry.Registry, box *mailbox.Mailbox, acts ActivitySource, root string, runner Runner) *Coordinator {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Coordinator{
		reg:    reg,
		box:    box,
		acts:   acts,
		root:   root,
		runner: runner,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// SendHandoff validates both endpoints and routes the message through the
// mailbox, which enforces the handoff rules.
func (c *Coordinator) SendHandoff(from, to, typ, content string, priority mailbox.Priority) (mailbox.Message, error) {
	if !c.reg.Has(from) {
		return mailbox.Message{}, fmt.Errorf("handoff sender %q: %w", from, registry.ErrUnknownContext)
	}
	if to != mailbox.Broadcast && !c.reg.Has(to) {
		return mailbox.Message{}, fmt.Errorf("handoff recipient %q: %w", to, registry.ErrUnknownContext)
	}
	subject := fmt.Sprintf("Handoff: %s -> %s", from, to)
	return c.box.Send(from, to, typ, subject, content, priority)
}

// ResumePrompt builds the prompt a resumed session starts from: the
// context's registered prompt (or a default), the current task if any, and
// live coordination state.
func (c *Coordinator) ResumePrompt(ctxID, task string) (string, error) {
	ctx, ok := c.reg.Get(ctxID)
	if !ok {
		return "", fmt.Errorf("context %q: %w", ctxID, registry.ErrUnknownContext)
	}

	var b strings.Builder
	if ctx.ResumePrompt != "" {
		b.WriteString(ctx.ResumePrompt)
	} else {
		fmt.Fprintf(&b, "You are %s. Read @%s first.", ctxID, ctx.File)
	}

	if task != "" {
		fmt.Fprintf(&b, "\n\nCurrent task: %s", task)
	}

	if c.box != nil {
		pending, err := c.box.PendingCount(ctxID)
		if err != nil {
			return "", fmt.Errorf("pending count for %s: %w", ctxID, err)
		}
		if pending > 0 {
			fmt.Fprintf(&b, "\n\nYou have %d unread message(s). Check them with `relay messages --context %s`.", pending, ctxID)
		}
	}

	if c.acts != nil && c.acts.ActiveContext() == ctxID {
		b.WriteString("\n\nThis context has the most recent file activity.")
	}

	return b.String(), nil
}

// SpawnResult describes a launched session.
type SpawnResult struct {
	SessionID   string    `json:"session_id"`
	Context     string    `json:"context"`
	Task        string    `json:"task,omitempty"`
	ContextFile string    `json:"context_file"`
	PromptFile  string    `json:"prompt_file"`
	SpawnedAt   time.Time `json:"spawned_at"`
}

// promptFileName is where the resume prompt lands for editor integration.
const promptFileName = "prompt.txt"

// Spawn writes the resume prompt to the state directory and opens a new
// editor window on the context file. The context file must exist.
func (c *Coordinator) Spawn(ctxID, task string) (SpawnResult, error) {
	ctx, ok := c.reg.Get(ctxID)
	if !ok {
		return SpawnResult{}, fmt.Errorf("context %q: %w", ctxID, registry.ErrUnknownContext)
	}

	contextFile := filepath.Join(c.root, ctx.File)
	if _, err := os.Stat(contextFile); err != nil {
		return SpawnResult{}, fmt.Errorf("context file for %s: %w", ctxID, err)
	}

	prompt, err := c.ResumePrompt(ctxID, task)
	if err != nil {
		return SpawnResult{}, err
	}

	promptFile := filepath.Join(c.root, ".relay", promptFileName)
	if err := os.MkdirAll(filepath.Dir(promptFile), 0o755); err != nil {
		return SpawnResult{}, fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(promptFile, []byte(prompt), 0o644); err != nil {
		return SpawnResult{}, fmt.Errorf("write prompt file: %w", err)
	}

	if err := c.runner.Start("code", "-n", c.root, contextFile); err != nil {
		return SpawnResult{}, fmt.Errorf("spawn session: %w", err)
	}

	return SpawnResult{
		SessionID:   fmt.Sprintf("%s-%s", ctx.Prefix, c.newID()),
		Context:     ctxID,
		Task:        task,
		ContextFile: contextFile,
		PromptFile:  promptFile,
		SpawnedAt:   time.Now(),
	}, nil
}
