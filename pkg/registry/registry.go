// Package registry loads the context registry: the fixed set of named
// workspaces sharing one project checkout, the handoff rules that authorize
// typed messages between them, and the server port sets. The registry is
// loaded once at startup and handed to every component; there is no global
// cache, so tests can inject a fresh registry freely.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// ErrUnknownContext is returned whenever a caller names a context that is not
// in the registry. Unknown names are rejected at every boundary, never coerced.
var ErrUnknownContext = errors.New("unknown context")

// Context describes one logical workspace.
type Context struct {
	ID            string   `json:"id"`
	File          string   `json:"file"`                     // context doc, relative to the project root; bare names resolve against context_path
	Prefix        string   `json:"prefix"`                   // session ID prefix, e.g. "D" for dev
	ResumePrompt  string   `json:"resume_prompt,omitempty"`  // override for the default resume template
	IsCoordinator bool     `json:"is_coordinator,omitempty"` // exactly one context must set this
	WatchDirs     []string `json:"watch_dirs,omitempty"`     // activity watch roots, relative to project root
}

// RuleSet is the on-disk form of a handoff rule: one sending context may send
// the listed message types to the listed targets. A target of "*" expands to
// every other known context at load time.
type RuleSet struct {
	To    []string `json:"to"`
	Types []string `json:"types"`
}

// File is the JSON shape of .relay/registry.json.
type File struct {
	Contexts     []Context                 `json:"contexts"`
	HandoffRules map[string]RuleSet        `json:"handoff_rules"`
	Ports        map[string]map[string]int `json:"ports"`
	ContextPath  string                    `json:"context_path,omitempty"`
}

// Registry is the immutable, validated view of the registry file.
type Registry struct {
	contexts    []Context
	byID        map[string]Context
	coordinator string
	// rules maps from-context -> to-context -> allowed message types,
	// with "*" targets already expanded.
	rules       map[string]map[string][]string
	ports       map[string]map[string]int
	contextPath string
}

// Load reads and validates a registry file. A missing file yields the built-in
// default registry rather than an error; a fresh checkout has no registry yet.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return New(f)
}

// New validates a registry file and builds the immutable registry view.
func New(f File) (*Registry, error) {
	if len(f.Contexts) == 0 {
		return nil, errors.New("registry: no contexts defined")
	}

	contextPath := f.ContextPath
	if contextPath == "" {
		contextPath = "docs/context"
	}

	byID := make(map[string]Context, len(f.Contexts))
	coordinators := 0
	coordinator := ""
	for i, ctx := range f.Contexts {
		if ctx.ID == "" {
			return nil, errors.New("registry: context with empty id")
		}
		// A bare file name resolves against context_path; anything with a
		// separator is already root-relative.
		if ctx.File != "" && !strings.Contains(ctx.File, "/") {
			ctx.File = path.Join(contextPath, ctx.File)
			f.Contexts[i] = ctx
		}
		if _, dup := byID[ctx.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate context %q", ctx.ID)
		}
		byID[ctx.ID] = ctx
		if ctx.IsCoordinator {
			coordinators++
			coordinator = ctx.ID
		}
	}
	if coordinators != 1 {
		return nil, fmt.Errorf("registry: exactly one coordinator required, found %d", coordinators)
	}

	rules := make(map[string]map[string][]string, len(f.HandoffRules))
	for from, rs := range f.HandoffRules {
		if _, ok := byID[from]; !ok {
			return nil, fmt.Errorf("registry: handoff rule for %w %q", ErrUnknownContext, from)
		}
		targets := make(map[string][]string)
		for _, to := range rs.To {
			if to == "*" {
				for id := range byID {
					if id != from {
						targets[id] = rs.Types
					}
				}
				continue
			}
			if _, ok := byID[to]; !ok {
				return nil, fmt.Errorf("registry: handoff target %w %q", ErrUnknownContext, to)
			}
			targets[to] = rs.Types
		}
		rules[from] = targets
	}

	ports := f.Ports
	if ports == nil {
		ports = defaultPorts()
	}

	return &Registry{
		contexts:    f.Contexts,
		byID:        byID,
		coordinator: coordinator,
		rules:       rules,
		ports:       ports,
		contextPath: contextPath,
	}, nil
}

// Has reports whether id names a registered context.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Get returns the context definition for id.
func (r *Registry) Get(id string) (Context, bool) {
	ctx, ok := r.byID[id]
	return ctx, ok
}

// IDs returns all context IDs in lexical order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contexts returns all context definitions in registry order.
func (r *Registry) Contexts() []Context {
	out := make([]Context, len(r.contexts))
	copy(out, r.contexts)
	return out
}

// Coordinator returns the ID of the coordinator context.
func (r *Registry) Coordinator() string {
	return r.coordinator
}

// AllowedTypes returns the message types from may send to to. The coordinator
// exemption is the mailbox's concern; this is the raw rule table.
func (r *Registry) AllowedTypes(from, to string) []string {
	return r.rules[from][to]
}

// Rules returns the expanded handoff rule table, keyed from -> to -> types.
// The returned map is shared; callers must treat it as read-only.
func (r *Registry) Rules() map[string]map[string][]string {
	return r.rules
}

// Ports returns the port set for the given mode. Unknown modes fall back to
// "normal".
func (r *Registry) Ports(fallback bool) map[string]int {
	key := "normal"
	if fallback {
		key = "fallback"
	}
	if p, ok := r.ports[key]; ok {
		return p
	}
	return r.ports["normal"]
}

// ContextPath returns the directory (relative to the project root) holding
// context doc files.
func (r *Registry) ContextPath() string {
	return r.contextPath
}

func defaultPorts() map[string]map[string]int {
	return map[string]map[string]int{
		"normal":   {"backend": 5001, "frontend": 5173},
		"fallback": {"backend": 5002, "frontend": 5174},
	}
}

// Default returns the built-in registry used when no registry file exists:
// the five stock contexts with oracle as coordinator, and the stock handoff
// rule table.
func Default() *Registry {
	f := File{
		Contexts: []Context{
			{ID: "oracle", File: "docs/context/ORACLE_CONTEXT.md", Prefix: "O", IsCoordinator: true, WatchDirs: []string{"oracle", "docs"}},
			{ID: "dev", File: "docs/context/DEV_CONTEXT.md", Prefix: "D", WatchDirs: []string{"app", "scripts", "config"}},
			{ID: "dash", File: "docs/context/DASHBOARD_CONTEXT.md", Prefix: "H", WatchDirs: []string{"app/frontend", "app/api"}},
			{ID: "crank", File: "docs/context/CRANK_CONTEXT.md", Prefix: "C", WatchDirs: []string{"content"}},
			{ID: "pocket", File: "docs/context/POCKET_CONTEXT.md", Prefix: "P"},
		},
		HandoffRules: map[string]RuleSet{
			"dash":   {To: []string{"dev", "crank"}, Types: []string{"custom_preset_request", "api_change_request", "backend_bug", "content_generation_request"}},
			"crank":  {To: []string{"dev", "dash"}, Types: []string{"bug_report", "content_ready"}},
			"dev":    {To: []string{"dash", "crank"}, Types: []string{"new_feature_available", "preset_added", "api_updated", "preset_fixed", "new_preset"}},
			"pocket": {To: []string{"oracle"}, Types: []string{"sync_complete", "fallback_active"}},
		},
		Ports: defaultPorts(),
	}
	r, err := New(f)
	if err != nil {
		// The built-in registry is validated by tests; this cannot happen
		// for the literal above.
		panic(err)
	}
	return r
}
