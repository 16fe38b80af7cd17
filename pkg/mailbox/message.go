// Package mailbox implements the durable inter-context message log: typed,
// priority-ordered messages routed under the registry's handoff rules, with
// the coordinator context exempt from rule checks in both directions.
//
// Persistence is a capability interface with two implementations: a file-backed
// JSON log (the default) and a SQLite-backed store. Both assume the daemon is
// the primary writer; the file store additionally takes an advisory flock so a
// CLI invocation mutating the log while the daemon runs cannot interleave a
// read-modify-write cycle.
package mailbox

import (
	"errors"
	"fmt"
	"time"
)

// Priority orders message delivery within an inbox.
type Priority string

// Priorities, most urgent first in inbox ordering.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// rank maps priorities to sort keys; lower sorts first. Unknown priorities
// rank as normal.
func (p Priority) rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Broadcast is the wildcard recipient: a message to Broadcast lands in every
// context's inbox.
const Broadcast = "all"

// Message is one entry in the log. Created only after rule validation; the
// only mutation ever applied is setting ReadAt.
type Message struct {
	ID        int64      `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Type      string     `json:"type"`
	Subject   string     `json:"subject,omitempty"`
	Content   string     `json:"content"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

// Read reports whether the message has been marked read.
func (m Message) Read() bool {
	return m.ReadAt != nil
}

// ErrPolicyViolation marks a send whose (from, to, type) triple is not
// authorized by the handoff rules.
var ErrPolicyViolation = errors.New("policy violation")

// PolicyError carries the disallowed triple.
type PolicyError struct {
	From, To, Type string
	Allowed        []string
}

func (e *PolicyError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("policy violation: %s may not send to %s", e.From, e.To)
	}
	return fmt.Sprintf("policy violation: %s may not send %q to %s (allowed: %v)", e.From, e.Type, e.To, e.Allowed)
}

func (e *PolicyError) Unwrap() error { return ErrPolicyViolation }
