package mailbox

import (
	"fmt"
	"sort"
	"time"

	"relay/pkg/registry"
)

// DefaultRetained caps how many read messages the cleanup pass keeps.
const DefaultRetained = 500

// Mailbox routes messages between contexts under the registry's handoff
// rules. It owns no state beyond the store and the immutable registry.
type Mailbox struct {
	reg   *registry.Registry
	store Store

	// nowFunc allows tests to control timestamps.
	nowFunc func() time.Time
}

// New creates a mailbox over the given store and registry.
func New(reg *registry.Registry, store Store) *Mailbox {
	return &Mailbox{reg: reg, store: store, nowFunc: time.Now}
}

// Send validates and appends a message. Unknown endpoints return
// registry.ErrUnknownContext; a non-coordinator sender whose (from, to, type)
// triple is not authorized returns a *PolicyError wrapping ErrPolicyViolation,
// and nothing is appended. The coordinator may send any type anywhere, and
// anyone may send to the coordinator or broadcast to "all".
func (m *Mailbox) Send(from, to, typ, subject, content string, priority Priority) (Message, error) {
	if !m.reg.Has(from) {
		return Message{}, fmt.Errorf("sender %q: %w", from, registry.ErrUnknownContext)
	}
	if to != Broadcast && !m.reg.Has(to) {
		return Message{}, fmt.Errorf("recipient %q: %w", to, registry.ErrUnknownContext)
	}
	if !priority.Valid() {
		priority = PriorityNormal
	}

	if err := m.authorize(from, to, typ); err != nil {
		return Message{}, err
	}

	if subject == "" {
		subject = fmt.Sprintf("[%s] from %s", typ, from)
	}

	return m.store.Append(Message{
		From:      from,
		To:        to,
		Type:      typ,
		Subject:   subject,
		Content:   content,
		Priority:  priority,
		CreatedAt: m.nowFunc(),
	})
}

// authorize applies the handoff rules. The coordinator is exempt in both
// directions: it may send anything, and anything may be sent to it.
func (m *Mailbox) authorize(from, to, typ string) error {
	coordinator := m.reg.Coordinator()
	if from == coordinator || to == coordinator {
		return nil
	}
	if to == Broadcast {
		// Only the coordinator broadcasts.
		return &PolicyError{From: from, To: to, Type: typ}
	}

	allowed := m.reg.AllowedTypes(from, to)
	for _, t := range allowed {
		if t == typ {
			return nil
		}
	}
	return &PolicyError{From: from, To: to, Type: typ, Allowed: allowed}
}

// Inbox returns messages addressed to ctx (directly or via "all"), sorted by
// priority descending then creation time ascending within a priority tier.
func (m *Mailbox) Inbox(ctx string, unreadOnly bool) ([]Message, error) {
	if !m.reg.Has(ctx) {
		return nil, fmt.Errorf("context %q: %w", ctx, registry.ErrUnknownContext)
	}

	all, err := m.store.List()
	if err != nil {
		return nil, err
	}

	var out []Message
	for _, msg := range all {
		if msg.To != ctx && msg.To != Broadcast {
			continue
		}
		if unreadOnly && msg.Read() {
			continue
		}
		out = append(out, msg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.rank(), out[j].Priority.rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PendingCount returns the number of unread messages for ctx.
func (m *Mailbox) PendingCount(ctx string) (int, error) {
	msgs, err := m.Inbox(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// MarkRead marks one message read. Idempotent: re-marking or naming an
// unknown ID changes nothing.
func (m *Mailbox) MarkRead(id int64) error {
	return m.store.MarkRead(id, m.nowFunc())
}

// Trim removes the oldest read messages beyond the retention cap.
func (m *Mailbox) Trim(maxRead int) (int, error) {
	if maxRead <= 0 {
		maxRead = DefaultRetained
	}
	return m.store.Trim(maxRead)
}

// All returns the complete log in creation order.
func (m *Mailbox) All() ([]Message, error) {
	return m.store.List()
}
