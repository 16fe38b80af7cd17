package mailbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Store is the persistence capability behind a Mailbox. Implementations must
// assign monotonically increasing IDs in Append and make MarkRead idempotent.
type Store interface {
	// Append persists msg with the next monotonic ID and returns it.
	Append(msg Message) (Message, error)
	// List returns every message in creation order.
	List() ([]Message, error)
	// MarkRead sets the read timestamp for id. Already-read or unknown IDs
	// are a no-op.
	MarkRead(id int64, at time.Time) error
	// Trim removes the oldest read messages so at most maxRead read entries
	// remain; unread messages are never removed. Returns the removal count.
	Trim(maxRead int) (int, error)
	// Close releases backend resources.
	Close() error
}

// Logger receives corruption and recovery notices.
type Logger interface {
	Printf(format string, args ...any)
}

// FileStore keeps the whole log in one JSON array, rewritten on every
// mutation. Fine at the expected scale (tens to low hundreds of messages).
// Every mutation runs under an advisory flock so an out-of-process `relay
// send` cannot race the daemon's own writes.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger Logger
}

// NewFileStore creates a file store at path. The parent directory is created
// if needed; the log file itself appears on first append.
func NewFileStore(path string, logger Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mailbox dir: %w", err)
	}
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}, nil
}

// Append implements Store.
func (s *FileStore) Append(msg Message) (Message, error) {
	if err := s.lock.Lock(); err != nil {
		return Message{}, fmt.Errorf("lock message log: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	msgs := s.load()
	msg.ID = nextID(msgs)
	msgs = append(msgs, msg)
	if err := s.save(msgs); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// List implements Store.
func (s *FileStore) List() ([]Message, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock message log: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	return s.load(), nil
}

// MarkRead implements Store.
func (s *FileStore) MarkRead(id int64, at time.Time) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock message log: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	msgs := s.load()
	changed := false
	for i := range msgs {
		if msgs[i].ID == id && msgs[i].ReadAt == nil {
			t := at
			msgs[i].ReadAt = &t
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	return s.save(msgs)
}

// Trim implements Store.
func (s *FileStore) Trim(maxRead int) (int, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock message log: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	msgs := s.load()
	read := 0
	for _, m := range msgs {
		if m.Read() {
			read++
		}
	}
	excess := read - maxRead
	if excess <= 0 {
		return 0, nil
	}

	// Messages are in creation order; drop the oldest read entries first.
	kept := msgs[:0]
	removed := 0
	for _, m := range msgs {
		if removed < excess && m.Read() {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	if err := s.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Close implements Store. The file store holds no long-lived handles.
func (s *FileStore) Close() error { return nil }

// load reads the full log. A missing file is an empty log; a corrupt file is
// logged and treated as empty.
func (s *FileStore) load() []Message {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && s.logger != nil {
			s.logger.Printf("mailbox: read %s: %v", s.path, err)
		}
		return nil
	}

	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		if s.logger != nil {
			s.logger.Printf("mailbox: corrupt log %s, starting empty: %v", s.path, err)
		}
		return nil
	}
	return msgs
}

func (s *FileStore) save(msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode message log: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write message log: %w", err)
	}
	return nil
}

func nextID(msgs []Message) int64 {
	var max int64
	for _, m := range msgs {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}
