package mailbox

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// schemaDDL defines the message log table for the SQLite-backed store.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_context TEXT NOT NULL,
    to_context TEXT NOT NULL,
    type TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT 'normal',
    created_at TEXT NOT NULL,
    read_at TEXT
);
`

// SQLiteStore is the database-backed Store, selected at construction when the
// deployment outgrows the whole-file JSON log. Transactional writes make it
// safe for concurrent CLI and daemon mutation without the advisory lock.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the message database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open message db: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(msg Message) (Message, error) {
	res, err := s.db.Exec(
		`INSERT INTO messages (from_context, to_context, type, subject, content, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.From, msg.To, msg.Type, msg.Subject, msg.Content, string(msg.Priority),
		msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	msg.ID = id
	return msg, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, from_context, to_context, type, subject, content, priority, created_at, read_at
		 FROM messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var msgs []Message
	for rows.Next() {
		var (
			m       Message
			prio    string
			created string
			readAt  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Type, &m.Subject, &m.Content, &prio, &created, &readAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Priority = Priority(prio)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			m.CreatedAt = t
		}
		if readAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, readAt.String); err == nil {
				m.ReadAt = &t
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead implements Store.
func (s *SQLiteStore) MarkRead(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Trim implements Store.
func (s *SQLiteStore) Trim(maxRead int) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM messages WHERE read_at IS NOT NULL AND id NOT IN (
		    SELECT id FROM messages WHERE read_at IS NOT NULL ORDER BY id DESC LIMIT ?
		 )`, maxRead)
	if err != nil {
		return 0, fmt.Errorf("trim messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // trim count is advisory
	}
	return int(n), nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
