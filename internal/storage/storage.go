// Package storage implements the downstream storage adapter
// collaborators described in spec §4.6/§6: a message log that appends
// per-topic records and returns an offset, and a retained-message
// store keyed by topic id. Both are backed by sqlite through
// database/sql + github.com/mattn/go-sqlite3, generalizing the
// teacher's internal/auth.Store pattern of holding a *sql.DB and
// issuing plain SQL, the only storage idiom the teacher repo shows.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/pkg/er"
)

// MessageLog is the per-topic append log facade of spec §4.6/§4.9
// step 7: Append persists a record and returns the offset it landed
// at, expressed as a string so the Packet Handler can carry it
// verbatim into a PUBACK/PUBREC user property.
type MessageLog interface {
	Append(topicID string, payload []byte, properties []byte) (offset string, err error)
}

// RetainedStore is the retained-message facade of spec §4.6: Save
// replaces the single retained record for topicID, Get returns it (if
// any), Delete removes it. A retain PUBLISH with an empty payload
// calls Delete rather than Save — see DESIGN.md's open-question
// ledger entry.
type RetainedStore interface {
	Save(topicID string, payload []byte, properties []byte) error
	Get(topicID string) (payload []byte, properties []byte, ok bool, err error)
	Delete(topicID string) error
}

// SQLiteStore implements both MessageLog and RetainedStore against a
// single sqlite database, the way the teacher's auth.Store and this
// module's cmd/mqttd both open one *sql.DB for the whole process.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// ensures the message_log, retained_messages and users tables exist.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &er.Err{Context: "storage.Open", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	if err := db.Ping(); err != nil {
		return nil, &er.Err{Context: "storage.Open", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS message_log (
			topic_id   TEXT NOT NULL,
			offset     INTEGER NOT NULL,
			payload    BLOB NOT NULL,
			properties BLOB,
			PRIMARY KEY (topic_id, offset)
		)`,
		`CREATE TABLE IF NOT EXISTS retained_messages (
			topic_id   TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			properties BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username     TEXT PRIMARY KEY,
			secret       TEXT NOT NULL,
			is_superuser INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return &er.Err{Context: "storage.migrate", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements MessageLog.Append by assigning the next offset
// for topicID as one past its highest existing offset (0 for a new
// topic) and inserting the
// record; errors are wrapped so callers can embed them in a
// DISCONNECT reason message per spec §4.9 step 9.
func (s *SQLiteStore) Append(topicID string, payload []byte, properties []byte) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", &er.Err{Context: "MessageLog.Append", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	defer tx.Rollback()

	var nextOffset int64
	row := tx.QueryRow(`SELECT COALESCE(MAX(offset), -1) + 1 FROM message_log WHERE topic_id = ?`, topicID)
	if err := row.Scan(&nextOffset); err != nil {
		return "", &er.Err{Context: "MessageLog.Append", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}

	if _, err := tx.Exec(`INSERT INTO message_log (topic_id, offset, payload, properties) VALUES (?, ?, ?, ?)`,
		topicID, nextOffset, payload, properties); err != nil {
		return "", &er.Err{Context: "MessageLog.Append", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}

	if err := tx.Commit(); err != nil {
		return "", &er.Err{Context: "MessageLog.Append", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}

	return fmt.Sprintf("%d", nextOffset), nil
}

func (s *SQLiteStore) Save(topicID string, payload []byte, properties []byte) error {
	_, err := s.db.Exec(`INSERT INTO retained_messages (topic_id, payload, properties) VALUES (?, ?, ?)
		ON CONFLICT(topic_id) DO UPDATE SET payload = excluded.payload, properties = excluded.properties`,
		topicID, payload, properties)
	if err != nil {
		return &er.Err{Context: "RetainedStore.Save", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	return nil
}

func (s *SQLiteStore) Get(topicID string) ([]byte, []byte, bool, error) {
	var payload, properties []byte
	row := s.db.QueryRow(`SELECT payload, properties FROM retained_messages WHERE topic_id = ?`, topicID)
	if err := row.Scan(&payload, &properties); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, false, nil
		}
		return nil, nil, false, &er.Err{Context: "RetainedStore.Get", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	return payload, properties, true, nil
}

func (s *SQLiteStore) Delete(topicID string) error {
	if _, err := s.db.Exec(`DELETE FROM retained_messages WHERE topic_id = ?`, topicID); err != nil {
		return &er.Err{Context: "RetainedStore.Delete", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	return nil
}

// DB exposes the underlying *sql.DB, for callers that need the raw
// connection rather than the MessageLog/RetainedStore facades.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// SaveUser upserts a login credential, used at startup to persist the
// configured system user (spec.md §6 `system.system_user`) the way the
// teacher seeds its own admin row on first launch.
func (s *SQLiteStore) SaveUser(u broker.User) error {
	superuser := 0
	if u.IsSuperuser {
		superuser = 1
	}
	_, err := s.db.Exec(`INSERT INTO users (username, secret, is_superuser) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET secret = excluded.secret, is_superuser = excluded.is_superuser`,
		u.Username, u.PasswordSum, superuser)
	if err != nil {
		return &er.Err{Context: "SaveUser", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	return nil
}

// ListUsers loads every persisted credential, used at startup to seed
// the Metadata Cache's in-memory user index.
func (s *SQLiteStore) ListUsers() ([]broker.User, error) {
	rows, err := s.db.Query(`SELECT username, secret, is_superuser FROM users`)
	if err != nil {
		return nil, &er.Err{Context: "ListUsers", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
	}
	defer rows.Close()

	var out []broker.User
	for rows.Next() {
		var u broker.User
		var superuser int
		if err := rows.Scan(&u.Username, &u.PasswordSum, &superuser); err != nil {
			return nil, &er.Err{Context: "ListUsers", Message: fmt.Errorf("%w: %v", er.ErrStorageUnavailable, err)}
		}
		u.IsSuperuser = superuser != 0
		out = append(out, u)
	}
	return out, rows.Err()
}
