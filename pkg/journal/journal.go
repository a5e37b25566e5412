// Package journal keeps a persistent record of control lifecycle events:
// connections opening and closing, halts and firmware updates.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/asdine/storm/v3"
)

// Entry is one journal record
type Entry struct {
	ID     int       `storm:"id,increment" json:"id"`
	Kind   string    `storm:"index" json:"kind"`
	ConnID string    `json:"conn_id,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Journal is a storm (bbolt) backed event log
type Journal struct {
	db  *storm.DB
	now func() time.Time
}

// Open opens or creates the journal database at path
func Open(path string) (*Journal, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Init(&Entry{}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Record appends an entry
func (j *Journal) Record(kind, connID, detail string) error {
	entry := &Entry{
		Kind:   kind,
		ConnID: connID,
		Detail: detail,
		At:     j.now().UTC(),
	}
	if err := j.db.Save(entry); err != nil {
		return fmt.Errorf("save journal entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first
func (j *Journal) Recent(n int) ([]Entry, error) {
	var entries []Entry
	if err := j.db.All(&entries, storm.Limit(n), storm.Reverse()); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return entries, nil
}

// RecentOfKind returns up to n entries of one kind, newest first
func (j *Journal) RecentOfKind(kind string, n int) ([]Entry, error) {
	var entries []Entry
	err := j.db.Find("Kind", kind, &entries, storm.Limit(n), storm.Reverse())
	if errors.Is(err, storm.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
