// Package history keeps the append-only delivery log: one immutable
// record per attempted send. Entries are never updated after the fact,
// with one exception: a later view-count backfill from the messaging
// platform.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("entries")
	bucketByID    = []byte("by_id")
)

// Trigger records which path initiated the send.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Entry is one delivery attempt. Company name is snapshotted so the log
// stays meaningful after a company is renamed or deleted.
type Entry struct {
	ID          string    `json:"id"`
	SlotID      int64     `json:"slot_id"`
	PostID      int64     `json:"post_id"`
	CompanyID   int64     `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Status      string    `json:"status"` // sent or failed
	Error       string    `json:"error,omitempty"`
	Trigger     Trigger   `json:"trigger"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	MessageID   int       `json:"message_id,omitempty"`
	ChatID      int64     `json:"chat_id,omitempty"`
	ViewCount   *int      `json:"view_count,omitempty"`
}

// Log is a bbolt-backed delivery log.
type Log struct {
	db *bolt.DB
}

// Open opens (creating if needed) the log database at path.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketByID} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Log{db: db}, nil
}

// Append writes a new entry. The entry's ID and CreatedAt are assigned
// here if unset.
func (l *Log) Append(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		key := makeIndexKey(e.CreatedAt, e.ID)
		if err := tx.Bucket(bucketEntries).Put(key, data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}
		if err := tx.Bucket(bucketByID).Put([]byte(e.ID), key); err != nil {
			return fmt.Errorf("failed to index entry: %w", err)
		}
		return nil
	})
}

// SetViewCount backfills the post-delivery view metric on an entry.
// This is the only mutation the log permits.
func (l *Log) SetViewCount(id string, views int) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketByID).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("entry not found: %s", id)
		}

		entries := tx.Bucket(bucketEntries)
		data := entries.Get(key)
		if data == nil {
			return fmt.Errorf("entry not found: %s", id)
		}

		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		e.ViewCount = &views

		updated, err := json.Marshal(&e)
		if err != nil {
			return err
		}
		return entries.Put(key, updated)
	})
}

// List returns entries newest first.
func (l *Log) List(limit, offset int) ([]*Entry, error) {
	var entries []*Entry

	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()

		count := 0
		skipped := 0
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if skipped < offset {
				skipped++
				continue
			}

			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, &e)
			count++

			if limit > 0 && count >= limit {
				break
			}
		}
		return nil
	})

	return entries, err
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// makeIndexKey creates a sortable key from timestamp and ID.
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano) + ":" + id)
}
