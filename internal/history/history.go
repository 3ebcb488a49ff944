// Package history maintains the persisted log of scheduled and fired
// maintenance reminders. The log lives as a single JSON-serialized value in
// the key/value store: every operation reads the whole log, modifies it, and
// writes it back, serialized by a mutex so interleaved appends and mark-read
// calls cannot lose updates.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/retroshelf/retroshelf/internal/storage"
)

// storageKey is the fixed key the serialized log is stored under.
const storageKey = "notification_history"

// MaxEntries caps the log length. Appends beyond the cap silently evict the
// oldest entries (bounded retention, not an error condition).
const MaxEntries = 50

// Record is one notification history entry. ID is the dispatcher job id
// returned at schedule time, kept so the reminder can later be cancelled.
// CreatedAt is when the record was written, not when the reminder fires.
type Record struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	CreatedAt       time.Time        `json:"created_at"`
	Read            bool             `json:"read"`
	ItemID          string           `json:"item_id"`
	ItemType        storage.ItemType `json:"item_type"`
	MaintenanceDate string           `json:"maintenance_date"`
}

// Store defines the operations over the persisted notification log.
type Store interface {
	// Append inserts a record at the head (most recent first) and truncates
	// the log to the MaxEntries most recent entries.
	Append(ctx context.Context, rec Record) error
	// List returns all records, most recent first.
	List(ctx context.Context) ([]Record, error)
	// MarkRead sets read=true on the matching record. Unknown ids are a no-op.
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead sets read=true on every record.
	MarkAllRead(ctx context.Context) error
	// CountUnread returns the number of records with read=false.
	CountUnread(ctx context.Context) (int, error)
	// Clear replaces the log with an empty sequence.
	Clear(ctx context.Context) error
}

// kvLog implements Store over a generic key/value store.
type kvLog struct {
	kv storage.KVStore
	mu sync.Mutex
}

// New returns a Store persisting the log through kv.
func New(kv storage.KVStore) Store {
	return &kvLog{kv: kv}
}

// load reads and decodes the full log. An absent key is an empty log.
func (s *kvLog) load(ctx context.Context) ([]Record, error) {
	raw, ok, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading notification history: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var recs []Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("decoding notification history: %w", err)
	}
	return recs, nil
}

// save encodes and writes the full log (last writer wins).
func (s *kvLog) save(ctx context.Context, recs []Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encoding notification history: %w", err)
	}
	if err := s.kv.Set(ctx, storageKey, string(raw)); err != nil {
		return fmt.Errorf("saving notification history: %w", err)
	}
	return nil
}

func (s *kvLog) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return err
	}

	recs = append([]Record{rec}, recs...)
	if len(recs) > MaxEntries {
		recs = recs[:MaxEntries]
	}
	return s.save(ctx, recs)
}

func (s *kvLog) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *kvLog) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range recs {
		if recs[i].ID == id && !recs[i].Read {
			recs[i].Read = true
			changed = true
		}
	}
	if !changed {
		// Unknown id or already read: idempotent no-op.
		return nil
	}
	return s.save(ctx, recs)
}

func (s *kvLog) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		recs[i].Read = true
	}
	return s.save(ctx, recs)
}

func (s *kvLog) CountUnread(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range recs {
		if !r.Read {
			count++
		}
	}
	return count, nil
}

func (s *kvLog) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, []Record{})
}
