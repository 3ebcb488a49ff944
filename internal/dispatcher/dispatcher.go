// Package dispatcher schedules one-shot reminder alerts for future
// instants. The engine only depends on the Dispatcher contract; the gocron
// implementation delivers in-process. Device-level channel/importance
// configuration is the delivery side's concern, not the engine's.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/retroshelf/retroshelf/internal/storage"
)

// Payload is the reminder content carried by a scheduled job. ItemID links
// the job back to its collection item so all of an item's pending reminders
// can be found and cancelled by scanning the scheduled set.
type Payload struct {
	ItemID          string           `json:"item_id"`
	ItemType        storage.ItemType `json:"item_type"`
	ItemName        string           `json:"item_name"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	MaintenanceDate string           `json:"maintenance_date"`
	// TierDays is the reminder's lead time in days before the due date.
	// -1 marks the synthesized overdue reminder.
	TierDays int `json:"tier_days"`
}

// Job is a pending scheduled reminder.
type Job struct {
	ID      string
	Payload Payload
	FiresAt time.Time
}

// Dispatcher is the contract for the external alert scheduler.
type Dispatcher interface {
	// Schedule registers a one-shot job firing at firesAt and returns its id.
	Schedule(ctx context.Context, payload Payload, firesAt time.Time) (string, error)
	// Cancel removes a pending job. Cancelling an unknown id is a no-op.
	Cancel(ctx context.Context, jobID string) error
	// ListScheduled returns all pending jobs.
	ListScheduled(ctx context.Context) ([]Job, error)
}

// Error wraps a failure from the underlying scheduling facility. Callers may
// safely retry the whole cancel-then-schedule sequence after one.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatcher %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
