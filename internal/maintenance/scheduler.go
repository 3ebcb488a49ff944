package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/retroshelf/retroshelf/internal/dateutil"
	"github.com/retroshelf/retroshelf/internal/dispatcher"
	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/storage"
)

// reminderTiers is the fixed reminder ladder, in days before the due date.
var reminderTiers = []int{30, 14, 7, 3, 1, 0}

// fireHour is the local hour of day at which reminders fire.
const fireHour = 9

// overdueTier marks the synthesized overdue reminder in job payloads.
const overdueTier = -1

// Scheduler translates an item's due date into the set of pending dispatcher
// jobs and records each scheduled reminder in the notification history.
//
// Reschedule for one item is cancel-then-schedule and is not safe to run
// concurrently for the same item; callers serialize per item (the service
// layer holds a mutex across item mutations). Different items are
// independent.
type Scheduler struct {
	dispatcher dispatcher.Dispatcher
	history    history.Store
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(d dispatcher.Dispatcher, h history.Store, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{dispatcher: d, history: h, clock: clock, logger: logger}
}

// Reschedule cancels every pending reminder for the item, then schedules one
// job per ladder tier whose fire instant (09:00 local, tier days before the
// due date) is still in the future. When the item is already overdue it
// additionally schedules a single overdue reminder for 09:00 tomorrow.
// Returns the created job ids in ladder order.
//
// Any dispatcher error aborts the remaining steps; the cancel step is always
// safe to re-run, so callers retry the whole operation rather than resuming
// mid-ladder. A history write failure is reported after the dispatcher job
// is already committed; retrying Reschedule reconciles the two.
func (s *Scheduler) Reschedule(ctx context.Context, item *storage.Item) ([]string, error) {
	if err := s.CancelItem(ctx, item.ID); err != nil {
		return nil, err
	}

	if item.NextMaintenanceDate == "" {
		return nil, nil
	}
	due, err := dateutil.Parse(item.NextMaintenanceDate)
	if err != nil {
		return nil, fmt.Errorf("item %q due date: %w", item.ID, err)
	}

	now := s.clock.Now()
	diffDays := dateutil.DaysBetween(now, due)

	var jobIDs []string
	for _, tier := range reminderTiers {
		if diffDays < tier {
			continue
		}
		fireAt := atFireHour(dateutil.StartOfDay(due).AddDate(0, 0, -tier))
		if !fireAt.After(now) {
			continue
		}
		id, err := s.scheduleOne(ctx, item, tier, diffDays, fireAt, now)
		if err != nil {
			return jobIDs, err
		}
		jobIDs = append(jobIDs, id)
	}

	if diffDays < 0 {
		fireAt := atFireHour(dateutil.StartOfDay(now).AddDate(0, 0, 1))
		id, err := s.scheduleOne(ctx, item, overdueTier, diffDays, fireAt, now)
		if err != nil {
			return jobIDs, err
		}
		jobIDs = append(jobIDs, id)
	}

	s.logger.Info("reminders rescheduled",
		"item_id", item.ID, "item_name", item.Name,
		"due", item.NextMaintenanceDate, "days_remaining", diffDays,
		"jobs", len(jobIDs))
	return jobIDs, nil
}

// CancelItem cancels every pending dispatcher job belonging to the item.
// Cancelling zero jobs is not an error, which makes the cancel step
// idempotent and safe to re-run after a partial failure.
func (s *Scheduler) CancelItem(ctx context.Context, itemID string) error {
	jobs, err := s.dispatcher.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("listing scheduled reminders: %w", err)
	}
	for _, job := range jobs {
		if job.Payload.ItemID != itemID {
			continue
		}
		if err := s.dispatcher.Cancel(ctx, job.ID); err != nil {
			return fmt.Errorf("cancelling reminder %q: %w", job.ID, err)
		}
	}
	return nil
}

// scheduleOne submits a single dispatcher job and appends its history record.
func (s *Scheduler) scheduleOne(
	ctx context.Context, item *storage.Item, tier, diffDays int, fireAt, now time.Time,
) (string, error) {
	title, body := reminderMessage(item, tier, diffDays)
	payload := dispatcher.Payload{
		ItemID:          item.ID,
		ItemType:        item.Type,
		ItemName:        item.Name,
		Title:           title,
		Body:            body,
		MaintenanceDate: item.NextMaintenanceDate,
		TierDays:        tier,
	}

	id, err := s.dispatcher.Schedule(ctx, payload, fireAt)
	if err != nil {
		return "", fmt.Errorf("scheduling reminder for item %q: %w", item.ID, err)
	}

	rec := history.Record{
		ID:              id,
		Title:           title,
		Body:            body,
		CreatedAt:       now,
		ItemID:          item.ID,
		ItemType:        item.Type,
		MaintenanceDate: item.NextMaintenanceDate,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		// The dispatcher job is already committed at this point. Report the
		// failure; a retried Reschedule cancels and recreates everything.
		return id, fmt.Errorf("recording reminder %q in history: %w", id, err)
	}
	return id, nil
}

// reminderMessage builds the tier-specific title and body. Longer lead tiers
// use softer wording.
func reminderMessage(item *storage.Item, tier, diffDays int) (title, body string) {
	switch {
	case tier == overdueTier:
		title = "Maintenance overdue"
		body = fmt.Sprintf("%s is %d days overdue for maintenance (was due %s).",
			item.Name, -diffDays, item.NextMaintenanceDate)
	case tier >= 7:
		title = "Maintenance scheduled"
		body = fmt.Sprintf("%s has maintenance scheduled in %d days, on %s.",
			item.Name, tier, item.NextMaintenanceDate)
	case tier == 3:
		title = "Maintenance upcoming"
		body = fmt.Sprintf("%s is due for maintenance in 3 days, on %s.",
			item.Name, item.NextMaintenanceDate)
	case tier == 1:
		title = "Maintenance tomorrow"
		body = fmt.Sprintf("%s is due for maintenance tomorrow.", item.Name)
	default:
		title = "Maintenance today"
		body = fmt.Sprintf("%s is due for maintenance today.", item.Name)
	}
	return title, body
}

// atFireHour pins a day to the reminder fire time (09:00 local).
func atFireHour(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), fireHour, 0, 0, 0, day.Location())
}
