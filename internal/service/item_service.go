package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/retroshelf/retroshelf/internal/dateutil"
	"github.com/retroshelf/retroshelf/internal/eventbus"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/storage"
)

// EventPublisher allows the service to emit events without depending on a
// concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// ItemService defines the business logic interface for collection items.
// Every mutation keeps the derived next-maintenance date, the due-soon
// cache, and the pending reminder set consistent with the stored state.
type ItemService interface {
	ListConsoles(ctx context.Context) ([]*storage.Item, error)
	ListAccessories(ctx context.Context) ([]*storage.Item, error)
	GetItem(ctx context.Context, id string) (*storage.Item, error)
	CreateItem(ctx context.Context, item *storage.Item) (*storage.Item, error)
	UpdateItem(ctx context.Context, id string, item *storage.Item) (*storage.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// RecordMaintenance marks the item as maintained on the given regional
	// date ("" means today), re-derives the next due date, and reschedules.
	RecordMaintenance(ctx context.Context, id, date string) (*storage.Item, error)
	// Upcoming returns the due-soon list (items due within 30 days or overdue).
	Upcoming(ctx context.Context) ([]maintenance.ListEntry, error)
	// ResyncReminders rebuilds the reminder set for every item from
	// persisted state. Called on startup because dispatcher jobs are
	// in-process and do not survive restarts.
	ResyncReminders(ctx context.Context) error
}

// itemService implements ItemService.
type itemService struct {
	items      storage.ItemStore
	aggregator *maintenance.Aggregator
	reminders  *maintenance.Scheduler
	bus        EventPublisher
	clock      clockwork.Clock
	logger     *slog.Logger

	// mu serializes mutations so the cancel-then-schedule sequence for one
	// item is never interleaved with another mutation of the same item.
	mu sync.Mutex
}

// NewItemService creates an ItemService. bus may be nil when no listener
// consumes item-change events.
func NewItemService(
	items storage.ItemStore,
	aggregator *maintenance.Aggregator,
	reminders *maintenance.Scheduler,
	bus EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) ItemService {
	return &itemService{
		items:      items,
		aggregator: aggregator,
		reminders:  reminders,
		bus:        bus,
		clock:      clock,
		logger:     logger,
	}
}

func (s *itemService) ListConsoles(ctx context.Context) ([]*storage.Item, error) {
	items, err := s.items.ListItemsByType(ctx, storage.ItemTypeConsole)
	if err != nil {
		return nil, fmt.Errorf("listing consoles: %w", err)
	}
	return items, nil
}

func (s *itemService) ListAccessories(ctx context.Context) ([]*storage.Item, error) {
	items, err := s.items.ListItemsByType(ctx, storage.ItemTypeAccessory)
	if err != nil {
		return nil, fmt.Errorf("listing accessories: %w", err)
	}
	return items, nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (*storage.Item, error) {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}
	if item == nil {
		return nil, &NotFoundError{Resource: "item", ID: id}
	}
	return item, nil
}

func (s *itemService) CreateItem(ctx context.Context, item *storage.Item) (*storage.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := s.clock.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.deriveNextDue(item); err != nil {
		return nil, err
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created", "id", item.ID, "name", item.Name, "type", item.Type)
	return item, s.afterMaintenanceChange(ctx, item)
}

func (s *itemService) UpdateItem(ctx context.Context, id string, item *storage.Item) (*storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up item: %w", err)
	}
	if existing == nil {
		return nil, &NotFoundError{Resource: "item", ID: id}
	}

	item.ID = id
	item.Type = existing.Type
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.clock.Now()

	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.deriveNextDue(item); err != nil {
		return nil, err
	}
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("updating item %q: %w", id, err)
	}

	s.logger.Info("item updated", "id", id, "name", item.Name)

	maintenanceChanged := existing.LastMaintenanceDate != item.LastMaintenanceDate ||
		existing.IntervalMonths != item.IntervalMonths ||
		existing.NextMaintenanceDate != item.NextMaintenanceDate
	if !maintenanceChanged {
		return item, nil
	}
	return item, s.afterMaintenanceChange(ctx, item)
}

func (s *itemService) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.items.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up item: %w", err)
	}
	if existing == nil {
		return &NotFoundError{Resource: "item", ID: id}
	}

	if err := s.items.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("deleting item %q: %w", id, err)
	}

	s.aggregator.Invalidate()
	if err := s.reminders.CancelItem(ctx, id); err != nil {
		return fmt.Errorf("cancelling reminders for deleted item %q: %w", id, err)
	}

	s.logger.Info("item deleted", "id", id, "name", existing.Name)
	s.publishItemChanged(existing)
	return nil
}

func (s *itemService) RecordMaintenance(ctx context.Context, id, date string) (*storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up item: %w", err)
	}
	if item == nil {
		return nil, &NotFoundError{Resource: "item", ID: id}
	}

	if date == "" {
		date = dateutil.Format(s.clock.Now())
	} else if _, err := dateutil.Parse(date); err != nil {
		return nil, &ValidationError{Field: "date", Message: err.Error()}
	}

	item.LastMaintenanceDate = date
	item.UpdatedAt = s.clock.Now()
	if err := s.deriveNextDue(item); err != nil {
		return nil, err
	}
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("recording maintenance for %q: %w", id, err)
	}

	s.logger.Info("maintenance recorded",
		"id", id, "name", item.Name, "date", date, "next_due", item.NextMaintenanceDate)
	return item, s.afterMaintenanceChange(ctx, item)
}

func (s *itemService) Upcoming(ctx context.Context) ([]maintenance.ListEntry, error) {
	return s.aggregator.Upcoming(ctx)
}

func (s *itemService) ResyncReminders(ctx context.Context) error {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("loading items for reminder resync: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resynced := 0
	for _, item := range items {
		if item.NextMaintenanceDate == "" {
			continue
		}
		if _, err := s.reminders.Reschedule(ctx, item); err != nil {
			s.logger.Warn("failed to resync reminders",
				"item_id", item.ID, "item_name", item.Name, "error", err)
			continue
		}
		resynced++
	}
	s.logger.Info("reminders resynced", "items", resynced)
	return nil
}

// deriveNextDue recomputes the persisted next-maintenance date from the
// item's last maintenance date and interval.
func (s *itemService) deriveNextDue(item *storage.Item) error {
	next, err := maintenance.NextDue(item.LastMaintenanceDate, item.IntervalMonths)
	if err != nil {
		var parseErr *dateutil.ParseError
		if errors.As(err, &parseErr) {
			return &ValidationError{Field: "last_maintenance_date", Message: err.Error()}
		}
		return err
	}
	item.NextMaintenanceDate = next
	return nil
}

// afterMaintenanceChange invalidates the due-soon cache and rebuilds the
// item's reminder ladder. Must be called with s.mu held.
func (s *itemService) afterMaintenanceChange(ctx context.Context, item *storage.Item) error {
	s.aggregator.Invalidate()
	s.publishItemChanged(item)

	if _, err := s.reminders.Reschedule(ctx, item); err != nil {
		// The item itself is already persisted; the caller retries the
		// scheduling by re-saving or restarting.
		return fmt.Errorf("rescheduling reminders for %q: %w", item.ID, err)
	}
	return nil
}

func (s *itemService) publishItemChanged(item *storage.Item) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.EventItemChanged, map[string]string{
		"item_id":   item.ID,
		"item_type": string(item.Type),
		"name":      item.Name,
		"next_due":  item.NextMaintenanceDate,
	})
}

// validateItem checks the user-supplied fields.
func validateItem(item *storage.Item) error {
	if item.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	switch item.Type {
	case storage.ItemTypeConsole, storage.ItemTypeAccessory:
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown item type %q", item.Type)}
	}
	if item.IntervalMonths < 0 {
		return &ValidationError{Field: "maintenance_interval_months", Message: "interval must be positive"}
	}
	if item.LastMaintenanceDate != "" {
		if _, err := dateutil.Parse(item.LastMaintenanceDate); err != nil {
			return &ValidationError{Field: "last_maintenance_date", Message: err.Error()}
		}
	}
	return nil
}
