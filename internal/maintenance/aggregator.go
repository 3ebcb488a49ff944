package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/retroshelf/retroshelf/internal/dateutil"
	"github.com/retroshelf/retroshelf/internal/storage"
)

// UpcomingWindowDays is the aggregation window: items due within this many
// days, or already overdue, appear in the due-soon list.
const UpcomingWindowDays = 30

// cacheTTL bounds how long a memoized due-soon result may be served.
const cacheTTL = 5 * time.Minute

// ListEntry is one row of the due-soon list. Negative DaysRemaining means
// the item is overdue; there is no lower bound, so arbitrarily overdue items
// stay listed.
type ListEntry struct {
	ItemID              string           `json:"item_id"`
	Name                string           `json:"name"`
	Type                storage.ItemType `json:"type"`
	Subtype             string           `json:"subtype,omitempty"`
	NextMaintenanceDate string           `json:"next_maintenance_date"`
	DaysRemaining       int              `json:"days_remaining"`
	LastMaintenanceDate string           `json:"last_maintenance_date,omitempty"`
}

// Aggregator computes the due-soon list over all maintainable items and
// memoizes the result for cacheTTL. The cache is a performance optimization
// only: cached and fresh results are equal for unchanged input, and every
// item mutation must call Invalidate.
type Aggregator struct {
	items  storage.ItemStore
	clock  clockwork.Clock
	logger *slog.Logger

	mu         sync.Mutex
	cached     []ListEntry
	computedAt time.Time
	valid      bool
}

// NewAggregator creates an Aggregator. The clock is injected so tests can
// control cache expiry deterministically.
func NewAggregator(items storage.ItemStore, clock clockwork.Clock, logger *slog.Logger) *Aggregator {
	return &Aggregator{items: items, clock: clock, logger: logger}
}

// Upcoming returns the due-soon list ordered most urgent first (ascending
// days remaining, ties in stable input order: consoles before accessories,
// each in creation order). A memoized result younger than five minutes is
// returned as-is unless Invalidate was called in between.
func (a *Aggregator) Upcoming(ctx context.Context) ([]ListEntry, error) {
	now := a.clock.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.valid && now.Sub(a.computedAt) < cacheTTL {
		return slices.Clone(a.cached), nil
	}

	entries, err := a.compute(ctx, now)
	if err != nil {
		return nil, err
	}

	a.cached = entries
	a.computedAt = now
	a.valid = true
	a.logger.Debug("due-soon list recomputed", "entries", len(entries))
	return slices.Clone(entries), nil
}

// Invalidate drops the memoized result. Must be called whenever any item's
// maintenance fields change.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.valid = false
	a.cached = nil
	a.mu.Unlock()
}

// compute scans all items and builds the filtered, sorted list.
func (a *Aggregator) compute(ctx context.Context, now time.Time) ([]ListEntry, error) {
	consoles, err := a.items.ListItemsByType(ctx, storage.ItemTypeConsole)
	if err != nil {
		return nil, fmt.Errorf("listing consoles: %w", err)
	}
	accessories, err := a.items.ListItemsByType(ctx, storage.ItemTypeAccessory)
	if err != nil {
		return nil, fmt.Errorf("listing accessories: %w", err)
	}

	entries := make([]ListEntry, 0)
	for _, item := range append(consoles, accessories...) {
		if item.NextMaintenanceDate == "" {
			continue
		}
		due, err := dateutil.Parse(item.NextMaintenanceDate)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", item.ID, err)
		}

		daysRemaining := dateutil.DaysBetween(now, due)
		if daysRemaining > UpcomingWindowDays {
			continue
		}
		entries = append(entries, ListEntry{
			ItemID:              item.ID,
			Name:                item.Name,
			Type:                item.Type,
			Subtype:             item.Subtype,
			NextMaintenanceDate: item.NextMaintenanceDate,
			DaysRemaining:       daysRemaining,
			LastMaintenanceDate: item.LastMaintenanceDate,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DaysRemaining < entries[j].DaysRemaining
	})
	return entries, nil
}
