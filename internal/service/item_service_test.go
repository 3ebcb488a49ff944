package service_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroshelf/retroshelf/internal/dispatcher"
	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/service"
	"github.com/retroshelf/retroshelf/internal/storage"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.Local)

// --- in-memory dispatcher ---

type memDispatcher struct {
	mu   sync.Mutex
	seq  int
	jobs map[string]dispatcher.Job
}

func newMemDispatcher() *memDispatcher {
	return &memDispatcher{jobs: make(map[string]dispatcher.Job)}
}

func (d *memDispatcher) Schedule(_ context.Context, payload dispatcher.Payload, firesAt time.Time) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := fmt.Sprintf("job-%d", d.seq)
	d.jobs[id] = dispatcher.Job{ID: id, Payload: payload, FiresAt: firesAt}
	return id, nil
}

func (d *memDispatcher) Cancel(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.jobs, jobID)
	return nil
}

func (d *memDispatcher) ListScheduled(_ context.Context) ([]dispatcher.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	jobs := make([]dispatcher.Job, 0, len(d.jobs))
	for _, j := range d.jobs {
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (d *memDispatcher) countForItem(itemID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, j := range d.jobs {
		if j.Payload.ItemID == itemID {
			n++
		}
	}
	return n
}

type fixture struct {
	svc        service.ItemService
	dispatcher *memDispatcher
	history    history.Store
	clock      *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	items := storage.NewSQLiteItemStore(db)
	hist := history.New(storage.NewSQLiteKVStore(db))
	d := newMemDispatcher()
	clock := clockwork.NewFakeClockAt(testNow)
	logger := slog.New(slog.DiscardHandler)

	agg := maintenance.NewAggregator(items, clock, logger)
	sched := maintenance.NewScheduler(d, hist, clock, logger)
	svc := service.NewItemService(items, agg, sched, nil, clock, logger)

	return &fixture{svc: svc, dispatcher: d, history: hist, clock: clock}
}

func newConsole(name string) *storage.Item {
	return &storage.Item{
		Name:                name,
		Type:                storage.ItemTypeConsole,
		LastMaintenanceDate: "01/01/2024",
		IntervalMonths:      6,
	}
}

func TestCreateItem_DerivesNextDueAndSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "01/07/2024", created.NextMaintenanceDate)

	// Due in 16 days: tiers 14/7/3/1/0 are scheduled.
	assert.Equal(t, 5, f.dispatcher.countForItem(created.ID))

	recs, err := f.history.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}

func TestCreateItem_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var vErr *service.ValidationError

	_, err := f.svc.CreateItem(ctx, &storage.Item{Type: storage.ItemTypeConsole})
	require.Error(t, err)
	assert.True(t, errors.As(err, &vErr))

	_, err = f.svc.CreateItem(ctx, &storage.Item{Name: "X", Type: "cartridge"})
	require.Error(t, err)
	assert.True(t, errors.As(err, &vErr))

	bad := newConsole("Game Boy")
	bad.LastMaintenanceDate = "31/02/2024"
	_, err = f.svc.CreateItem(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.As(err, &vErr))
}

func TestCreateItem_NoIntervalNoReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, &storage.Item{
		Name: "Shelf Queen",
		Type: storage.ItemTypeConsole,
	})
	require.NoError(t, err)
	assert.Empty(t, created.NextMaintenanceDate)
	assert.Zero(t, f.dispatcher.countForItem(created.ID))
}

func TestUpdateItem_RederivesAndReschedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)

	update := *created
	update.IntervalMonths = 12
	updated, err := f.svc.UpdateItem(ctx, created.ID, &update)
	require.NoError(t, err)
	assert.Equal(t, "01/01/2025", updated.NextMaintenanceDate)

	// Due in ~200 days: every tier's fire instant is in the future, so six
	// jobs replace the previous five.
	assert.Equal(t, 6, f.dispatcher.countForItem(created.ID))
}

func TestUpdateItem_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateItem(context.Background(), "ghost", newConsole("X"))
	var nf *service.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRecordMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)

	t.Run("explicit date", func(t *testing.T) {
		item, err := f.svc.RecordMaintenance(ctx, created.ID, "10/06/2024")
		require.NoError(t, err)
		assert.Equal(t, "10/06/2024", item.LastMaintenanceDate)
		assert.Equal(t, "10/12/2024", item.NextMaintenanceDate)
	})

	t.Run("defaults to today", func(t *testing.T) {
		item, err := f.svc.RecordMaintenance(ctx, created.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "15/06/2024", item.LastMaintenanceDate)
		assert.Equal(t, "15/12/2024", item.NextMaintenanceDate)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := f.svc.RecordMaintenance(ctx, created.ID, "June 10")
		var vErr *service.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})
}

func TestDeleteItem_CancelsReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)
	require.Positive(t, f.dispatcher.countForItem(created.ID))

	require.NoError(t, f.svc.DeleteItem(ctx, created.ID))
	assert.Zero(t, f.dispatcher.countForItem(created.ID))

	_, err = f.svc.GetItem(ctx, created.ID)
	var nf *service.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestUpcoming_ReflectsMutationsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries, err := f.svc.Upcoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Creating an item invalidates the cached empty result.
	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)

	entries, err = f.svc.Upcoming(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].ItemID)
	assert.Equal(t, 16, entries[0].DaysRemaining)

	// Deleting it invalidates again.
	require.NoError(t, f.svc.DeleteItem(ctx, created.ID))
	entries, err = f.svc.Upcoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResyncReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, newConsole("Game Boy"))
	require.NoError(t, err)

	// Simulate a restart: the in-process dispatcher lost its jobs.
	jobs, err := f.dispatcher.ListScheduled(ctx)
	require.NoError(t, err)
	for _, j := range jobs {
		require.NoError(t, f.dispatcher.Cancel(ctx, j.ID))
	}
	require.Zero(t, f.dispatcher.countForItem(created.ID))

	require.NoError(t, f.svc.ResyncReminders(ctx))
	assert.Equal(t, 5, f.dispatcher.countForItem(created.ID))
}
