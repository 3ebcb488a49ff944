package maintenance_test

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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/retroshelf/retroshelf/internal/dispatcher"
	dispatchermocks "github.com/retroshelf/retroshelf/internal/dispatcher/mocks"
	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/storage"
)

// --- in-memory dispatcher for behavior tests ---

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

// --- in-memory KV store backing the history log ---

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func maintainedItem(id, name, lastDate string, intervalMonths int) *storage.Item {
	next, _ := maintenance.NextDue(lastDate, intervalMonths)
	return &storage.Item{
		ID:                  id,
		Name:                name,
		Type:                storage.ItemTypeConsole,
		LastMaintenanceDate: lastDate,
		IntervalMonths:      intervalMonths,
		NextMaintenanceDate: next,
	}
}

func newTestScheduler(t *testing.T) (*maintenance.Scheduler, *memDispatcher, history.Store) {
	t.Helper()
	d := newMemDispatcher()
	h := history.New(newMemKV())
	clock := clockwork.NewFakeClockAt(testNow)
	s := maintenance.NewScheduler(d, h, clock, slog.New(slog.DiscardHandler))
	return s, d, h
}

func TestReschedule_LadderEndToEnd(t *testing.T) {
	s, d, h := newTestScheduler(t)
	ctx := context.Background()

	// Due 01/07/2024, 16 days from now: tier 30 is skipped, tiers
	// 14/7/3/1/0 all fire in the future.
	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	require.Equal(t, "01/07/2024", item.NextMaintenanceDate)

	ids, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	// Each job fires at 09:00 local, tier days before the due date.
	firesAt := make(map[int]time.Time)
	for _, j := range jobs {
		firesAt[j.Payload.TierDays] = j.FiresAt
	}
	assert.Equal(t, time.Date(2024, time.June, 17, 9, 0, 0, 0, time.Local), firesAt[14])
	assert.Equal(t, time.Date(2024, time.June, 24, 9, 0, 0, 0, time.Local), firesAt[7])
	assert.Equal(t, time.Date(2024, time.June, 28, 9, 0, 0, 0, time.Local), firesAt[3])
	assert.Equal(t, time.Date(2024, time.June, 30, 9, 0, 0, 0, time.Local), firesAt[1])
	assert.Equal(t, time.Date(2024, time.July, 1, 9, 0, 0, 0, time.Local), firesAt[0])

	recs, err := h.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 5)
	for _, rec := range recs {
		assert.Equal(t, "c1", rec.ItemID)
		assert.Equal(t, "01/07/2024", rec.MaintenanceDate)
		assert.False(t, rec.Read)
	}
}

func TestReschedule_Idempotent(t *testing.T) {
	s, d, _ := newTestScheduler(t)
	ctx := context.Background()
	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)

	first, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	second, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	assert.Len(t, second, len(first))

	// The second call's cancel step removed the first call's jobs.
	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, len(first))
}

func TestReschedule_OnlyCancelsOwnJobs(t *testing.T) {
	s, d, _ := newTestScheduler(t)
	ctx := context.Background()

	other := maintainedItem("c2", "Saturn", "01/02/2024", 5)
	_, err := s.Reschedule(ctx, other)
	require.NoError(t, err)
	otherJobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	otherCount := len(otherJobs)

	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	_, err = s.Reschedule(ctx, item)
	require.NoError(t, err)
	_, err = s.Reschedule(ctx, item)
	require.NoError(t, err)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	for _, j := range jobs {
		if j.Payload.ItemID == "c2" {
			otherCount--
		}
	}
	assert.Zero(t, otherCount, "another item's jobs were cancelled")
}

func TestReschedule_Overdue(t *testing.T) {
	s, d, h := newTestScheduler(t)
	ctx := context.Background()

	// Due 10/06/2024, five days before the fake now.
	item := maintainedItem("c1", "Game Boy", "10/12/2023", 6)
	require.Equal(t, "10/06/2024", item.NextMaintenanceDate)

	ids, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	// Fires at 09:00 the day after now.
	assert.Equal(t, time.Date(2024, time.June, 16, 9, 0, 0, 0, time.Local), jobs[0].FiresAt)
	assert.Contains(t, jobs[0].Payload.Body, "5 days overdue")
	assert.Equal(t, "Maintenance overdue", jobs[0].Payload.Title)

	recs, err := h.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReschedule_DueTodayAfterFireHour(t *testing.T) {
	s, d, _ := newTestScheduler(t)
	ctx := context.Background()

	// Due today; the fake now (noon) is already past 09:00 and the item is
	// not overdue, so nothing is scheduled.
	item := maintainedItem("c1", "Game Boy", "15/12/2023", 6)
	require.Equal(t, "15/06/2024", item.NextMaintenanceDate)

	ids, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, ids)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestReschedule_NoDueDateCancelsExisting(t *testing.T) {
	s, d, _ := newTestScheduler(t)
	ctx := context.Background()

	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	_, err := s.Reschedule(ctx, item)
	require.NoError(t, err)

	// Interval removed: no recurring maintenance configured any more.
	item.IntervalMonths = 0
	item.NextMaintenanceDate = ""
	ids, err := s.Reschedule(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, ids)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestReschedule_TierMessages(t *testing.T) {
	s, d, _ := newTestScheduler(t)
	ctx := context.Background()

	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	_, err := s.Reschedule(ctx, item)
	require.NoError(t, err)

	jobs, err := d.ListScheduled(ctx)
	require.NoError(t, err)

	titles := make(map[int]string)
	for _, j := range jobs {
		titles[j.Payload.TierDays] = j.Payload.Title
	}
	assert.Equal(t, "Maintenance scheduled", titles[14])
	assert.Equal(t, "Maintenance scheduled", titles[7])
	assert.Equal(t, "Maintenance upcoming", titles[3])
	assert.Equal(t, "Maintenance tomorrow", titles[1])
	assert.Equal(t, "Maintenance today", titles[0])
}

func TestReschedule_DispatcherListFailureAborts(t *testing.T) {
	d := &dispatchermocks.MockDispatcher{}
	d.On("ListScheduled", mock.Anything).
		Return(nil, &dispatcher.Error{Op: "list", Err: errors.New("backend down")})

	h := history.New(newMemKV())
	clock := clockwork.NewFakeClockAt(testNow)
	s := maintenance.NewScheduler(d, h, clock, slog.New(slog.DiscardHandler))

	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	_, err := s.Reschedule(context.Background(), item)
	require.Error(t, err)

	var dispErr *dispatcher.Error
	assert.True(t, errors.As(err, &dispErr))
	// Nothing was scheduled and no history was written.
	recs, listErr := h.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, recs)
	d.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
}

func TestReschedule_ScheduleFailureStopsLadder(t *testing.T) {
	d := &dispatchermocks.MockDispatcher{}
	d.On("ListScheduled", mock.Anything).Return([]dispatcher.Job{}, nil)
	d.On("Schedule", mock.Anything, mock.Anything, mock.Anything).
		Return("", &dispatcher.Error{Op: "schedule", Err: errors.New("backend down")}).Once()

	h := history.New(newMemKV())
	clock := clockwork.NewFakeClockAt(testNow)
	s := maintenance.NewScheduler(d, h, clock, slog.New(slog.DiscardHandler))

	item := maintainedItem("c1", "Game Boy", "01/01/2024", 6)
	ids, err := s.Reschedule(context.Background(), item)
	require.Error(t, err)
	assert.Empty(t, ids)

	// The ladder stopped at the first failure: exactly one Schedule attempt.
	d.AssertNumberOfCalls(t, "Schedule", 1)
}
