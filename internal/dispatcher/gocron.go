package dispatcher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DeliveryFunc is invoked when a scheduled reminder fires.
type DeliveryFunc func(payload Payload)

// pendingJob tracks one scheduled reminder inside the gocron scheduler.
type pendingJob struct {
	cronID  uuid.UUID
	payload Payload
	firesAt time.Time
}

// GocronDispatcher implements Dispatcher on an in-process gocron scheduler.
// Jobs do not survive restarts; the maintenance engine rebuilds the reminder
// set from persisted item state on startup.
type GocronDispatcher struct {
	cron    gocron.Scheduler
	deliver DeliveryFunc
	logger  *slog.Logger

	mu   sync.Mutex
	jobs map[string]pendingJob // job id → pending state
}

// NewGocron creates a GocronDispatcher. The clock is injected so tests can
// advance time deterministically. deliver may be nil when nothing consumes
// fired reminders (e.g. one-shot CLI commands).
func NewGocron(clock clockwork.Clock, deliver DeliveryFunc, logger *slog.Logger) (*GocronDispatcher, error) {
	cron, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, &Error{Op: "init", Err: err}
	}
	return &GocronDispatcher{
		cron:    cron,
		deliver: deliver,
		logger:  logger,
		jobs:    make(map[string]pendingJob),
	}, nil
}

// Start begins firing scheduled jobs.
func (d *GocronDispatcher) Start() {
	d.cron.Start()
}

// Stop shuts the underlying scheduler down.
func (d *GocronDispatcher) Stop() error {
	if err := d.cron.Shutdown(); err != nil {
		return &Error{Op: "shutdown", Err: err}
	}
	return nil
}

// Schedule registers a one-shot job firing at firesAt.
func (d *GocronDispatcher) Schedule(_ context.Context, payload Payload, firesAt time.Time) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.NewString()
	job, err := d.cron.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(firesAt)),
		gocron.NewTask(func() { d.fired(id) }),
	)
	if err != nil {
		return "", &Error{Op: "schedule", Err: err}
	}

	d.jobs[id] = pendingJob{cronID: job.ID(), payload: payload, firesAt: firesAt}
	d.logger.Debug("reminder scheduled",
		"job_id", id, "item_id", payload.ItemID, "fires_at", firesAt)
	return id, nil
}

// fired removes the job from the pending set and hands the payload to the
// delivery callback.
func (d *GocronDispatcher) fired(id string) {
	d.mu.Lock()
	pj, ok := d.jobs[id]
	delete(d.jobs, id)
	d.mu.Unlock()

	if !ok {
		return
	}
	d.logger.Info("reminder fired",
		"job_id", id, "item_id", pj.payload.ItemID, "title", pj.payload.Title)
	if d.deliver != nil {
		d.deliver(pj.payload)
	}
}

// Cancel removes a pending job. Unknown ids are a no-op.
func (d *GocronDispatcher) Cancel(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	pj, ok := d.jobs[jobID]
	if !ok {
		return nil
	}
	delete(d.jobs, jobID)

	if err := d.cron.RemoveJob(pj.cronID); err != nil {
		return &Error{Op: "cancel", Err: err}
	}
	d.logger.Debug("reminder cancelled", "job_id", jobID, "item_id", pj.payload.ItemID)
	return nil
}

// ListScheduled returns all pending jobs ordered by fire time.
func (d *GocronDispatcher) ListScheduled(_ context.Context) ([]Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	jobs := make([]Job, 0, len(d.jobs))
	for id, pj := range d.jobs {
		jobs = append(jobs, Job{ID: id, Payload: pj.payload, FiresAt: pj.firesAt})
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].FiresAt.Equal(jobs[j].FiresAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].FiresAt.Before(jobs[j].FiresAt)
	})
	return jobs, nil
}
