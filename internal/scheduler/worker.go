package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Worker runs automation cycles on a timer. Cycles never overlap: if
// the previous one is still running when the timer fires, the tick is
// skipped rather than queued.
type Worker struct {
	scheduler    *Scheduler
	interval     string
	initialDelay time.Duration

	cron    *cron.Cron
	running atomic.Bool
	delayed *time.Timer
}

// NewWorker creates a Worker over the scheduler. interval is a cron
// spec ("@every 1h" style or five-field).
func NewWorker(s *Scheduler, interval string, initialDelay time.Duration) *Worker {
	return &Worker{
		scheduler:    s,
		interval:     interval,
		initialDelay: initialDelay,
	}
}

// Start schedules the recurring cycle plus a one-shot run after the
// initial delay, so a fresh deployment produces content without
// waiting a full interval.
func (w *Worker) Start(ctx context.Context) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.interval, func() { w.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid worker interval %q: %w", w.interval, err)
	}
	w.cron.Start()

	w.delayed = time.AfterFunc(w.initialDelay, func() { w.runOnce(ctx) })

	log.Printf("Worker started: interval %s, first run in %s", w.interval, w.initialDelay)
	return nil
}

// Stop halts the timers. A cycle already in flight finishes on its own.
func (w *Worker) Stop() {
	if w.delayed != nil {
		w.delayed.Stop()
	}
	if w.cron != nil {
		w.cron.Stop()
	}
}

// TriggerCycle runs a cycle if none is in flight. It reports false
// without running when one already is, which the admin surface maps to
// a conflict response.
func (w *Worker) TriggerCycle(ctx context.Context) (CycleResult, bool) {
	if !w.running.CompareAndSwap(false, true) {
		return CycleResult{}, false
	}
	defer w.running.Store(false)
	return w.scheduler.RunCycle(ctx), true
}

// Running reports whether a cycle is currently in flight.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) runOnce(ctx context.Context) {
	result, started := w.TriggerCycle(ctx)
	if !started {
		log.Printf("Skipping cycle: previous cycle still running")
		return
	}
	switch {
	case result.Err != nil:
		log.Printf("Cycle finished with error: %v", result.Err)
	case result.Processed:
		log.Printf("Cycle processed %s (post %s, %d entries planned)", result.EntryDate, result.PostID, result.Ensured)
	default:
		log.Printf("Cycle idle: no claimable entries (%d entries planned)", result.Ensured)
	}
}
