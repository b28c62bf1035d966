/*
scheduler.go - Automated daily accrual scheduler

PURPOSE:

	Periodically runs the engine's daily accrual job. The job itself is
	idempotent per (slot, UTC day), so the check interval only controls
	how soon after midnight UTC slots get credited; extra passes are
	cheap no-ops.

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:

	scheduler := NewAccrualScheduler(engine)
	scheduler.Start()
	// ... later
	scheduler.Stop()

SEE ALSO:
  - handlers.go: RunAccrual endpoint (manual trigger)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nkwazi/invest-engine/engine"
)

// AccrualScheduler drives the daily accrual job in-process.
type AccrualScheduler struct {
	Engine        *engine.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(eng *engine.Engine) *AccrualScheduler {
	return &AccrualScheduler{
		Engine:        eng,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *AccrualScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.runOnce()

	for {
		select {
		case <-as.ticker.C:
			as.runOnce()
		case <-as.stop:
			return
		}
	}
}

func (as *AccrualScheduler) runOnce() {
	credited, err := as.Engine.RunDailyAccrual(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Accrual run failed: %v", err)
		return
	}
	if credited > 0 {
		log.Printf("[Scheduler] Credited %d slots", credited)
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.runOnce()
}

// NextRunTime returns when the next scheduled run will occur.
func (as *AccrualScheduler) NextRunTime() time.Time {
	return time.Now().Add(as.CheckInterval)
}
