// Package timer tracks stage execution time with periodic progress reports.
package timer

import (
	"sync"
	"time"

	"github.com/docmill-ai/docmill/internal/observability"
)

// DefaultInterval is how often a running timer reports elapsed time.
const DefaultInterval = 15 * time.Second

// Timer reports elapsed time for a named task. While running it logs an
// interval report; Stop always logs the final elapsed time. Both Start and
// Stop are idempotent: a second call warns instead of misbehaving.
type Timer struct {
	task     string
	interval time.Duration
	log      *observability.Logger

	mu      sync.Mutex
	running bool
	start   time.Time
	total   time.Duration
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a timer for the named task. A non-positive interval disables
// the periodic reports; the final report on Stop is unaffected.
func New(task string, interval time.Duration, log *observability.Logger) *Timer {
	return &Timer{
		task:     task,
		interval: interval,
		log:      log,
	}
}

// Start begins timing and launches the interval reporter.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		t.log.Warn().Msgf("timer for '%s' is already running", t.task)
		return
	}
	t.running = true
	t.start = time.Now()
	t.done = make(chan struct{})
	t.mu.Unlock()

	t.log.Info().Msgf("started timer for '%s'", t.task)

	if t.interval > 0 {
		t.wg.Add(1)
		go t.report()
	}
}

// Stop ends timing, waits for the reporter to exit, logs the final elapsed
// time, and returns it. Stopping a timer that is not running warns and
// returns the previous total.
func (t *Timer) Stop() time.Duration {
	t.mu.Lock()
	if !t.running {
		total := t.total
		t.mu.Unlock()
		t.log.Warn().Msgf("timer for '%s' is not running", t.task)
		return total
	}
	t.running = false
	t.total = time.Since(t.start)
	close(t.done)
	total := t.total
	t.mu.Unlock()

	t.wg.Wait()

	t.log.Info().Msgf("completed '%s' in %.2f seconds", t.task, total.Seconds())
	return total
}

// Elapsed returns the time since Start while running, or the final total
// after Stop.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return time.Since(t.start)
	}
	return t.total
}

func (t *Timer) report() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			running := t.running
			elapsed := time.Since(t.start)
			t.mu.Unlock()
			if !running {
				return
			}
			t.log.Info().Msgf("'%s' running for %.2f seconds...", t.task, elapsed.Seconds())
		}
	}
}

// Section times fn as a named task, stopping the timer on every path out.
func Section(task string, interval time.Duration, log *observability.Logger, fn func() error) error {
	t := New(task, interval, log)
	t.Start()
	defer t.Stop()
	return fn()
}
