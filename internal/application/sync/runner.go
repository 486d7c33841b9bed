package sync

import (
	"context"
	"sync"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

// DefaultInterval is the default background drain interval.
const DefaultInterval = 30 * time.Second

// Runner periodically drains the outbox in the background. Between
// drain intervals it polls the TTL-cached connectivity probe on a
// shorter cadence and pushes as soon as the device comes back online,
// so queued edits do not wait out a full interval after reconnecting.
type Runner struct {
	sync       *Synchronizer
	probe      ports.Connectivity
	interval   time.Duration
	probeEvery time.Duration
	logger     *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewRunner creates a background runner. A non-positive interval falls
// back to DefaultInterval.
func NewRunner(s *Synchronizer, probe ports.Connectivity, interval time.Duration, logger *logging.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	probeEvery := interval / 4
	if probeEvery > 5*time.Second {
		probeEvery = 5 * time.Second
	}
	if probeEvery <= 0 {
		probeEvery = interval
	}
	return &Runner{
		sync:       s,
		probe:      probe,
		interval:   interval,
		probeEvery: probeEvery,
		logger:     logger,
	}
}

// Start launches the background loop. Calling Start on a running
// runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go r.loop(ctx)
}

// Stop terminates the background loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.started = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	drain := time.NewTicker(r.interval)
	defer drain.Stop()
	probe := time.NewTicker(r.probeEvery)
	defer probe.Stop()

	wasOnline := r.probe.Online(ctx)
	r.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-drain.C:
			wasOnline = r.probe.Online(ctx)
			if wasOnline {
				r.runPass(ctx)
			}
		case <-probe.C:
			online := r.probe.Online(ctx)
			if online && !wasOnline {
				r.logger.InfoContext(ctx, "connectivity restored, draining outbox")
				r.runPass(ctx)
			}
			wasOnline = online
		}
	}
}

func (r *Runner) runPass(ctx context.Context) {
	if err := r.sync.PushPending(ctx); err != nil {
		r.logger.WarnContext(ctx, "background push failed", "error", err.Error())
	}
}
