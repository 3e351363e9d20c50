// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Sweeper deletes expired seat holds in batches and reports how many rows
// went.  *service.Inventory satisfies it.
type Sweeper interface {
	SweepExpired(ctx context.Context, batchSize int) (int64, error)
}

// Reaper periodically clears expired holds so the reservation table does
// not accumulate rows nobody will ever touch again.  Correctness never
// depends on it: every read path already treats a stale hold as free.
type Reaper struct {
	sweeper   Sweeper
	interval  time.Duration
	batchSize int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReaper(s Sweeper, interval time.Duration, batchSize int) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize < 1 {
		batchSize = 500
	}
	return &Reaper{sweeper: s, interval: interval, batchSize: batchSize}
}

// Start launches the sweep loop.  Calling Start on a running reaper is a
// no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("reaper: started, sweeping expired holds every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("reaper: stopped")
			return
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				log.Printf("reaper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("reaper: deleted %d expired holds", n)
			}
		}
	}
}

// RunOnce performs a single sweep bounded to most of one interval so a slow
// database cannot make ticks pile up.  A panic in the sweeper is turned into
// an error.
func (r *Reaper) RunOnce(ctx context.Context) (n int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during sweep: %v", p)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, r.interval*4/5)
	defer cancel()
	return r.sweeper.SweepExpired(ctx, r.batchSize)
}
