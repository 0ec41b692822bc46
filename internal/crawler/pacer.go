package crawler

import (
	"context"
	"sync"
	"time"
)

// DomainPacer enforces a minimum delay between requests to the same
// domain. Waiters on different domains never contend: the lock guards
// only the map, and the sleep happens outside the critical section.
type DomainPacer struct {
	mu    sync.Mutex
	last  map[string]time.Time
	delay time.Duration
}

func NewDomainPacer(delay time.Duration) *DomainPacer {
	return &DomainPacer{
		last:  make(map[string]time.Time),
		delay: delay,
	}
}

// Wait blocks until at least the configured delay has passed since the
// last recorded request to domain, then records the current instant.
// Cancelled contexts return early without recording.
func (p *DomainPacer) Wait(ctx context.Context, domain string) error {
	for {
		p.mu.Lock()
		now := time.Now()
		prev, seen := p.last[domain]
		if !seen || now.Sub(prev) >= p.delay {
			p.last[domain] = now
			p.mu.Unlock()
			return nil
		}
		remaining := p.delay - now.Sub(prev)
		p.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
