package mapview

import (
	"context"
	"sync"
	"time"

	"github.com/tmardones/campusred/internal/geo"
)

// DefaultPositionTimeout bounds how long a screen waits for a position fix
// before degrading to rating-based sorting for the rest of the session.
const DefaultPositionTimeout = 5 * time.Second

// PositionProvider resolves the user's position exactly once per session.
// The platform (browser geolocation, posted over HTTP) calls Deliver; the
// screen receives the fix through the callback passed to Resolve. After the
// timeout, a context cancellation, or screen teardown, late deliveries are
// silently dropped.
type PositionProvider struct {
	timeout time.Duration

	mu      sync.Mutex
	settled bool
	coord   *geo.Coordinate
	fix     chan geo.Coordinate
}

func NewPositionProvider(timeout time.Duration) *PositionProvider {
	if timeout <= 0 {
		timeout = DefaultPositionTimeout
	}
	return &PositionProvider{
		timeout: timeout,
		fix:     make(chan geo.Coordinate, 1),
	}
}

// Resolve waits for a single position fix in the background and invokes fn
// with it on success. On timeout or cancellation the provider settles with no
// coordinate and fn is never called.
func (p *PositionProvider) Resolve(ctx context.Context, fn func(geo.Coordinate)) {
	go func() {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()

		select {
		case c := <-p.fix:
			p.mu.Lock()
			p.settled = true
			p.coord = &c
			p.mu.Unlock()
			fn(c)
		case <-timer.C:
			p.settle()
		case <-ctx.Done():
			p.settle()
		}
	}()
}

func (p *PositionProvider) settle() {
	p.mu.Lock()
	p.settled = true
	p.mu.Unlock()
}

// Deliver feeds the platform's position fix. It returns false when the
// provider has already settled, in which case the fix is dropped.
func (p *PositionProvider) Deliver(c geo.Coordinate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	select {
	case p.fix <- c:
		return true
	default:
		return false
	}
}

// Coordinate returns the resolved position, or nil while pending or after a
// failed resolution.
func (p *PositionProvider) Coordinate() *geo.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coord
}
