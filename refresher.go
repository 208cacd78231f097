package sessionkit

import (
	"context"
	"sync"
)

type refreshOutcome struct {
	pair TokenPair
	err  error
}

// refreshTicket marks one in-flight refresh. It holds the settled outcome
// once done is closed; every waiter observes the same outcome.
type refreshTicket struct {
	done    chan struct{}
	outcome refreshOutcome
}

// refreshCoordinator guarantees at most one refresh request in flight.
// The first caller to find no ticket creates one and runs the refresh;
// every concurrent caller waits on that ticket instead of dialing out. The
// ticket is removed the moment it settles, so a later 401 starts fresh.
type refreshCoordinator struct {
	mu     sync.Mutex
	ticket *refreshTicket

	run         func(ctx context.Context) (TokenPair, error)
	onCoalesced func()
}

func newRefreshCoordinator(run func(ctx context.Context) (TokenPair, error), onCoalesced func()) *refreshCoordinator {
	return &refreshCoordinator{
		run:         run,
		onCoalesced: onCoalesced,
	}
}

// Refresh returns the outcome of the single in-flight refresh, starting one
// if none is running. A waiter whose context expires abandons the wait; the
// refresh itself keeps running for the remaining waiters.
func (c *refreshCoordinator) Refresh(ctx context.Context) (TokenPair, error) {
	c.mu.Lock()
	if t := c.ticket; t != nil {
		c.mu.Unlock()
		if c.onCoalesced != nil {
			c.onCoalesced()
		}
		select {
		case <-t.done:
			return t.outcome.pair, t.outcome.err
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		}
	}

	t := &refreshTicket{done: make(chan struct{})}
	c.ticket = t
	c.mu.Unlock()

	pair, err := c.run(ctx)
	t.outcome = refreshOutcome{pair: pair, err: err}

	c.mu.Lock()
	c.ticket = nil
	c.mu.Unlock()
	close(t.done)

	return pair, err
}
