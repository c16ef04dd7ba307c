// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package wait provides a ticker queue for retrying functions periodically
// until they succeed or expire. The core uses it to poll transaction
// validation without holding a goroutine per submission.
package wait

import (
	"context"
	"sync"
	"time"
)

// TryDirective is a response that a Waiter's TryFunc can return to instruct
// the queue to continue trying or to quit.
type TryDirective bool

const (
	// TryAgain instructs the ticker queue to try again after the configured
	// delay.
	TryAgain TryDirective = false
	// DontTryAgain instructs the ticker queue to quit trying and quit
	// tracking the Waiter.
	DontTryAgain TryDirective = true
)

// Waiter is a function to run every recheck interval until completion or
// expiration. Completion is indicated when the TryFunc returns DontTryAgain.
type Waiter struct {
	// Expiration is checked after the function returns TryAgain. If the
	// current time is after Expiration, ExpireFunc is run and the waiter is
	// un-queued.
	Expiration time.Time
	// TryFunc is the function to run periodically until DontTryAgain is
	// returned or the Waiter expires.
	TryFunc func() TryDirective
	// ExpireFunc is run if the Waiter expires, including at queue shutdown.
	ExpireFunc func()
}

// TickerQueue is a Waiter manager that checks a function periodically until
// DontTryAgain is indicated.
type TickerQueue struct {
	waiterMtx       sync.Mutex
	waiters         []*Waiter
	recheckInterval time.Duration
}

// NewTickerQueue is the constructor for a new TickerQueue.
func NewTickerQueue(recheckInterval time.Duration) *TickerQueue {
	return &TickerQueue{
		recheckInterval: recheckInterval,
		waiters:         make([]*Waiter, 0, 16),
	}
}

// Wait attempts to run the Waiter's TryFunc until either it returns
// DontTryAgain or the Expiration time passes, in which case ExpireFunc runs.
// The first attempt is made immediately.
func (q *TickerQueue) Wait(w *Waiter) {
	if w.TryFunc() == DontTryAgain {
		return
	}
	if time.Now().After(w.Expiration) {
		w.ExpireFunc()
		return
	}
	q.waiterMtx.Lock()
	q.waiters = append(q.waiters, w)
	q.waiterMtx.Unlock()
}

// Run runs the primary wait loop until the context is canceled. Waiters still
// pending at shutdown are expired.
func (q *TickerQueue) Run(ctx context.Context) {
	defer func() {
		q.waiterMtx.Lock()
		for _, w := range q.waiters {
			w.ExpireFunc()
		}
		q.waiters = q.waiters[:0]
		q.waiterMtx.Unlock()
	}()

	ticker := time.NewTicker(q.recheckInterval)
	defer ticker.Stop()

	runWaiters := func() {
		q.waiterMtx.Lock()
		defer q.waiterMtx.Unlock()
		agains := make([]*Waiter, 0, len(q.waiters))
		tNow := time.Now()
		for _, w := range q.waiters {
			if ctx.Err() != nil {
				return
			}
			if w.TryFunc() == DontTryAgain {
				continue
			}
			if w.Expiration.Before(tNow) {
				w.ExpireFunc()
				continue
			}
			agains = append(agains, w)
		}
		q.waiters = agains
	}

	for {
		select {
		case <-ticker.C:
			runWaiters()
		case <-ctx.Done():
			return
		}
	}
}
