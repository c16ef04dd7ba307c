// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wait

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTickerQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTickerQueue(time.Millisecond)
	go q.Run(ctx)

	var mtx sync.Mutex
	var tries int
	done := make(chan struct{})
	q.Wait(&Waiter{
		Expiration: time.Now().Add(time.Second),
		TryFunc: func() TryDirective {
			mtx.Lock()
			defer mtx.Unlock()
			tries++
			if tries < 3 {
				return TryAgain
			}
			close(done)
			return DontTryAgain
		},
		ExpireFunc: func() { t.Error("waiter expired unexpectedly") },
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never completed")
	}
}

func TestTickerQueueExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewTickerQueue(time.Millisecond)
	go q.Run(ctx)

	expired := make(chan struct{})
	q.Wait(&Waiter{
		Expiration: time.Now().Add(5 * time.Millisecond),
		TryFunc:    func() TryDirective { return TryAgain },
		ExpireFunc: func() { close(expired) },
	})

	select {
	case <-expired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never expired")
	}
}

func TestTickerQueueShutdownExpiresWaiters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewTickerQueue(time.Hour) // never ticks during the test
	ran := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(ran)
	}()

	expired := make(chan struct{})
	q.Wait(&Waiter{
		Expiration: time.Now().Add(time.Hour),
		TryFunc:    func() TryDirective { return TryAgain },
		ExpireFunc: func() { close(expired) },
	})

	cancel()
	<-ran
	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not expire pending waiter")
	}
}
