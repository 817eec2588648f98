package app

import (
	"sync"
	"time"
)

// Scheduler arms recurring callbacks. Every timer (re)start and cancel in the
// attempt engine is a side effect of a named transition going through this
// interface, which keeps the engine deterministic under test.
type Scheduler interface {
	// Every invokes fn once per interval until the returned stop function is
	// called. Stop is idempotent and must not block on fn.
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
