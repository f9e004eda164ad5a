// Package scheduler runs recurring background work that can be cancelled deterministically.
package scheduler

import (
	"sync"
	"time"
)

// CancelFunc stops a recurring task. It is safe to call more than once and from inside the task.
type CancelFunc func()

type Scheduler interface {
	// Every calls fn each interval until the returned CancelFunc is called.
	// The first call happens one interval after Every returns.
	Every(interval time.Duration, fn func()) CancelFunc
}

// TickerScheduler runs each task on its own goroutine driven by a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) CancelFunc {
	stopChan := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				// A tick and a stop can be ready together; stop wins.
				select {
				case <-stopChan:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(stopChan) })
	}
}
