package server

import (
	"context"
	"time"
)

// Watchdog evicts connections that stay silent for longer than the
// configured timeout. Handlers call Touch on every received frame; when the
// timeout elapses without activity the expire callback runs once, typically
// closing the connection to unblock its reader. The event loop stops when
// ctx is done.
type Watchdog struct {
	ticker     *time.Ticker
	activityCh chan struct{}
	timeout    time.Duration
	expire     func()
}

func NewWatchdog(ctx context.Context, timeout time.Duration, expire func()) *Watchdog {
	w := &Watchdog{
		ticker:     time.NewTicker(timeout / 4),
		activityCh: make(chan struct{}, 1),
		timeout:    timeout,
		expire:     expire,
	}

	go w.run(ctx)

	return w
}

func (w *Watchdog) run(ctx context.Context) {
	defer w.ticker.Stop()

	lastActivity := time.Now()

	for {
		select {
		case <-w.ticker.C:
			if time.Since(lastActivity) > w.timeout {
				w.expire()

				return
			}
		case <-w.activityCh:
			lastActivity = time.Now()
		case <-ctx.Done():
			return
		}
	}
}

// Touch records activity without blocking. An unprocessed notification
// already in flight is enough.
func (w *Watchdog) Touch() {
	select {
	case w.activityCh <- struct{}{}:
	default:
	}
}
