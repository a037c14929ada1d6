// Package shutdown turns SIGINT/SIGTERM into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// NotifyContext cancels the returned context on the first signal so in-flight analyses can drain.
// A second signal exits the process immediately with status 130.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return notify(parent, func() { os.Exit(130) })
}

func notify(parent context.Context, force func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			cancel()
		case <-done:
			return
		}
		select {
		case <-sig:
			force()
		case <-done:
		}
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sig)
			close(done)
			cancel()
		})
	}
	return ctx, stop
}
