package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// SignalContext is cancelled by the first SIGINT or SIGTERM and remembers it,
// so commands can tell an interrupted conversation from a finished one.
type SignalContext struct {
	context.Context
	cancel   context.CancelFunc
	received atomic.Pointer[os.Signal]
}

// NewSignalContext derives a SignalContext from parent.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go sc.wait(ch)
	return sc
}

func (sc *SignalContext) wait(ch chan os.Signal) {
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		sc.received.Store(&sig)
		sc.cancel()
	case <-sc.Done():
	}
}

// Cancel releases the context and stops listening for signals.
func (sc *SignalContext) Cancel() {
	sc.cancel()
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	if p := sc.received.Load(); p != nil {
		return *p
	}
	return nil
}
