package core

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// Runtime runs a router on its own goroutine in real time. Handlers are only ever called from the main loop,
// one at a time in dispatch order, so every interaction with the router must go through Dispatch.
type Runtime struct {
	*state.Env[*DVRouter]
	router   *DVRouter
	dispatch <-chan func(*DVRouter) error
	done     chan struct{}
	started  atomic.Bool
}

func NewRuntime(ctx context.Context, router *DVRouter) *Runtime {
	ctx, cancel := context.WithCancelCause(ctx)
	dispatch := make(chan func(*DVRouter) error, state.DispatchBuffer)
	return &Runtime{
		Env: &state.Env[*DVRouter]{
			DispatchChannel: dispatch,
			Context:         ctx,
			Cancel:          cancel,
			Log:             router.Logger,
		},
		router:   router,
		dispatch: dispatch,
		done:     make(chan struct{}),
	}
}

// Start runs the main loop in the background and fires the router's timer every update interval. It does nothing
// if the runtime was already started or stopped.
func (rt *Runtime) Start() {
	if !rt.started.CompareAndSwap(false, true) {
		return
	}
	rt.RepeatTask(func(r *DVRouter) error {
		r.HandleTimer()
		return nil
	}, rt.router.Cfg.UpdateInterval)
	go func() {
		defer close(rt.done)
		rt.MainLoop()
	}()
}

func (rt *Runtime) MainLoop() {
	rt.Log.Debug("started main loop")
	for {
		select {
		case fun := <-rt.dispatch:
			start := time.Now()
			err := fun(rt.router)
			if err != nil {
				rt.Log.Error("error occurred during dispatch: ", "error", err)
				rt.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				rt.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(rt.dispatch))
			}
		case <-rt.Context.Done():
			rt.Log.Debug("stopped main loop", "reason", context.Cause(rt.Context).Error())
			return
		}
	}
}

// Stop cancels the runtime and waits for the main loop to exit
func (rt *Runtime) Stop() {
	rt.Cancel(context.Canceled)
	if rt.started.CompareAndSwap(false, true) {
		// never started, so there is no main loop to wait for
		close(rt.done)
		return
	}
	<-rt.done
}

func (rt *Runtime) Done() <-chan struct{} {
	return rt.done
}

// Err returns the error that stopped the runtime, or nil if it was stopped normally or is still running
func (rt *Runtime) Err() error {
	err := context.Cause(rt.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (rt *Runtime) Router() *DVRouter {
	return rt.router
}
