package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Env runs functions against a value of type T on a single goroutine. Env can be used from any goroutine.
type Env[T any] struct {
	DispatchChannel chan<- func(T) error
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Log             *slog.Logger
}

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *Env[T]) Dispatch(fun func(T) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete
func (e *Env[T]) DispatchWait(fun func(T) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	e.Dispatch(func(s T) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, context.Cause(e.Context)
	}
}

func (e *Env[T]) ScheduleTask(fun func(T) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if e.Context.Err() != nil {
			return
		}
		e.Dispatch(fun)
	})
}

func (e *Env[T]) repeatedTask(fun func(T) error, delay time.Duration) {
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Dispatch(fun)
		case <-e.Context.Done():
			return
		}
	}
}

// RepeatTask dispatches fun every delay until the context is cancelled. The first run happens after one delay.
func (e *Env[T]) RepeatTask(fun func(T) error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}
