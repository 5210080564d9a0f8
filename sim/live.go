package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
)

type liveClock struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (c *liveClock) Now() time.Time {
	return time.Now()
}

func (c *liveClock) After(d time.Duration, fn func() error) {
	time.AfterFunc(d, func() {
		if c.ctx.Err() != nil {
			return
		}
		if err := fn(); err != nil {
			c.cancel(err)
		}
	})
}

// LiveNetwork runs every router on its own runtime, with links that deliver packets in real time. Latencies are
// scaled by the configured latency unit.
type LiveNetwork struct {
	*Network
	ctx     context.Context
	cancel  context.CancelCauseFunc
	wg      sync.WaitGroup
	started bool
}

func NewLiveNetwork(ctx context.Context, cfg state.NetworkCfg, logger *slog.Logger) (*LiveNetwork, error) {
	state.ExpandNetworkConfig(&cfg)
	if err := state.NetworkConfigValidator(&cfg); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancelCause(ctx)
	net, err := NewNetwork(cfg, &liveClock{ctx: ctx, cancel: cancel}, logger)
	if err != nil {
		cancel(err)
		return nil, err
	}
	for _, rn := range net.routers {
		rn.rt = core.NewRuntime(ctx, rn.router)
	}
	return &LiveNetwork{
		Network: net,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start starts every router, brings up the links and schedules the events of the configuration relative to now.
func (l *LiveNetwork) Start() error {
	l.started = true
	l.Tracer.Start()
	for _, id := range l.Routers() {
		rt := l.routers[id].rt
		rt.Start()
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			select {
			case <-rt.Done():
				if err := rt.Err(); err != nil {
					l.cancel(fmt.Errorf("router %s: %w", id, err))
				}
			case <-l.ctx.Done():
			}
		}()
	}
	if err := l.ConnectAll(); err != nil {
		return err
	}
	for _, ev := range l.Cfg.Events {
		l.Clock.After(ev.At, func() error {
			l.Log.Info("event", "action", ev.Action, "a", ev.A, "b", ev.B)
			return l.Apply(ev)
		})
	}
	return nil
}

// Wait blocks for d, or until the network fails or its context is cancelled
func (l *LiveNetwork) Wait(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-l.ctx.Done():
	}
	return l.Err()
}

// Err returns the error that stopped the network, if any
func (l *LiveNetwork) Err() error {
	err := context.Cause(l.ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop stops every router and waits for them to exit
func (l *LiveNetwork) Stop() error {
	l.cancel(context.Canceled)
	if l.started {
		for _, rn := range l.routers {
			rn.rt.Stop()
		}
	}
	l.wg.Wait()
	return l.Close()
}
