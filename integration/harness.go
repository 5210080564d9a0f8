//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/sim"
	"github.com/encodeous/dvsim/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualHarness runs a live network with fast timers, and hands every finished trace to TraceHandler
type VirtualHarness struct {
	Cfg          state.NetworkCfg
	Net          *sim.LiveNetwork
	Context      context.Context
	TraceHandler func(tr sim.Trace)

	cancel context.CancelFunc
	traces chan interface{}
	wg     sync.WaitGroup
}

func (v *VirtualHarness) NewRouter(id state.NodeId) {
	v.Cfg.Routers = append(v.Cfg.Routers, id)
}

func (v *VirtualHarness) NewHost(id state.NodeId) {
	v.Cfg.Hosts = append(v.Cfg.Hosts, id)
}

func (v *VirtualHarness) AddLink(a, b state.NodeId, latency uint32) {
	v.Cfg.Links = append(v.Cfg.Links, fmt.Sprintf("%s, %s @ %d", a, b, latency))
}

func (v *VirtualHarness) Start() chan error {
	errs := make(chan error, 1)
	if v.Cfg.Router.UpdateInterval == 0 {
		v.Cfg.Router.UpdateInterval = 30 * time.Millisecond
	}
	if v.Cfg.Router.RouteTTL == 0 {
		v.Cfg.Router.RouteTTL = 200 * time.Millisecond
	}
	if v.Cfg.Sim.LatencyUnit == 0 {
		v.Cfg.Sim.LatencyUnit = time.Millisecond
	}
	v.Context, v.cancel = context.WithCancel(context.Background())

	logger, _, err := core.NewLogger("", slog.LevelDebug, "")
	if err != nil {
		errs <- err
		return errs
	}
	v.Net, err = sim.NewLiveNetwork(context.Background(), v.Cfg, logger)
	if err != nil {
		errs <- err
		return errs
	}

	v.traces = make(chan interface{}, 64)
	v.Net.Tracer.Subscribe(v.traces)
	v.wg.Add(2)
	go func() {
		defer v.wg.Done()
		for {
			select {
			case tr := <-v.traces:
				if v.TraceHandler != nil {
					v.TraceHandler(tr.(sim.Trace))
				}
			case <-v.Context.Done():
				return
			}
		}
	}()
	go func() {
		defer v.wg.Done()
		err := v.Net.Wait(time.Hour)
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	if err := v.Net.Start(); err != nil {
		select {
		case errs <- err:
		default:
		}
	}
	return errs
}

// PingEvery pings dst from src until the harness is stopped
func (v *VirtualHarness) PingEvery(src, dst state.NodeId, interval time.Duration) {
	h, ok := v.Net.Host(src)
	if !ok {
		panic(fmt.Sprintf("no such host: %s", src))
	}
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		for {
			select {
			case <-v.Context.Done():
				return
			case <-time.After(interval):
				h.Ping(dst)
			}
		}
	}()
}

func (v *VirtualHarness) Stop() {
	if v.Net == nil {
		return
	}
	v.Net.Tracer.Unsubscribe(v.traces)
	v.cancel()
	_ = v.Net.Stop()
	v.wg.Wait()
}
