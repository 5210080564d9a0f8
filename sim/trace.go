package sim

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

type TraceOutcome int

const (
	InFlight TraceOutcome = iota
	Delivered
	Dropped
	Looped
)

func (o TraceOutcome) String() string {
	switch o {
	case InFlight:
		return "in-flight"
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	case Looped:
		return "looped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Trace is the journey of one data packet through the network
type Trace struct {
	Id      uuid.UUID
	Src     state.NodeId
	Dst     state.NodeId
	Path    []state.NodeId // routers the packet visited, in order
	Sent    time.Time
	Done    time.Time
	Outcome TraceOutcome
	Reason  string
}

func (t Trace) String() string {
	path := make([]string, 0, len(t.Path)+2)
	path = append(path, string(t.Src))
	for _, n := range t.Path {
		path = append(path, string(n))
	}
	if t.Outcome == Delivered {
		path = append(path, string(t.Dst))
	}
	s := fmt.Sprintf("%s %s -> %s: %s [%s] in %s", t.Id.String()[:8], t.Src, t.Dst, t.Outcome,
		strings.Join(path, " > "), t.Done.Sub(t.Sent))
	if t.Reason != "" {
		s += " (" + t.Reason + ")"
	}
	return s
}

// Tracer follows data packets through the network. Packets that visit more than maxHops routers are declared
// looped. Finished traces are kept and published to subscribers.
type Tracer struct {
	maxHops  int
	inflight *ttlcache.Cache[uuid.UUID, *Trace]
	mu       sync.Mutex
	finished []Trace
	started  bool

	feedMu sync.RWMutex // guards feed and closed, read-held while submitting
	feed   broadcast.Broadcaster
	closed bool
}

func NewTracer(cfg state.SimCfg) *Tracer {
	return &Tracer{
		maxHops: cfg.MaxHops,
		inflight: ttlcache.New[uuid.UUID, *Trace](
			ttlcache.WithTTL[uuid.UUID, *Trace](cfg.TraceTTL),
			ttlcache.WithDisableTouchOnHit[uuid.UUID, *Trace](),
		),
		feed:     broadcast.NewBroadcaster(1024),
		finished: make([]Trace, 0),
	}
}

// Start evicts stale in-flight traces in the background until Close
func (t *Tracer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go t.inflight.Start()
}

func (t *Tracer) Close() error {
	t.feedMu.Lock()
	defer t.feedMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.mu.Lock()
	if t.started {
		t.inflight.Stop()
	}
	t.mu.Unlock()
	return t.feed.Close()
}

// Subscribe registers ch to receive every finished Trace
func (t *Tracer) Subscribe(ch chan<- interface{}) {
	t.feedMu.Lock()
	defer t.feedMu.Unlock()
	if !t.closed {
		t.feed.Register(ch)
	}
}

func (t *Tracer) Unsubscribe(ch chan<- interface{}) {
	t.feedMu.Lock()
	defer t.feedMu.Unlock()
	if !t.closed {
		t.feed.Unregister(ch)
	}
}

// Sent starts tracing a packet that was just emitted by its source
func (t *Tracer) Sent(pkt state.Packet, now time.Time) {
	t.inflight.Set(pkt.Id, &Trace{
		Id:   pkt.Id,
		Src:  pkt.Src,
		Dst:  pkt.Dst,
		Path: make([]state.NodeId, 0),
		Sent: now,
	}, ttlcache.DefaultTTL)
}

// Hop records that node received pkt. It returns false if the packet has exceeded the hop limit, in which case it
// must be dropped.
func (t *Tracer) Hop(pkt state.Packet, node state.NodeId, now time.Time) bool {
	t.mu.Lock()
	item := t.inflight.Get(pkt.Id)
	var tr *Trace
	if item == nil {
		tr = &Trace{Id: pkt.Id, Src: pkt.Src, Dst: pkt.Dst, Path: make([]state.NodeId, 0), Sent: now}
		t.inflight.Set(pkt.Id, tr, ttlcache.DefaultTTL)
	} else {
		tr = item.Value()
	}
	tr.Path = append(tr.Path, node)
	exceeded := t.maxHops > 0 && len(tr.Path) > t.maxHops
	t.mu.Unlock()

	if exceeded {
		perf.PacketsLooped.Add(1)
		t.finish(pkt, now, Looped, fmt.Sprintf("exceeded %d hops", t.maxHops))
		return false
	}
	return true
}

func (t *Tracer) Delivered(pkt state.Packet, now time.Time) {
	perf.PacketsDelivered.Add(1)
	t.finish(pkt, now, Delivered, "")
}

func (t *Tracer) Dropped(pkt state.Packet, now time.Time, reason string) {
	t.finish(pkt, now, Dropped, reason)
}

func (t *Tracer) finish(pkt state.Packet, now time.Time, outcome TraceOutcome, reason string) {
	t.mu.Lock()
	item, ok := t.inflight.GetAndDelete(pkt.Id)
	var tr Trace
	if ok {
		tr = *item.Value()
	} else {
		tr = Trace{Id: pkt.Id, Src: pkt.Src, Dst: pkt.Dst, Sent: now}
	}
	tr.Done = now
	tr.Outcome = outcome
	tr.Reason = reason
	t.finished = append(t.finished, tr)
	t.mu.Unlock()

	t.feedMu.RLock()
	defer t.feedMu.RUnlock()
	if !t.closed {
		t.feed.Submit(tr)
	}
}

// Finished returns every trace that has reached an outcome, in the order they finished
func (t *Tracer) Finished() []Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Trace, len(t.finished))
	copy(out, t.finished)
	return out
}

// Lookup returns the finished trace of the packet with the given id
func (t *Tracer) Lookup(id uuid.UUID) (Trace, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.finished {
		if tr.Id == id {
			return tr, true
		}
	}
	if item := t.inflight.Get(id); item != nil {
		return *item.Value(), true
	}
	return Trace{}, false
}

func (t *Tracer) InFlight() int {
	return t.inflight.Len()
}
