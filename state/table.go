package state

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"
)

// TableEntry is a route to Dst through Port. Entries are values: a route is updated by replacing its entry,
// so two entries are the same route iff they compare equal.
type TableEntry struct {
	Dst      NodeId
	Port     PortId
	Metric   uint32
	ExpireAt time.Time
}

func (e TableEntry) IsStatic() bool {
	return e.ExpireAt.Equal(Forever)
}

func (e TableEntry) IsPoisoned() bool {
	return e.Metric >= INF
}

// HasExpired reports whether the route was not refreshed in time. Routes that expire at Forever never expire.
func (e TableEntry) HasExpired(now time.Time) bool {
	return now.After(e.ExpireAt)
}

// Equal compares entries field by field
func (e TableEntry) Equal(o TableEntry) bool {
	return e.Dst == o.Dst && e.Port == o.Port && e.Metric == o.Metric && e.ExpireAt.Equal(o.ExpireAt)
}

func (e TableEntry) String() string {
	exp := "never"
	if !e.IsStatic() {
		exp = e.ExpireAt.UTC().Format("15:04:05.000")
	}
	return fmt.Sprintf("(dst: %s, port: %d, metric: %s, expires: %s)", e.Dst, e.Port, FormatMetric(e.Metric), exp)
}

// Table maps every known destination to its current best route.
type Table struct {
	routes map[NodeId]TableEntry
}

func NewTable() *Table {
	return &Table{routes: make(map[NodeId]TableEntry)}
}

func (t *Table) Get(dst NodeId) (TableEntry, bool) {
	e, ok := t.routes[dst]
	return e, ok
}

// Set unconditionally replaces the entry for e.Dst
func (t *Table) Set(e TableEntry) {
	t.routes[e.Dst] = e
}

func (t *Table) Delete(dst NodeId) {
	delete(t.routes, dst)
}

func (t *Table) Has(dst NodeId) bool {
	_, ok := t.routes[dst]
	return ok
}

func (t *Table) Len() int {
	return len(t.routes)
}

// All iterates over a snapshot of the table in ascending destination order, so the table may be modified
// while iterating.
func (t *Table) All() iter.Seq2[NodeId, TableEntry] {
	keys := slices.Sorted(maps.Keys(t.routes))
	snapshot := maps.Clone(t.routes)
	return func(yield func(NodeId, TableEntry) bool) {
		for _, k := range keys {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}

// AdvHistory remembers the last entry advertised for each (destination, port).
type AdvHistory struct {
	sent map[Pair[NodeId, PortId]]TableEntry
}

func NewAdvHistory() *AdvHistory {
	return &AdvHistory{sent: make(map[Pair[NodeId, PortId]]TableEntry)}
}

func (h *AdvHistory) Record(port PortId, e TableEntry) {
	h.sent[MakePair(e.Dst, port)] = e
}

func (h *AdvHistory) Last(dst NodeId, port PortId) (TableEntry, bool) {
	e, ok := h.sent[MakePair(dst, port)]
	return e, ok
}

// Changed reports whether e differs from what was last advertised for its destination on port
func (h *AdvHistory) Changed(port PortId, e TableEntry) bool {
	last, ok := h.Last(e.Dst, port)
	return !ok || !last.Equal(e)
}

func (h *AdvHistory) Len() int {
	return len(h.sent)
}
