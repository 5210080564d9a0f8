package state

import (
	"fmt"

	"github.com/google/uuid"
)

type NodeId string

// PortId identifies a link endpoint on a single node
type PortId int

type PacketKind int

const (
	KindData PacketKind = iota
	KindRoute
)

func (k PacketKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindRoute:
		return "route"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Advertisement is the payload of a route packet: the sender's cost to reach Dst.
type Advertisement struct {
	Dst    NodeId
	Metric uint32
}

func (a Advertisement) String() string {
	return fmt.Sprintf("(dst: %s, metric: %s)", a.Dst, FormatMetric(a.Metric))
}

type Packet struct {
	Id      uuid.UUID
	Kind    PacketKind
	Src     NodeId
	Dst     NodeId
	Route   *Advertisement `yaml:",omitempty"`
	Payload []byte         `yaml:",omitempty"`
}

// NewDataPacket creates a data packet with a fresh identifier
func NewDataPacket(src, dst NodeId, payload []byte) Packet {
	return Packet{
		Id:      uuid.New(),
		Kind:    KindData,
		Src:     src,
		Dst:     dst,
		Payload: payload,
	}
}

// NewRoutePacket wraps an advertisement into a packet sent by src
func NewRoutePacket(src NodeId, adv Advertisement) Packet {
	return Packet{
		Kind:  KindRoute,
		Src:   src,
		Route: &adv,
	}
}

func (p Packet) String() string {
	if p.Kind == KindRoute && p.Route != nil {
		return fmt.Sprintf("<route from %s %s>", p.Src, p.Route)
	}
	return fmt.Sprintf("<%s %s -> %s id: %s>", p.Kind, p.Src, p.Dst, p.Id)
}

func FormatMetric(m uint32) string {
	if m >= INF {
		return "inf"
	}
	return fmt.Sprint(m)
}
