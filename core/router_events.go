package core

import "fmt"

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteImproved
	RouteRefreshed
	RoutePoisoned
	RouteExpired
	RouteDeleted
	StaticRouteAdded
	AdvertisementIgnored
	PacketForwarded
	LinkUp
	LinkDown
)

// drop events

const (
	NoRouteToDestination RouterEvent = iota + 1000
	UnreachableDestination
	SendOnDownPort
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteImproved:
		return "RouteImproved"
	case RouteRefreshed:
		return "RouteRefreshed"
	case RoutePoisoned:
		return "RoutePoisoned"
	case RouteExpired:
		return "RouteExpired"
	case RouteDeleted:
		return "RouteDeleted"
	case StaticRouteAdded:
		return "StaticRouteAdded"
	case AdvertisementIgnored:
		return "AdvertisementIgnored"
	case PacketForwarded:
		return "PacketForwarded"
	case LinkUp:
		return "LinkUp"
	case LinkDown:
		return "LinkDown"
	case NoRouteToDestination:
		return "NoRouteToDestination"
	case UnreachableDestination:
		return "UnreachableDestination"
	case SendOnDownPort:
		return "SendOnDownPort"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}
