package state

import "errors"

var (
	// ErrUnknownPort is returned when the latency of a port that is not up is requested.
	ErrUnknownPort = errors.New("unknown port")
	// ErrLinkNotUp is returned when a static route is installed on a port that is not up.
	ErrLinkNotUp = errors.New("link is not up")
	// ErrInvalidConfiguration is returned when a router is built with conflicting options.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
