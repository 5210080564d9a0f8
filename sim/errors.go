package sim

import "errors"

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrNoLink      = errors.New("no link between nodes")
	ErrHostLinked  = errors.New("host already has a link")
)
