package state

import (
	"fmt"
	"strings"
)

// RouterState is everything a single DV router owns. It must only be accessed from one goroutine.
type RouterState struct {
	Id      NodeId
	Cfg     RouterCfg
	Ports   *Ports
	Table   *Table
	History *AdvHistory
}

func NewRouterState(id NodeId, cfg RouterCfg) (*RouterState, error) {
	if err := RouterConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &RouterState{
		Id:      id,
		Cfg:     cfg,
		Ports:   NewPorts(),
		Table:   NewTable(),
		History: NewAdvHistory(),
	}, nil
}

func (s *RouterState) StringRoutes() string {
	rt := make([]string, 0, s.Table.Len())
	for dst, e := range s.Table.All() {
		rt = append(rt, fmt.Sprintf("%s via %s", dst, e))
	}
	return strings.Join(rt, "\n")
}
