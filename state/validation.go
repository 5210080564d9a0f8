package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func RouterConfigValidator(cfg *RouterCfg) error {
	if cfg.SplitHorizon && cfg.PoisonReverse {
		return fmt.Errorf("split horizon and poison reverse can't both be on: %w", ErrInvalidConfiguration)
	}
	if cfg.RouteTTL < 0 || cfg.UpdateInterval < 0 {
		return fmt.Errorf("durations must not be negative: %w", ErrInvalidConfiguration)
	}
	return nil
}

func NetworkConfigValidator(cfg *NetworkCfg) error {
	err := RouterConfigValidator(&cfg.Router)
	if err != nil {
		return err
	}
	if cfg.Sim.LatencyUnit < 0 || cfg.Sim.MaxHops < 0 {
		return fmt.Errorf("sim options must not be negative")
	}
	if len(cfg.Routers) == 0 {
		return fmt.Errorf("network must contain at least one router")
	}
	seen := make([]NodeId, 0)
	for _, node := range cfg.GetNodes() {
		err := NameValidator(string(node))
		if err != nil {
			return err
		}
		if slices.Contains(seen, node) {
			return fmt.Errorf("duplicate node: %s", node)
		}
		seen = append(seen, node)
	}

	links, err := cfg.GetLinks()
	if err != nil {
		return err
	}
	hostLinks := make(map[NodeId]int)
	for _, link := range links {
		if cfg.IsHost(link.A) && cfg.IsHost(link.B) {
			return fmt.Errorf("hosts %s and %s must not be linked directly", link.A, link.B)
		}
		for _, n := range []NodeId{link.A, link.B} {
			if cfg.IsHost(n) {
				hostLinks[n]++
				if hostLinks[n] > 1 {
					return fmt.Errorf("host %s must be linked to exactly one router", n)
				}
			}
		}
	}

	for _, ev := range cfg.Events {
		if ev.At < 0 {
			return fmt.Errorf("event %s %s-%s is scheduled before the start of the simulation", ev.Action, ev.A, ev.B)
		}
		if !cfg.IsNode(ev.A) {
			return fmt.Errorf("node %s not defined", ev.A)
		}
		if !cfg.IsNode(ev.B) {
			return fmt.Errorf("node %s not defined", ev.B)
		}
		switch ev.Action {
		case ActionLinkDown, ActionLinkUp:
			if !slices.ContainsFunc(links, func(l LinkCfg) bool {
				return MakeSortedPair(l.A, l.B) == MakeSortedPair(ev.A, ev.B)
			}) {
				return fmt.Errorf("event %s refers to a link that is not defined: %s, %s", ev.Action, ev.A, ev.B)
			}
			if ev.Latency >= INF {
				return fmt.Errorf("latency %d must be less than %d", ev.Latency, INF)
			}
		case ActionPing:
			if !cfg.IsHost(ev.A) || !cfg.IsHost(ev.B) {
				return fmt.Errorf("ping must be sent between hosts: %s, %s", ev.A, ev.B)
			}
		default:
			return fmt.Errorf("unknown event action: %s", ev.Action)
		}
	}
	return nil
}
