package state

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

/*
ParseLinks Link syntax is something like this:

edge = r1, r2, r3

core = r4, r5

edge, core @ 3 // every node of edge is linked to every node of core with latency 3, but not within edge or core

core, core // every node of core is linked to every other node of core with the default latency

h1, r1 // h1 and r1 will be linked

graph represents the above lines
nodes represents the set of terminal nodes that groups evaluate down to
*/
func ParseLinks(graph []string, nodes []string) ([]LinkCfg, error) {
	symbols := slices.Clone(nodes)
	groupDefs := make(map[string]string)
	pairings := make([]string, 0)

	// pass 0, split group definitions from pairings and collect all symbols

	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if !strings.Contains(line, "=") {
			pairings = append(pairings, line)
			continue
		}
		spl := strings.Split(line, "=")
		if len(spl) != 2 {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		grp := strings.TrimSpace(spl[0])
		if err := NameValidator(grp); err != nil {
			return nil, err
		}
		if slices.Contains(nodes, grp) {
			return nil, fmt.Errorf("group name must not be a node name: %s", grp)
		}
		if _, ok := groupDefs[grp]; ok {
			return nil, fmt.Errorf("duplicate group name: %s", grp)
		}
		groupDefs[grp] = spl[1]
		symbols = append(symbols, grp)
	}

	// pass 1, resolve group members

	groups := make(map[string][]string)
	for grp, def := range groupDefs {
		lst, err := parseSymbolList(def, symbols)
		if err != nil {
			return nil, err
		}
		groups[grp] = lst
	}
	expanded := make(map[string][]string)
	for _, grp := range slices.Sorted(maps.Keys(groups)) {
		if _, err := expandGroup(grp, nodes, groups, expanded, nil); err != nil {
			return nil, err
		}
	}

	// pass 2, interconnect

	latencies := make(map[Pair[NodeId, NodeId]]uint32)
	for _, line := range pairings {
		latency := DefaultLatency
		if before, after, ok := strings.Cut(line, "@"); ok {
			val, err := strconv.ParseUint(strings.TrimSpace(after), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid latency in %q: %w", line, err)
			}
			if uint32(val) >= INF {
				return nil, fmt.Errorf("latency %d in %q must be less than %d", val, line, INF)
			}
			latency = uint32(val)
			line = before
		}
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				for _, x := range resolve(names[i], nodes, expanded) {
					for _, y := range resolve(names[j], nodes, expanded) {
						if x != y {
							latencies[MakeSortedPair(NodeId(x), NodeId(y))] = latency
						}
					}
				}
			}
		}
	}

	links := make([]LinkCfg, 0, len(latencies))
	for _, pair := range slices.SortedFunc(maps.Keys(latencies), ComparePairs[NodeId]) {
		links = append(links, LinkCfg{A: pair.V1, B: pair.V2, Latency: latencies[pair]})
	}
	return links, nil
}

func resolve(symbol string, nodes []string, expanded map[string][]string) []string {
	if slices.Contains(nodes, symbol) {
		return []string{symbol}
	}
	return expanded[symbol]
}

func expandGroup(grp string, nodes []string, groups, expanded map[string][]string, path []string) ([]string, error) {
	if exp, ok := expanded[grp]; ok {
		return exp, nil
	}
	if slices.Contains(path, grp) {
		cycle := append(slices.Clone(path), grp)
		return nil, fmt.Errorf("cycle detected in graph: %s", strings.Join(cycle, " -> "))
	}
	path = append(path, grp)
	members := make([]string, 0)
	for _, sym := range groups[grp] {
		if slices.Contains(nodes, sym) {
			members = append(members, sym)
			continue
		}
		sub, err := expandGroup(sym, nodes, groups, expanded, path)
		if err != nil {
			return nil, err
		}
		members = append(members, sub...)
	}
	slices.Sort(members)
	members = slices.Compact(members)
	expanded[grp] = members
	return members, nil
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	spl := strings.Split(strings.TrimSpace(s), ",")
	line := make([]string, 0)
	for _, s := range spl {
		x := strings.TrimSpace(s)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	return line, nil
}
