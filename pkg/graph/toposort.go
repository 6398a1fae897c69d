package graph

import (
	"sort"
)

// node is one element of a topological sort: an identity, the elements
// it depends on, and a tie-break key used whenever more than one node
// has no remaining unsatisfied dependency.
type node struct {
	id      string
	key     string // ascending sort key used to break ties deterministically
	depends []string
}

// CycleError reports a dependency cycle toposort could not fully resolve
// without breaking it.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return "graph: dependency cycle detected"
}

// toposort performs a Kahn's-algorithm topological sort over nodes,
// breaking ties between simultaneously-ready nodes by ascending key. If
// a cycle remains once no node is ready, the cycle is broken by forcibly
// releasing the remaining node with the lowest key — its unresolved
// incoming edges are simply dropped, which is always safe here since the
// caller's worst case is pushing an item before one of its own
// references exists, at which point DependencyUnresolved is reported by
// the item-level rewrite step rather than the sort itself.
func toposort(nodes []node) ([]string, error) {
	byID := make(map[string]node, len(nodes))
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)

	for _, n := range nodes {
		byID[n.id] = n
		if _, ok := indegree[n.id]; !ok {
			indegree[n.id] = 0
		}
	}
	for _, n := range nodes {
		for _, dep := range n.depends {
			if _, ok := byID[dep]; !ok {
				continue // dependency outside this node set, e.g. filtered by version
			}
			indegree[n.id]++
			dependents[dep] = append(dependents[dep], n.id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	broke := false
	for len(order) < len(nodes) {
		if len(ready) == 0 {
			remaining := remainingByKey(byID, indegree)
			if len(remaining) == 0 {
				break
			}
			// Break the cycle: release the lowest-key remaining node.
			broke = true
			victim := remaining[0]
			indegree[victim] = 0
			ready = append(ready, victim)
		}

		sort.Slice(ready, func(i, j int) bool { return byID[ready[i]].key < byID[ready[j]].key })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		delete(indegree, next)

		for _, dep := range dependents[next] {
			if _, ok := indegree[dep]; !ok {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if broke {
		return order, &CycleError{Remaining: nil}
	}
	return order, nil
}

func remainingByKey(byID map[string]node, indegree map[string]int) []string {
	var out []string
	for id := range indegree {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return byID[out[i]].key < byID[out[j]].key })
	return out
}
