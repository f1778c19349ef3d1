package swarm

// NextHop returns the first state on some shortest path from current to
// target that avoids every edge forbidden by an active restriction set,
// or ok=false if no such path exists (spec §4.2).
//
// The search is breadth-first over paths, not states: at each level every
// surviving path is extended by one edge, and a state only blocks further
// exploration once the level that discovered it has fully completed (the
// "visited" set never includes the current frontier, so a state can
// appear in more than one path within the same level). Paths within a
// level are extended in the order they were created; a state's neighbors
// are visited in the graph's insertion order (Graph.NextStates). Ties
// among equally-short paths are broken by this order, not specified
// further by spec §4.2.
func NextHop(g *Graph, current, target State, active []RestrictionSet) (State, bool) {
	visited := map[State]bool{}
	frontier := [][]State{{current}}

	maxLevels := len(g.names)
	for level := 0; level < maxLevels && len(frontier) > 0; level++ {
		var next [][]State
		for _, path := range frontier {
			tail := path[len(path)-1]
			for _, nb := range g.NextStates(tail) {
				if g.isForbidden(active, tail, nb) {
					continue
				}
				if visited[nb] {
					continue
				}
				extended := append(append([]State{}, path...), nb)
				if nb == target {
					return extended[1], true
				}
				next = append(next, extended)
			}
		}
		for _, path := range frontier {
			visited[path[len(path)-1]] = true
		}
		frontier = next
	}
	return 0, false
}
