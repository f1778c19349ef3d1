package swarm

// AddRestrictionSet registers a new named restriction set and returns its
// id. A restriction set holds forbidden (from, to) pairs; a pair need not
// correspond to an edge that exists in the graph (harmless, spec §3).
func (g *Graph) AddRestrictionSet(name string) (RestrictionSet, error) {
	if _, exists := g.restrictionNames[name]; exists {
		return 0, configErrorf("AddRestrictionSet", "duplicate restriction set name %q", name)
	}
	id := g.nextRestriction
	g.nextRestriction++
	g.restrictionNames[name] = id
	g.restrictions[id] = make(map[edgeKey]struct{})
	return id, nil
}

// RestrictionSet looks up a previously added restriction set by name.
func (g *Graph) RestrictionSet(name string) (RestrictionSet, bool) {
	id, ok := g.restrictionNames[name]
	return id, ok
}

// AddRestriction adds the pair (from, to) to set.
func (g *Graph) AddRestriction(set RestrictionSet, from, to State) error {
	pairs, ok := g.restrictions[set]
	if !ok {
		return configErrorf("AddRestriction", "unknown restriction set %d", set)
	}
	pairs[edgeKey{from: from, to: to}] = struct{}{}
	return nil
}

// IsRestricted reports whether (from, to) is forbidden by set.
func (g *Graph) IsRestricted(set RestrictionSet, from, to State) bool {
	pairs, ok := g.restrictions[set]
	if !ok {
		return false
	}
	_, forbidden := pairs[edgeKey{from: from, to: to}]
	return forbidden
}

// Restrictions returns every (from, to) pair forbidden by set, in no
// particular order.
func (g *Graph) Restrictions(set RestrictionSet) [][2]State {
	pairs := g.restrictions[set]
	out := make([][2]State, 0, len(pairs))
	for k := range pairs {
		out = append(out, [2]State{k.from, k.to})
	}
	return out
}

// isForbidden reports whether (from, to) is forbidden by any of the
// currently active restriction sets.
func (g *Graph) isForbidden(active []RestrictionSet, from, to State) bool {
	for _, set := range active {
		if g.IsRestricted(set, from, to) {
			return true
		}
	}
	return false
}
