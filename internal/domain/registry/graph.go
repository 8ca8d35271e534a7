package registry

// keySet is a set of identity keys.
type keySet map[IdentityKey]struct{}

func (s keySet) add(k IdentityKey)      { s[k] = struct{}{} }
func (s keySet) has(k IdentityKey) bool { _, ok := s[k]; return ok }

// relationGraph is the directed type-relationship graph.
// Edges point from a derived type to its base type, generic definition and
// interfaces. Edges are only present between vertices that both exist.
type relationGraph struct {
	edges map[IdentityKey]keySet // vertex -> ancestors
	// dependents records every declared relation, including ones whose
	// ancestor is not (yet) a vertex: ancestor -> declaring types.
	dependents map[IdentityKey]keySet
	declared   map[IdentityKey][]IdentityKey // vertex -> declared ancestors
}

func newRelationGraph() *relationGraph {
	return &relationGraph{
		edges:      make(map[IdentityKey]keySet),
		dependents: make(map[IdentityKey]keySet),
		declared:   make(map[IdentityKey][]IdentityKey),
	}
}

// hasVertex reports whether k is a vertex.
func (g *relationGraph) hasVertex(k IdentityKey) bool {
	_, ok := g.edges[k]
	return ok
}

// addVertex inserts k and reconciles edges in both directions: from k to any
// existing declared ancestor, and from any existing type that declared k.
func (g *relationGraph) addVertex(k IdentityKey, ancestors []IdentityKey) {
	out := make(keySet, len(ancestors))
	g.edges[k] = out
	g.declared[k] = ancestors

	for _, a := range ancestors {
		if a == k {
			continue
		}
		deps, ok := g.dependents[a]
		if !ok {
			deps = make(keySet)
			g.dependents[a] = deps
		}
		deps.add(k)
		if g.hasVertex(a) {
			out.add(a)
		}
	}

	for child := range g.dependents[k] {
		if childOut, ok := g.edges[child]; ok {
			childOut.add(k)
		}
	}
}

// removeVertex deletes k and every edge touching it. Relations declared by
// other types towards k are kept so a later re-insert restores the edges.
func (g *relationGraph) removeVertex(k IdentityKey) {
	if !g.hasVertex(k) {
		return
	}
	for child := range g.dependents[k] {
		if childOut, ok := g.edges[child]; ok {
			delete(childOut, k)
		}
	}
	for _, a := range g.declared[k] {
		if deps, ok := g.dependents[a]; ok {
			delete(deps, k)
			if len(deps) == 0 {
				delete(g.dependents, a)
			}
		}
	}
	delete(g.declared, k)
	delete(g.edges, k)
}

// reachable reports whether a path of length >= 1 leads from -> to.
// Iterative DFS; the visited set bounds the search to the graph size.
func (g *relationGraph) reachable(from, to IdentityKey) bool {
	if !g.hasVertex(from) || !g.hasVertex(to) {
		return false
	}
	visited := make(keySet)
	stack := []IdentityKey{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.edges[cur] {
			if next == to {
				return true
			}
			if !visited.has(next) {
				visited.add(next)
				stack = append(stack, next)
			}
		}
	}
	return false
}

// ancestorsOf returns every vertex reachable from k.
func (g *relationGraph) ancestorsOf(k IdentityKey) []IdentityKey {
	if !g.hasVertex(k) {
		return nil
	}
	visited := make(keySet)
	stack := []IdentityKey{k}
	var out []IdentityKey
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.edges[cur] {
			if next == k || visited.has(next) {
				continue
			}
			visited.add(next)
			out = append(out, next)
			stack = append(stack, next)
		}
	}
	return out
}

// edgeCount returns the number of edges, for tests and diagnostics.
func (g *relationGraph) edgeCount() int {
	n := 0
	for _, out := range g.edges {
		n += len(out)
	}
	return n
}

// size returns the number of vertices.
func (g *relationGraph) size() int {
	return len(g.edges)
}
