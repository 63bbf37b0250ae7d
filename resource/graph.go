// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "sync"

func newDepGraph() *depGraph {
	return &depGraph{edges: make(map[key][]ID)}
}

// depGraph records, for every resource, the ordered set of resources
// it depends on. Edges are recorded while the parent loads and live
// as long as the parent's cache entry, they carry the parent's
// lifetime over to its dependencies.
type depGraph struct {
	mu    sync.Mutex
	edges map[key][]ID
}

// record appends dep to parent's edge list. First-seen order is kept
// and duplicates are dropped.
func (g *depGraph) record(parent, dep ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.edges[parent.key()] {
		if d.key() == dep.key() {
			return
		}
	}
	g.edges[parent.key()] = append(g.edges[parent.key()], dep)
}

// dependencies returns a copy of parent's edge list.
func (g *depGraph) dependencies(parent ID) []ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	deps := g.edges[parent.key()]
	if len(deps) == 0 {
		return nil
	}
	out := make([]ID, len(deps))
	copy(out, deps)
	return out
}

// remove drops every edge recorded for parent.
func (g *depGraph) remove(parent ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges, parent.key())
}

// isDependency reports whether id appears in the edge list of any
// recorded parent.
func (g *depGraph) isDependency(id ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, deps := range g.edges {
		for _, d := range deps {
			if d.key() == id.key() {
				return true
			}
		}
	}
	return false
}
