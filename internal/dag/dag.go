// Package dag orders tables by their relationship columns so that a
// relationship's target table exists before the column pointing at it is
// created.
package dag

import (
	"fmt"
	"slices"

	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// Graph is the relationship graph of a set of tables. An edge runs from a
// related table to the table declaring the relationship. Relationships to
// tables outside the set, and to the declaring table itself, add no edge.
type Graph struct {
	tables  map[string]schema.Table
	order   []string            // declaration order
	edges   map[string][]string // related -> dependents
	parents map[string][]string // dependent -> related
}

// New builds the graph for tables.
func New(tables []schema.Table) *Graph {
	g := &Graph{
		tables:  make(map[string]schema.Table, len(tables)),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
	for _, t := range tables {
		if _, dup := g.tables[t.ID]; !dup {
			g.order = append(g.order, t.ID)
		}
		g.tables[t.ID] = t
	}
	for _, id := range g.order {
		for _, col := range g.tables[id].Columns {
			if col.Kind != schema.KindRelationship || col.Relation == nil {
				continue
			}
			g.addEdge(col.Relation.RelatedTable, id)
		}
	}
	return g
}

func (g *Graph) addEdge(parentID, childID string) {
	if parentID == childID {
		return
	}
	if _, ok := g.tables[parentID]; !ok {
		return
	}
	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
}

// Len returns the number of tables in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns the tables id relates to directly.
func (g *Graph) Dependencies(id string) []string {
	return g.parents[id]
}

// Cycle returns a relationship cycle as a path that starts and ends on the
// same table, or nil if there is none.
func (g *Graph) Cycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = from[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// Levels groups the tables so that every table's relationship targets sit in
// an earlier level. Tables in one level can be synchronized concurrently.
// Within a level, tables keep their declaration order.
func (g *Graph) Levels() ([][]schema.Table, error) {
	if cycle := g.Cycle(); cycle != nil {
		return nil, fmt.Errorf("relationship cycle: %v", cycle)
	}

	level := make(map[string]int, len(g.order))
	var depth func(id string) int
	depth = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, p := range g.parents[id] {
			l = max(l, depth(p)+1)
		}
		level[id] = l
		return l
	}

	var levels [][]schema.Table
	for _, id := range g.order {
		l := depth(id)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], g.tables[id])
	}
	return levels, nil
}

// Upstream returns every table id depends on, directly or transitively, in
// declaration order.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(string)
	mark = func(n string) {
		for _, p := range g.parents[n] {
			if !seen[p] {
				seen[p] = true
				mark(p)
			}
		}
	}
	mark(id)

	var out []string
	for _, n := range g.order {
		if seen[n] && n != id {
			out = append(out, n)
		}
	}
	return out
}
