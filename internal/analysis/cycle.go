package analysis

import (
	"fmt"
	"strings"

	"github.com/roach88/stanza/internal/report"
)

// Cycle is a set of files that include each other. A run expanding any
// include on the cycle exhausts its fixpoint depth quota.
type Cycle struct {
	Path    []string   `json:"path"`    // Cycle path: ["a.stz", "b.stz", "a.stz"]
	Loc     report.Loc `json:"-"`       // The include in Path[0] that starts the cycle
	Message string     `json:"message"` // Human-readable description
}

// Cycles finds the include cycles of g.
//
// The algorithm:
//  1. Take the file → included file edges of g
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-include as a cycle
//
// Files and edges are visited in discovery order, so the result is
// deterministic. An acyclic graph returns an empty list.
func Cycles(g *Graph) []Cycle {
	cycles := []Cycle{}
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(g, scc[0]) {
			cycles = append(cycles, sccToCycle(g, scc))
		}
	}
	return cycles
}

// edges returns the resolved include targets of a file that are part of g.
func edges(g *Graph, path string) []string {
	f := g.Files[path]
	if f == nil {
		return nil
	}
	var out []string
	for _, inc := range f.Includes {
		if _, ok := g.Files[inc.Target]; ok {
			out = append(out, inc.Target)
		}
	}
	return out
}

func hasSelfLoop(g *Graph, node string) bool {
	for _, neighbor := range edges(g, node) {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Each component lists its files with the earliest discovered first.
func tarjanSCC(g *Graph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges(g, v) {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// popped last-in first; the root v was discovered first
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.Order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(g *Graph, scc []string) Cycle {
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = cyclePath(g, scc)
	}

	c := Cycle{Path: path, Loc: report.Loc{File: path[0]}}
	for _, inc := range g.Files[path[0]].Includes {
		if inc.Target == path[1] {
			c.Loc = inc.Loc
			break
		}
	}
	if len(scc) == 1 {
		c.Message = fmt.Sprintf("file includes itself: %s", path[0])
	} else {
		c.Message = fmt.Sprintf("include cycle: %s", strings.Join(path, " → "))
	}
	return c
}

// cyclePath follows edges inside the component from its first file until
// it returns there.
func cyclePath(g *Graph, scc []string) []string {
	member := make(map[string]bool, len(scc))
	for _, node := range scc {
		member[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range edges(g, current) {
			if member[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
