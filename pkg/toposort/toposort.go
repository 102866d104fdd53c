// Package toposort provides deterministic topological ordering for
// dependency graphs over dense integer node IDs.
package toposort

import "sort"

// Graph is a directed graph over node IDs 0..n-1.
type Graph struct {
	adj      [][]int
	inDegree []int
}

// NewGraph creates a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	return &Graph{
		adj:      make([][]int, n),
		inDegree: make([]int, n),
	}
}

// Len returns the number of nodes in the graph.
func (graph *Graph) Len() int {
	return len(graph.adj)
}

// AddEdge records a dependency edge from u to v. Duplicate edges are
// ignored. Returns true if the edge was added.
func (graph *Graph) AddEdge(u, v int) bool {
	for _, neighbor := range graph.adj[u] {
		if neighbor == v {
			return false
		}
	}

	graph.adj[u] = append(graph.adj[u], v)
	graph.inDegree[v]++

	return true
}

// Sort returns the node IDs in topological order using Kahn's algorithm.
// Ties break toward the smallest ID, so the order is deterministic.
// Returns false when the graph contains a cycle.
func (graph *Graph) Sort() ([]int, bool) {
	n := len(graph.adj)
	inDegree := make([]int, n)
	copy(inDegree, graph.inDegree)

	queue := make([]int, 0, n)
	for id := range n {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]int, 0, n)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		result = append(result, u)

		for _, v := range graph.adj[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				insertSorted(&queue, v)
			}
		}
	}

	if len(result) != n {
		return result, false
	}

	return result, true
}

// FindCycle returns one cycle reachable from start as a closed path,
// or nil when no such cycle exists. Used for error diagnostics.
func (graph *Graph) FindCycle(start int) []int {
	if start >= len(graph.adj) {
		return nil
	}

	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range graph.adj[u] {
			if v == start {
				path := []int{u}
				for node := parent[u]; node != -1; node = parent[node] {
					path = append(path, node)
				}

				reverse(path)

				return append(path, start)
			}

			if _, seen := parent[v]; !seen {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return nil
}

// insertSorted inserts v into the ascending slice s.
func insertSorted(s *[]int, v int) {
	i := sort.SearchInts(*s, v)
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = v
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
