package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// CycleError reports the edges that could not be ordered.
type CycleError struct {
	Edges []Edge // edges between nodes that could not be ordered, sorted
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		parts[i] = edge.From + " -> " + edge.To
	}
	return fmt.Sprintf("%v: %s", ErrGraphHasCycle, strings.Join(parts, ", "))
}

func (e *CycleError) Unwrap() error { return ErrGraphHasCycle }

// TopoSort orders all nodes so that every edge points forward.
//
// It uses Kahn's algorithm; among nodes that are ready at the same time the
// lexicographically smallest ID goes first, so the order is deterministic.
// If the graph has a cycle, TopoSort returns a [*CycleError] naming the
// edges among the nodes that could not be placed and no order.
func (d *DAG) TopoSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	var ready []string
	for id := range d.nodes {
		inDegree[id] = len(d.incoming[id])
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		curr := ready[0]
		ready = ready[1:]
		order = append(order, curr)

		var next []string
		for _, child := range d.outgoing[curr] {
			inDegree[child]--
			if inDegree[child] == 0 {
				next = append(next, child)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			slices.Sort(ready)
		}
	}

	if len(order) == len(d.nodes) {
		return order, nil
	}

	var stuck []Edge
	for _, e := range d.edges {
		if inDegree[e.From] > 0 && inDegree[e.To] > 0 {
			stuck = append(stuck, e)
		}
	}
	slices.SortFunc(stuck, func(a, b Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return nil, &CycleError{Edges: stuck}
}

// AssignRows places each node one row below its deepest dependency, so
// row 0 holds crates with no local dependencies and every row can be
// published once the rows above it are done. Nodes on a cycle keep row 0.
func (d *DAG) AssignRows() {
	inDegree := make(map[string]int, len(d.nodes))
	rows := make(map[string]int, len(d.nodes))
	queue := make([]string, 0, len(d.nodes))

	for _, id := range d.order {
		inDegree[id] = len(d.incoming[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range d.outgoing[curr] {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for id, n := range d.nodes {
		n.Row = rows[id]
	}
}

// Rows groups node IDs by row, each row sorted by ID. Call AssignRows first.
func (d *DAG) Rows() [][]string {
	byRow := make(map[int][]string)
	for id, n := range d.nodes {
		byRow[n.Row] = append(byRow[n.Row], id)
	}
	out := make([][]string, 0, len(byRow))
	for _, row := range slices.Sorted(maps.Keys(byRow)) {
		ids := byRow[row]
		slices.Sort(ids)
		out = append(out, ids)
	}
	return out
}
