package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is wrapped by the [*CycleError] that [DAG.TopoSort]
	// returns when the graph is not acyclic.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as a crate's local and published versions. Metadata maps are never
// nil after AddNode.
type Metadata map[string]any

// Node is one crate in the publish graph.
//
// Row is the node's publish wave as assigned by [DAG.AssignRows]: every
// node's dependencies sit in strictly lower rows.
type Node struct {
	ID   string
	Row  int
	Meta Metadata
}

// Edge points from a depended-on node to its dependant: From must be
// published before To.
type Edge struct {
	From string
	To   string
}

// DAG is a directed graph of publish-order constraints. Despite the name it
// may contain cycles while being built; [DAG.TopoSort] reports them.
//
// The zero value is not usable - use New. DAG is not safe for concurrent
// use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string // insertion order
	edges    []Edge
	outgoing map[string][]string // nodeID -> dependants
	incoming map[string][]string // nodeID -> dependencies
	meta     Metadata
}

// New creates an empty graph with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node. Returns ErrInvalidNodeID for an empty ID and
// ErrDuplicateNodeID if the ID is taken.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// EnsureNode adds a node with the given ID unless it already exists and
// returns it.
func (d *DAG) EnsureNode(id string) (*Node, error) {
	if n, ok := d.nodes[id]; ok {
		return n, nil
	}
	if err := d.AddNode(Node{ID: id}); err != nil {
		return nil, err
	}
	return d.nodes[id], nil
}

// AddEdge adds the edge from→to between existing nodes. Adding an edge that
// already exists is a no-op, so a crate listed under several dependency
// kinds yields a single constraint.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order. The pointers refer to the
// graph's own nodes.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, len(d.order))
	for i, id := range d.order {
		nodes[i] = d.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the dependants of id. The slice must not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the dependencies of id. The slice must not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// InDegree returns the number of edges into id.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// OutDegree returns the number of edges out of id.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns nodes with no incoming edges, sorted by ID.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// NodeIDs extracts the ID from each node in a slice.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
