// Package dag provides the directed graph monocrate uses to order crate
// publishing.
//
// Nodes are workspace crates. An edge points from a depended-on crate to
// its dependant, so it reads "publish From before To":
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "swc_common"})
//	g.AddNode(dag.Node{ID: "swc_ecma_parser"})
//	g.AddEdge(dag.Edge{From: "swc_common", To: "swc_ecma_parser"})
//
//	order, err := g.TopoSort() // [swc_common swc_ecma_parser]
//
// [DAG.TopoSort] never tries to break a cycle. A cyclic graph yields a
// [*CycleError] listing the offending edges, which wraps [ErrGraphHasCycle].
//
// [DAG.AssignRows] groups crates into publish waves for display; the graph
// export in pkg/render draws one rank per row.
package dag
