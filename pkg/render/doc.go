// Package render draws the publish graph.
//
// [ToDOT] turns a [dag.DAG] into Graphviz DOT with one rank per publish
// wave (see [dag.DAG.AssignRows]); [RenderSVG] lays it out with
// github.com/goccy/go-graphviz, which needs no system Graphviz install.
// [ToPDF] and [ToPNG] convert the SVG with the external rsvg-convert tool.
//
//	g.AssignRows()
//	svg, err := render.RenderSVG(render.ToDOT(g, render.Options{Detailed: true}))
//
// Nodes may carry "version", "published" and "action" metadata; the
// action ("publish" or "skip") selects the node's fill.
package render
