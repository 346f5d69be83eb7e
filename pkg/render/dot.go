package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/monocrate/pkg/dag"
)

// Node actions understood by ToDOT.
const (
	ActionPublish = "publish"
	ActionSkip    = "skip"
)

// Options configures DOT output.
type Options struct {
	// Detailed adds the node's metadata below its name.
	Detailed bool
}

// ToDOT converts the publish graph to Graphviz DOT. Nodes in the same row
// share a rank, so the drawing reads top to bottom in publish order.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph publish {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *dag.Node) int { return strings.Compare(a.ID, b.ID) })
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(*n, opts.Detailed), ", "))
	}

	if rows := g.Rows(); len(rows) > 1 {
		buf.WriteString("\n")
		for _, row := range rows {
			quoted := make([]string, len(row))
			for i, id := range row {
				quoted[i] = fmt.Sprintf("%q", id)
			}
			fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{fmt.Sprintf("wave: %d", n.Row)}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n dag.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	switch n.Meta["action"] {
	case ActionPublish:
		attrs = append(attrs, "fillcolor=\"#d8f5d0\"")
	case ActionSkip:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=\"#555555\"")
	}
	return attrs
}
