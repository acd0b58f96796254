package mir

import (
	"fmt"
	"strings"
)

// ToDot returns a Graphviz DOT representation of the function's CFG.
func (f *Func) ToDot() string {
	var sb strings.Builder
	sb.WriteString("digraph CFG {\n")
	sb.WriteString("  rankdir=TB;\n") // Top to Bottom layout
	sb.WriteString("  node [shape=box, fontname=\"Courier\"];\n")

	for _, b := range f.Blocks {
		label := fmt.Sprintf("bb%d\\npreds=%d succs=%d", b.ID, len(b.Preds), len(b.Succs))

		// We limit the number of instructions shown to keep graph readable
		const maxInstrShown = 20
		count := 0
		for _, in := range b.Instrs {
			if count >= maxInstrShown {
				label += "\\n..."
				break
			}

			// Escape quotes for DOT format
			s := strings.ReplaceAll(in.String(), "\"", "\\\"")
			label += fmt.Sprintf("\\n%s", s)
			count++
		}

		sb.WriteString(fmt.Sprintf("  %d [label=\"%s\"];\n", b.ID, label))

		for _, s := range b.Succs {
			sb.WriteString(fmt.Sprintf("  %d -> %d;\n", b.ID, s.ID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
