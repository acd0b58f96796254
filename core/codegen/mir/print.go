package mir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a textual listing of the function, one block per section.
func Fprint(w io.Writer, f *Func) {
	fmt.Fprintf(w, "func %s:\n", f.Name)
	for _, b := range f.Blocks {
		fmt.Fprintf(w, "bb%d:", b.ID)
		if len(b.Preds) > 0 {
			preds := make([]string, len(b.Preds))
			for i, p := range b.Preds {
				preds[i] = fmt.Sprintf("bb%d", p.ID)
			}
			fmt.Fprintf(w, " ; preds: %s", strings.Join(preds, ", "))
		}
		fmt.Fprintln(w)
		for _, in := range b.Instrs {
			fmt.Fprintf(w, "  %s\n", in)
		}
	}
}

// Sprint returns the textual listing as a string.
func Sprint(f *Func) string {
	var sb strings.Builder
	Fprint(&sb, f)
	return sb.String()
}
