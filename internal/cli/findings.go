package cli

import (
	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/source"
)

// printFindings renders a bag in the selected format. JSON mode emits
// the stable sorted array even when empty.
func printFindings(formatter *OutputFormatter, bag *diag.Bag, buffers map[string]*source.Buffer) error {
	if formatter.Format == "json" {
		return bag.WriteJSON(formatter.Writer)
	}
	if bag.Len() == 0 {
		return nil
	}
	return bag.WriteText(formatter.Writer, buffers)
}
