package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/doipscope/internal/doip"
)

// WriteRegistry prints the registration projection of reg as a table.
func WriteRegistry(w io.Writer, reg *doip.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tLAYOUT\tFIELD\tFILTER\tKIND\tBASE\tENCODING\tTABLE")
	for _, info := range reg.FieldInfos() {
		table := info.Table
		if table == "" {
			table = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			info.PayloadType, info.Layout, info.Name, info.Abbrev,
			info.Kind, info.Base, info.Encoding, table)
	}
	return tw.Flush()
}
